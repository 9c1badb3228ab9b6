// Package datalink maintains the session with the downstream
// replication endpoint and sends re-encoded records to it.
package datalink

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ozym/slscale/internal/ports"
)

const (
	dialTimeout    = 30 * time.Second
	defaultTimeout = 10 * time.Second
)

// Config captures the runtime details of one DataLink session.
type Config struct {
	Address string `yaml:"address"`

	// ClientID is the identity tag reported at connect time.
	ClientID string `yaml:"id"`

	// WriteAck requests a server acknowledgement for every write.
	WriteAck bool `yaml:"ack"`

	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "slscale"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("datalink address is required")
	}
	return nil
}

// Dialer opens the transport connection; tests inject a fake.
type Dialer func(ctx context.Context, address string) (net.Conn, error)

// Client implements ports.Forwarder over the DataLink protocol. The
// connection handle is owned exclusively by the client; the relay only
// drives connect/write/disconnect transitions from one goroutine.
type Client struct {
	cfg  Config
	dial Dialer

	conn     net.Conn
	rd       *bufio.Reader
	live     bool
	writable bool
}

// NewClient returns an unconnected client.
func NewClient(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg: cfg,
		dial: func(ctx context.Context, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			return d.DialContext(ctx, "tcp", address)
		},
	}, nil
}

// Connect dials the endpoint and exchanges the ID handshake. The
// capability list in the reply reports whether the session has write
// permission.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx, c.cfg.Address)
	if err != nil {
		return fmt.Errorf("datalink: connect %s: %w", c.cfg.Address, err)
	}
	c.conn = conn
	c.rd = bufio.NewReader(conn)

	if err := c.send(fmt.Sprintf("ID %s", c.cfg.ClientID), nil); err != nil {
		conn.Close()
		return err
	}
	reply, _, err := c.receive()
	if err != nil {
		conn.Close()
		return fmt.Errorf("datalink: handshake: %w", err)
	}
	if !strings.HasPrefix(reply, "ID ") {
		conn.Close()
		return fmt.Errorf("datalink: unexpected handshake reply %q", reply)
	}

	c.writable = hasCapability(reply, "WRITE")
	c.live = true
	return nil
}

// Writable reports the write permission learned at connect time.
func (c *Client) Writable() bool { return c.writable }

// Live reports whether a session is currently established.
func (c *Client) Live() bool { return c.live }

// Write sends one record block. With acknowledgements enabled it waits
// for the server verdict; otherwise the write is fire-and-forget.
func (c *Client) Write(ctx context.Context, streamID string, start, end time.Time, payload []byte) error {
	if !c.live {
		return fmt.Errorf("datalink: session not connected")
	}

	flag := byte('N')
	if c.cfg.WriteAck {
		flag = 'A'
	}
	header := fmt.Sprintf("WRITE %s %d %d %c %d",
		streamID, start.UnixMicro(), end.UnixMicro(), flag, len(payload))

	if err := c.send(header, payload); err != nil {
		c.live = false
		return err
	}

	if !c.cfg.WriteAck {
		return nil
	}
	reply, _, err := c.receive()
	if err != nil {
		c.live = false
		return fmt.Errorf("datalink: ack: %w", err)
	}
	if !strings.HasPrefix(reply, "OK") {
		return fmt.Errorf("datalink: write refused: %s", reply)
	}
	return nil
}

// Disconnect closes the session. Safe to call on a dead session.
func (c *Client) Disconnect() error {
	c.live = false
	c.writable = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.rd = nil
	return err
}

// send frames one packet: the "DL" signature, the header length, the
// header and an optional binary payload.
func (c *Client) send(header string, payload []byte) error {
	if len(header) > 255 {
		return fmt.Errorf("datalink: header too long: %d", len(header))
	}
	buf := make([]byte, 0, 3+len(header)+len(payload))
	buf = append(buf, 'D', 'L', byte(len(header)))
	buf = append(buf, header...)
	buf = append(buf, payload...)

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.Timeout))
	if _, err := c.conn.Write(buf); err != nil {
		return fmt.Errorf("datalink: send: %w", err)
	}
	return nil
}

// receive reads one packet, returning its header and payload. Reply
// packets (OK/ERROR) declare their payload size as the final header
// field.
func (c *Client) receive() (string, []byte, error) {
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.Timeout))

	pre := make([]byte, 3)
	if _, err := readFull(c.rd, pre); err != nil {
		return "", nil, err
	}
	if pre[0] != 'D' || pre[1] != 'L' {
		return "", nil, fmt.Errorf("bad signature %q", pre[0:2])
	}

	header := make([]byte, int(pre[2]))
	if _, err := readFull(c.rd, header); err != nil {
		return "", nil, err
	}

	var payload []byte
	if size := replyPayloadSize(string(header)); size > 0 {
		payload = make([]byte, size)
		if _, err := readFull(c.rd, payload); err != nil {
			return "", nil, err
		}
	}
	return string(header), payload, nil
}

// replyPayloadSize extracts the trailing size field of OK/ERROR replies.
func replyPayloadSize(header string) int {
	if !strings.HasPrefix(header, "OK") && !strings.HasPrefix(header, "ERROR") {
		return 0
	}
	fields := strings.Fields(header)
	if len(fields) < 3 {
		return 0
	}
	var size int
	if _, err := fmt.Sscanf(fields[len(fields)-1], "%d", &size); err != nil {
		return 0
	}
	return size
}

// hasCapability scans the capability list after the "::" separator of an
// ID reply.
func hasCapability(reply, capability string) bool {
	_, caps, found := strings.Cut(reply, "::")
	if !found {
		return false
	}
	for _, f := range strings.Fields(caps) {
		if f == capability || strings.HasPrefix(f, capability+":") {
			return true
		}
	}
	return false
}

var _ ports.Forwarder = (*Client)(nil)

func readFull(rd *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := rd.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
