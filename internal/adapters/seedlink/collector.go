// Package seedlink maintains the session with a SeedLink subscription
// source and yields one packet at a time to the relay loop.
package seedlink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ozym/slscale/internal/clock"
	"github.com/ozym/slscale/internal/ports"
)

const (
	packetHeaderLength = 8
	payloadLength      = 512
	pollInterval       = 500 * time.Millisecond
	dialTimeout        = 30 * time.Second
	commandTimeout     = 10 * time.Second
)

// Dialer opens the transport connection; tests inject a fake.
type Dialer func(ctx context.Context, address string) (net.Conn, error)

// Collector implements ports.Collector over the SeedLink protocol. All
// methods are driven from the single relay goroutine.
type Collector struct {
	cfg     Config
	streams []stream
	uni     bool

	state *ports.SessionState
	obs   ports.Observability
	clk   clock.Clock
	dial  Dialer

	conn net.Conn
	rd   *bufio.Reader

	lastData  time.Time
	heartbeat time.Time
	pending   bool // heartbeat sent, response outstanding
}

// NewCollector parses the stream selection and returns an unopened
// collector. Selection errors are fatal startup conditions.
func NewCollector(cfg Config, obs ports.Observability, clk clock.Clock) (*Collector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	streams, uni, err := cfg.selection()
	if err != nil {
		return nil, err
	}
	return &Collector{
		cfg:     cfg,
		streams: streams,
		uni:     uni,
		obs:     obs,
		clk:     clk,
		dial: func(ctx context.Context, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			return d.DialContext(ctx, "tcp", address)
		},
	}, nil
}

// Resume primes the session with a recovered read position.
func (c *Collector) Resume(state *ports.SessionState) {
	c.state = state
}

// State snapshots the current read position.
func (c *Collector) State() *ports.SessionState {
	if c.state == nil {
		c.state = &ports.SessionState{Address: c.cfg.Address}
	}
	c.state.UpdatedAt = c.clk.Now()
	return c.state
}

// Open dials the source and negotiates the subscription.
func (c *Collector) Open(ctx context.Context) error {
	conn, err := c.dial(ctx, c.cfg.Address)
	if err != nil {
		return fmt.Errorf("seedlink: connect %s: %w", c.cfg.Address, err)
	}
	c.conn = conn
	c.rd = bufio.NewReader(conn)

	if err := c.negotiate(); err != nil {
		conn.Close()
		c.conn = nil
		return err
	}

	c.lastData = c.clk.Now()
	c.heartbeat = c.lastData
	c.pending = false
	return nil
}

func (c *Collector) negotiate() error {
	if err := c.command("HELLO"); err != nil {
		return err
	}
	// two identification lines: software/version and organisation
	for i := 0; i < 2; i++ {
		if _, err := c.readLine(); err != nil {
			return fmt.Errorf("seedlink: handshake: %w", err)
		}
	}

	if c.uni {
		for _, sel := range strings.Fields(c.cfg.Selectors) {
			if err := c.modifier("SELECT " + sel); err != nil {
				return err
			}
		}
		if err := c.command(c.dataCommand("", "")); err != nil {
			return err
		}
		return nil
	}

	for _, s := range c.streams {
		if err := c.modifier(fmt.Sprintf("STATION %s %s", s.station, s.network)); err != nil {
			return err
		}
		for _, sel := range s.selectors {
			if err := c.modifier("SELECT " + sel); err != nil {
				return err
			}
		}
		if err := c.modifier(c.dataCommand(s.network, s.station)); err != nil {
			return err
		}
	}
	return c.command("END")
}

// dataCommand builds the DATA command, resuming from a recovered
// sequence number when one is known. An all-station session shares one
// sequence space across streams, so it resumes from the most recently
// recorded position.
func (c *Collector) dataCommand(network, station string) string {
	if c.uni {
		if pos, ok := c.state.Latest(); ok {
			return fmt.Sprintf("DATA %06X", pos.Sequence)
		}
		return "DATA"
	}
	if pos, ok := c.state.Position(network, station); ok {
		return fmt.Sprintf("DATA %06X", pos.Sequence)
	}
	return "DATA"
}

// errStale marks a session silent past the network timeout.
var errStale = errors.New("seedlink: upstream session stale")

// Collect blocks until a packet arrives, the context is cancelled, or
// the session fails beyond recovery.
func (c *Collector) Collect(ctx context.Context) (*ports.Packet, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.conn == nil {
			return nil, fmt.Errorf("seedlink: session not open: %w", ports.ErrSessionEnded)
		}

		header := make([]byte, packetHeaderLength)
		payload := make([]byte, payloadLength)
		if err := c.readPacket(ctx, header, payload); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !errors.Is(err, errStale) {
				c.obs.LogError("upstream read failed", err)
			}
			if err := c.reopen(ctx); err != nil {
				return nil, err
			}
			continue
		}

		if string(header[0:2]) != "SL" {
			c.obs.LogError("upstream framing lost", fmt.Errorf("bad signature %q", header[0:2]))
			if err := c.reopen(ctx); err != nil {
				return nil, err
			}
			continue
		}

		pkt, err := c.classify(header, payload)
		if err != nil {
			c.obs.LogError("upstream packet discarded", err)
			continue
		}
		return pkt, nil
	}
}

// readPacket fills the transport header and then the payload, polling
// in short intervals so shutdown and staleness are noticed promptly. A
// fill that straddles a poll deadline carries over to the next poll;
// partially read bytes are never discarded.
func (c *Collector) readPacket(ctx context.Context, header, payload []byte) error {
	for _, buf := range [][]byte{header, payload} {
		read := 0
		for read < len(buf) {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.maybeHeartbeat()

			c.conn.SetReadDeadline(time.Now().Add(pollInterval))
			n, err := c.rd.Read(buf[read:])
			read += n
			if err != nil {
				if isTimeout(err) {
					if c.stale() {
						return errStale
					}
					continue
				}
				return err
			}
		}
	}
	return nil
}

// classify decides the packet kind from the transport header and, for
// data packets, advances the recorded stream position.
func (c *Collector) classify(header, payload []byte) (*ports.Packet, error) {
	if string(header[2:6]) == "INFO" {
		kind := ports.PacketInfoTerm
		if header[7] == '*' {
			kind = ports.PacketInfo
		}
		if c.pending && kind == ports.PacketInfoTerm {
			c.pending = false
			c.lastData = c.clk.Now()
			return &ports.Packet{Kind: ports.PacketKeepalive, Payload: payload}, nil
		}
		return &ports.Packet{Kind: kind, Payload: payload}, nil
	}

	seq, err := strconv.ParseInt(string(header[2:8]), 16, 32)
	if err != nil {
		return nil, fmt.Errorf("seedlink: bad sequence %q: %w", header[2:8], err)
	}

	c.lastData = c.clk.Now()
	c.State().Update(ports.StreamPosition{
		Network:  strings.TrimRight(string(payload[18:20]), " "),
		Station:  strings.TrimRight(string(payload[8:13]), " "),
		Sequence: int(seq),
		Time:     c.lastData,
	})

	return &ports.Packet{Kind: ports.PacketData, Sequence: int(seq), Payload: payload}, nil
}

// maybeHeartbeat sends an INFO ID request after the configured idle
// interval so the server sees a live client and the reply confirms the
// link.
func (c *Collector) maybeHeartbeat() {
	if c.cfg.KeepAlive <= 0 || c.pending {
		return
	}
	now := c.clk.Now()
	if now.Sub(c.heartbeat) < c.cfg.KeepAlive {
		return
	}
	if err := c.command("INFO ID"); err != nil {
		c.obs.LogError("heartbeat failed", err)
		return
	}
	c.heartbeat = now
	c.pending = true
}

// stale reports whether the session has been silent past the network
// timeout.
func (c *Collector) stale() bool {
	return c.clk.Now().Sub(c.lastData) > c.cfg.NetworkTimeout
}

// reopen tears the session down and renegotiates after the configured
// delay. Failure to re-establish ends the session for the relay loop.
func (c *Collector) reopen(ctx context.Context) error {
	c.Close()
	c.obs.LogInfo("re-opening upstream session",
		ports.Field{Key: "address", Value: c.cfg.Address},
		ports.Field{Key: "delay", Value: c.cfg.NetworkDelay})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clk.After(c.cfg.NetworkDelay):
	}
	if err := c.Open(ctx); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrSessionEnded, err)
	}
	return nil
}

func (c *Collector) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.rd = nil
	return err
}

// command sends one protocol line without waiting for a reply.
func (c *Collector) command(cmd string) error {
	c.conn.SetWriteDeadline(time.Now().Add(commandTimeout))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", cmd); err != nil {
		return fmt.Errorf("seedlink: send %q: %w", cmd, err)
	}
	return nil
}

// modifier sends one handshake command and requires an OK reply.
func (c *Collector) modifier(cmd string) error {
	if err := c.command(cmd); err != nil {
		return err
	}
	line, err := c.readLine()
	if err != nil {
		return fmt.Errorf("seedlink: reply to %q: %w", cmd, err)
	}
	if line != "OK" {
		return fmt.Errorf("seedlink: %q refused: %s", cmd, line)
	}
	return nil
}

func (c *Collector) readLine() (string, error) {
	c.conn.SetReadDeadline(time.Now().Add(commandTimeout))
	line, err := c.rd.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

var _ ports.Collector = (*Collector)(nil)
