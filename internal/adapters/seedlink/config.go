package seedlink

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config captures the runtime details of one SeedLink session.
type Config struct {
	Address string `yaml:"address"`

	// Selectors is the uniform selector expression, also used as the
	// default for streams without their own selectors.
	Selectors string `yaml:"selectors"`

	// Streams is an inline multi-stream expression of the form
	// "NET_STA:sel1 sel2,NET_STA2".
	Streams string `yaml:"streams"`

	// StreamList is the path of a stream list file with one
	// "NET STA [selectors...]" entry per line.
	StreamList string `yaml:"streamlist"`

	NetworkDelay   time.Duration `yaml:"delay"`
	NetworkTimeout time.Duration `yaml:"timeout"`
	KeepAlive      time.Duration `yaml:"heartbeat"`
}

func (c *Config) ApplyDefaults() {
	if c.Address == "" {
		c.Address = ":18000"
	}
	if c.Selectors == "" {
		c.Selectors = "?TH"
	}
	if c.NetworkDelay <= 0 {
		c.NetworkDelay = 30 * time.Second
	}
	if c.NetworkTimeout <= 0 {
		c.NetworkTimeout = 600 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("seedlink address is required")
	}
	return nil
}

// stream is one negotiated station subscription.
type stream struct {
	network   string
	station   string
	selectors []string
}

// selection resolves the active subscription mode. Exactly one mode is
// active per session: a stream list file wins over an inline expression,
// which wins over the uniform default.
func (c *Config) selection() ([]stream, bool, error) {
	switch {
	case c.StreamList != "":
		streams, err := readStreamList(c.StreamList, c.Selectors)
		return streams, false, err
	case c.Streams != "":
		streams, err := parseStreams(c.Streams, c.Selectors)
		return streams, false, err
	}
	return nil, true, nil
}

// readStreamList loads a stream list file. Blank lines and lines
// starting with '#' are skipped.
func readStreamList(path, defaults string) ([]stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seedlink: stream list %s: %w", path, err)
	}
	defer f.Close()

	var streams []stream
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			return nil, fmt.Errorf("seedlink: stream list %s: malformed entry %q", path, line)
		}
		s := stream{network: parts[0], station: parts[1], selectors: parts[2:]}
		if len(s.selectors) == 0 && defaults != "" {
			s.selectors = strings.Fields(defaults)
		}
		streams = append(streams, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("seedlink: stream list %s: %w", path, err)
	}
	if len(streams) == 0 {
		return nil, fmt.Errorf("seedlink: stream list %s: no entries", path)
	}
	return streams, nil
}

// parseStreams expands an inline multi-stream expression. Entries are
// comma separated; each is "NET_STA" optionally followed by
// ":sel1 sel2".
func parseStreams(expr, defaults string) ([]stream, error) {
	var streams []stream
	for _, entry := range strings.Split(expr, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		var selectors []string
		if i := strings.IndexByte(entry, ':'); i >= 0 {
			selectors = strings.Fields(entry[i+1:])
			entry = entry[:i]
		}
		parts := strings.SplitN(entry, "_", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("seedlink: malformed stream entry %q", entry)
		}
		if len(selectors) == 0 && defaults != "" {
			selectors = strings.Fields(defaults)
		}
		streams = append(streams, stream{network: parts[0], station: parts[1], selectors: selectors})
	}
	if len(streams) == 0 {
		return nil, fmt.Errorf("seedlink: empty stream expression %q", expr)
	}
	return streams, nil
}
