// Command slscale subscribes to a SeedLink server, applies a linear
// transform to each miniseed record, and forwards the scaled records
// to a DataLink server (or stdout when no server is given).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/spf13/pflag"

	slscale "github.com/ozym/slscale/pkg/slscale"
	"github.com/ozym/slscale/internal/app/config"
)

func main() {
	name := filepath.Base(os.Args[0])

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [seedlink] [datalink]\n\nOptions:\n", name)
		fs.PrintDefaults()
	}

	verbose := fs.CountP("verbose", "v", "increase logging verbosity")
	cfgPath := fs.String("config", "", "load settings from a yaml configuration file")

	alpha := fs.Float64P("alpha", "A", 0.0, "offset added to each scaled sample")
	beta := fs.Float64P("beta", "B", 10.0, "scale applied to each sample")
	orient := fs.StringP("orient", "O", "T", "orientation code written into each channel name")

	selectors := fs.StringP("selectors", "s", "?TH", "seedlink selectors")
	streams := fs.StringP("streams", "S", "", "seedlink stream expression, e.g. \"NZ_WEL:HHZ,NZ_BFZ\"")
	streamlist := fs.StringP("streamlist", "l", "", "file with one \"NET STA [selectors]\" entry per line")
	delay := fs.DurationP("delay", "d", 0, "delay between seedlink reconnection attempts")
	timeout := fs.DurationP("timeout", "t", 0, "idle time before the seedlink session is recycled")
	heartbeat := fs.DurationP("heartbeat", "k", 0, "interval between seedlink keepalive requests")

	id := fs.StringP("id", "i", "slscale", "datalink client identity")
	ack := fs.BoolP("ack", "w", false, "request a datalink acknowledgement for each write")

	statefile := fs.StringP("statefile", "x", "", "file used to save and recover the sequence position")
	update := fs.IntP("update", "u", 300, "forwarded packets between statefile updates")

	metrics := fs.String("metrics", "", "listen address for the prometheus endpoint")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			os.Exit(1)
		}
	}

	// Explicit flags win over the configuration file.
	if fs.Changed("alpha") {
		cfg.Transform.Alpha = *alpha
	}
	if fs.Changed("beta") {
		cfg.Transform.Beta = *beta
	}
	if fs.Changed("orient") {
		cfg.Transform.Orient = *orient
	}
	if fs.Changed("selectors") {
		cfg.SeedLink.Selectors = *selectors
	}
	if fs.Changed("streams") {
		cfg.SeedLink.Streams = *streams
	}
	if fs.Changed("streamlist") {
		cfg.SeedLink.StreamList = *streamlist
	}
	if fs.Changed("delay") {
		cfg.SeedLink.NetworkDelay = *delay
	}
	if fs.Changed("timeout") {
		cfg.SeedLink.NetworkTimeout = *timeout
	}
	if fs.Changed("heartbeat") {
		cfg.SeedLink.KeepAlive = *heartbeat
	}
	if fs.Changed("ack") {
		cfg.DataLink.WriteAck = *ack
	}
	if fs.Changed("statefile") {
		cfg.Checkpoint.Path = *statefile
	}
	if fs.Changed("update") {
		cfg.Checkpoint.Interval = *update
	}
	if fs.Changed("metrics") {
		cfg.Metrics.Addr = *metrics
	}

	if args := fs.Args(); len(args) > 0 {
		cfg.SeedLink.Address = args[0]
		if len(args) > 1 {
			cfg.DataLink.Address = args[1]
		}
	}

	cfg.DataLink.ClientID = clientTag(name, *id)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}

	runtime, err := slscale.NewRuntime(cfg, slscale.WithVerbose(*verbose))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}

	// A terminating signal cancels the context; the relay drains, saves
	// its final position, and exits cleanly.
	signal.Ignore(syscall.SIGHUP, syscall.SIGPIPE)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()

	if err := runtime.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
}

// clientTag builds the identity reported to the downstream server,
// always in program:id form.
func clientTag(program, id string) string {
	return fmt.Sprintf("%s:%s", program, id)
}
