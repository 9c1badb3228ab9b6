// Embedding example: run the live relay inside another program and
// receive the scaled records through a channel instead of a DataLink
// connection.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	slscale "github.com/ozym/slscale"
)

func main() {
	cfg := slscale.DefaultConfig()
	cfg.SeedLink.Address = "localhost:18000"
	cfg.SeedLink.Streams = "NZ_WEL:HHZ HHN HHE"
	cfg.Transform.Beta = 10.0

	forwarder, blocks, done := slscale.NewChannelForwarder(64)
	defer done()

	runtime, err := slscale.NewRuntime(cfg, slscale.WithForwarder(forwarder))
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		for block := range blocks {
			log.Printf("scaled %s: %d bytes spanning %s to %s",
				block.StreamID, len(block.Payload), block.Start, block.End)
		}
	}()

	if err := runtime.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
