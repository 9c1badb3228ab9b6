// Package batch implements the file/stdin scaling pipeline: read
// records, transform, re-encode, write to the output stream.
package batch

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ozym/slscale/internal/adapters/mseed"
	"github.com/ozym/slscale/internal/adapters/observability"
	"github.com/ozym/slscale/internal/domain"
	"github.com/ozym/slscale/internal/ports"
)

// errPacking aborts the whole run; read and decode problems only end
// the current input.
var errPacking = errors.New("batch: record packing failed")

// Options wires the batch pipeline.
type Options struct {
	Transformer   ports.Transformer
	Output        io.Writer
	Observability ports.Observability
}

// Run scales every record from the named files in order, or from stdin
// when no files are given. Transformed records are written to the
// output stream as 512-byte blocks; ineligible records produce no
// output. Input problems are logged and skip to the next file; a
// packing failure aborts the run.
func Run(opts Options, paths []string, stdin io.Reader) error {
	obs := opts.Observability

	if len(paths) == 0 {
		obs.LogInfo("process miniseed data", ports.Field{Key: "source", Value: "<stdin>"})
		return run(opts, stdin)
	}

	for _, path := range paths {
		obs.LogInfo("process miniseed data", ports.Field{Key: "source", Value: path})
		f, err := os.Open(path)
		if err != nil {
			obs.LogError("error opening input", err, ports.Field{Key: "source", Value: path})
			continue
		}
		err = run(opts, f)
		f.Close()
		if err != nil {
			if errors.Is(err, errPacking) {
				return err
			}
			obs.LogError("error reading input", err, ports.Field{Key: "source", Value: path})
		}
	}
	return nil
}

func run(opts Options, r io.Reader) error {
	sink := func(block []byte) error {
		if _, err := opts.Output.Write(block); err != nil {
			return fmt.Errorf("error writing mseed record: %w", err)
		}
		return nil
	}

	return mseed.ReadRecords(r, func(rec *domain.Record) error {
		packed, err := opts.Transformer.Process(rec, sink)
		if err != nil {
			return fmt.Errorf("%w: %w", errPacking, err)
		}
		if packed == 0 {
			opts.Observability.IncCounter(observability.MetricRecordsDropped, 1)
			return nil
		}
		opts.Observability.IncCounter(observability.MetricRecordsForwarded, 1)
		return nil
	})
}
