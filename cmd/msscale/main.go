// Command msscale applies a linear transform to miniseed records read
// from files or stdin, writing the scaled records to stdout.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/ozym/slscale/internal/adapters/mseed"
	"github.com/ozym/slscale/internal/adapters/observability"
	"github.com/ozym/slscale/internal/app/batch"
	"github.com/ozym/slscale/internal/transform"
)

func main() {
	name := filepath.Base(os.Args[0])

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [files...]\n\nOptions:\n", name)
		fs.PrintDefaults()
	}

	verbose := fs.CountP("verbose", "v", "increase logging verbosity")
	alpha := fs.Float64P("alpha", "A", 0.0, "offset added to each scaled sample")
	beta := fs.Float64P("beta", "B", 1.0, "scale applied to each sample")
	orient := fs.StringP("orient", "O", "T", "orientation code written into each channel name")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if len(*orient) > 1 {
		fmt.Fprintf(os.Stderr, "%s: orient must be a single character: %q\n", name, *orient)
		os.Exit(1)
	}

	obs := observability.New(name, *verbose, os.Stderr)

	enc, err := mseed.NewEncoder(mseed.EncodingSteim2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}

	opts := batch.Options{
		Transformer:   transform.NewScaler(*alpha, *beta, *orient, enc),
		Output:        os.Stdout,
		Observability: obs,
	}

	if err := batch.Run(opts, fs.Args(), os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
}
