// Package main provides the imageproc command-line entry point: compile
// and run one script against an input image, writing the result as a PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cvpg/imageproc/pkg/codec"
	"github.com/cvpg/imageproc/pkg/config"
	"github.com/cvpg/imageproc/pkg/logging"
	"github.com/cvpg/imageproc/pkg/pool"
	"github.com/cvpg/imageproc/pkg/pperr"
	"github.com/cvpg/imageproc/pkg/scripting"
)

var (
	input      = flag.String("input", "", "input PNG path")
	output     = flag.String("output", "output.png", "output PNG path")
	timeoutSec = flag.Int("timeout", 10, "wall-clock timeout in seconds")
	quiet      = flag.Bool("quiet", false, "suppress progress output")
	filters    = flag.Bool("filters", false, "list registered operations and exit")
	expression = flag.String("expression", "", "script expression to evaluate")
	xcutoff    = flag.Int("xcutoff", 512, "tile width cutoff")
	ycutoff    = flag.Int("ycutoff", 512, "tile height cutoff")
	threads    = flag.Int("threads", 0, "worker pool size (0 = hardware concurrency)")
	configPath = flag.String("config", "", "path to a YAML config file")
)

func main() {
	flag.Parse()
	applyConfig()

	registry := scripting.NewRegistry()
	scripting.RegisterBuiltins(registry)

	if *filters {
		printFilters(registry)
		return
	}

	if err := run(registry); err != nil {
		fmt.Fprintf(os.Stderr, "imageproc: %v\n", err)
		os.Exit(1)
	}
}

// applyConfig loads *configPath (if set) and uses its values to fill in any
// of xcutoff/ycutoff/threads the caller left at their flag default, so an
// explicit flag always wins over the config file.
func applyConfig() {
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "imageproc: %v\n", err)
		os.Exit(1)
	}

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if !explicit["xcutoff"] {
		*xcutoff = cfg.Tiling.CutoffX
	}
	if !explicit["ycutoff"] {
		*ycutoff = cfg.Tiling.CutoffY
	}
	if !explicit["threads"] {
		*threads = cfg.Worker.PoolSize
	}
}

func printFilters(registry *scripting.Registry) {
	for _, d := range registry.List() {
		fmt.Printf("%s (%s)\n", d.Name, d.Category)
		for _, p := range d.Parameters {
			fmt.Printf("  %s: %s\n", p.Name, p.Description)
		}
	}
}

func run(registry *scripting.Registry) error {
	if *input == "" {
		return pperr.New(pperr.InvalidParameter, "--input is required")
	}
	if *expression == "" {
		return pperr.New(pperr.InvalidParameter, "--expression is required")
	}

	f, err := os.Open(*input)
	if err != nil {
		return pperr.Wrap(pperr.IoError, err, "open input")
	}
	img, err := codec.DecodePNG(f)
	f.Close()
	if err != nil {
		return err
	}

	workers := pool.New(*threads)
	defer workers.Close()

	proc := scripting.NewProcessor(registry, workers)
	proc.AddParam("cutoff_x", *xcutoff)
	proc.AddParam("cutoff_y", *ycutoff)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutSec)*time.Second)
	defer cancel()

	id, err := proc.Compile(ctx, *expression)
	if err != nil {
		return err
	}

	if !*quiet {
		logging.Infof("compiled, evaluating against %s", *input)
	}

	var (
		result  scripting.Value
		evalErr error
	)
	proc.Evaluate(ctx, id, img, func(v scripting.Value, err error) {
		result, evalErr = v, err
	})
	if ctx.Err() == context.DeadlineExceeded {
		return pperr.New(pperr.Timeout, "evaluation exceeded %ds", *timeoutSec)
	}
	if evalErr != nil {
		return evalErr
	}
	if result.Image == nil {
		return pperr.New(pperr.Internal, "script produced a non-image result")
	}

	out, err := os.Create(*output)
	if err != nil {
		return pperr.Wrap(pperr.IoError, err, "create output")
	}
	defer out.Close()

	if err := codec.EncodePNG(out, result.Image); err != nil {
		return err
	}

	if !*quiet {
		logging.Infof("wrote %s", *output)
	}
	return nil
}
