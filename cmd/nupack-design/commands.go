package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/urfave/cli/v2"

	"github.com/TimothyStiles/nupack/design"
	"github.com/TimothyStiles/nupack/ioformat"
)

// designCommand reads the spec file named by --spec, runs the design
// search with the hyperparameters given on the command line, and writes
// the resulting archive to --out (or stdout if unset).
func designCommand(c *cli.Context) error {
	spec, err := ioformat.ReadSpec(c.String("spec"))
	if err != nil {
		return fmt.Errorf("nupack-design: %w", err)
	}

	d, err := design.NewDesign(spec)
	if err != nil {
		return fmt.Errorf("nupack-design: %w", err)
	}

	opts := design.DefaultRunOptions()
	opts.Trials = c.Int("trials")
	opts.ArchiveSize = c.Int("archive-size")
	opts.FStop = c.Float64("fstop")
	opts.FRefocus = c.Float64("frefocus")
	opts.MaxRefocusRounds = c.Int("max-refocus-rounds")
	opts.Limits.FStop = opts.FStop
	opts.Timeout = c.Duration("timeout")

	rng := rand.New(rand.NewSource(c.Int64("seed")))
	arc, err := d.Run(context.Background(), rng, opts)
	if err != nil {
		return fmt.Errorf("nupack-design: running design: %w", err)
	}

	if out := c.String("out"); out != "" {
		if err := ioformat.WriteArchive(arc, out); err != nil {
			return fmt.Errorf("nupack-design: %w", err)
		}
		return nil
	}

	doc := ioformat.BuildArchiveDoc(arc)
	file, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("nupack-design: encoding archive: %w", err)
	}
	fmt.Fprintln(c.App.Writer, string(file))
	return nil
}
