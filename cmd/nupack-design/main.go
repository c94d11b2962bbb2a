// nupack-design is the command line entry point for this module: it
// reads a JSON design specification, runs the multi-objective sequence
// optimizer, and writes a JSON archive of Pareto-optimal results.
//
// Initial arg parsing and app definition is done entirely through
// "github.com/urfave/cli/v2", following the poly command line tool's
// shape: the &cli.App{} struct is initialized with Name, Usage,
// Flags, and Commands, and main is kept separate from the app
// definition to keep it testable.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	run(os.Args)
}

// run is separated from main for debugging and testing.
func run(args []string) {
	app := application()
	if err := app.Run(args); err != nil {
		log.Fatal(err)
	}
}

// application defines the command line app: its one subcommand,
// "design", and the flags that shape a run.
func application() *cli.App {
	return &cli.App{
		Name:  "nupack-design",
		Usage: "Design nucleic acid sequences meeting a set of target secondary structures.",
		Commands: []*cli.Command{
			{
				Name:    "design",
				Aliases: []string{"d"},
				Usage:   "Run a multi-objective sequence design search from a JSON specification.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "spec",
						Aliases:  []string{"i"},
						Usage:    "Path to the input design specification JSON file.",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Value:   "",
						Usage:   "Path to write the output archive JSON file. Defaults to stdout.",
					},
					&cli.IntFlag{
						Name:  "trials",
						Value: 1,
						Usage: "Number of independent design trials to run.",
					},
					&cli.IntFlag{
						Name:  "archive-size",
						Value: 20,
						Usage: "Maximum number of Pareto-optimal results to retain.",
					},
					&cli.Float64Flag{
						Name:  "fstop",
						Value: 0.01,
						Usage: "Per-leaf structural defect stopping threshold.",
					},
					&cli.Float64Flag{
						Name:  "frefocus",
						Value: 0.01,
						Usage: "Relative defect increase below which a refocus stops promoting off-target complexes.",
					},
					&cli.IntFlag{
						Name:  "max-refocus-rounds",
						Value: 5,
						Usage: "Maximum number of optimize/refocus rounds per trial.",
					},
					&cli.Int64Flag{
						Name:  "seed",
						Value: 1,
						Usage: "Random seed for reproducible trials.",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Value: 0,
						Usage: "Maximum wall-clock time for the whole run, e.g. \"30s\" or \"5m\". Zero means no deadline.",
					},
				},
				Action: func(c *cli.Context) error {
					return designCommand(c)
				},
			},
		},
	}
}
