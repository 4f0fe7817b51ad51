package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "tpdiff"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		cli: &cli.App{
			Name:      AppName,
			Usage:     "Differential test harness for trace_processor_shell",
			ArgsUsage: "<trace_processor>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "test-type",
					Usage: "Restrict the run to one kind of test (all, queries or metrics)",
					Value: "all",
				},
				&cli.StringFlag{
					Name:  "trace-descriptor",
					Usage: "Path to the trace protobuf descriptor (default: discovered next to the binary)",
				},
				&cli.StringFlag{
					Name:  "metrics-descriptor",
					Usage: "Path to the metrics protobuf descriptor set (default: discovered next to the binary)",
				},
				&cli.StringFlag{
					Name:  "perf-file",
					Usage: "Write the aggregate perf report to this file (fully passing runs only)",
				},
				&cli.StringFlag{
					Name:  "query-metric-filter",
					Usage: "Regex filter on query file names and metric names",
					Value: ".*",
				},
				&cli.StringFlag{
					Name:  "trace-filter",
					Usage: "Regex filter on trace file names",
					Value: ".*",
				},
				&cli.BoolFlag{
					Name:  "keep-input",
					Usage: "Keep generated input traces for debugging",
				},
				&cli.BoolFlag{
					Name:  "rebase",
					Usage: "Update the expected output files with the actual result",
				},
				&cli.BoolFlag{
					Name:  "no-colors",
					Usage: "Print without coloring",
				},
				&cli.StringFlag{
					Name:  "root-dir",
					Usage: "Suite root holding test/data and test/trace_processor (default: working directory)",
				},
				&cli.StringFlag{
					Name:  "serializer",
					Usage: "Override the trace serializer command",
				},
				&cli.IntFlag{
					Name:    "jobs",
					Aliases: []string{"j"},
					Usage:   "Number of parallel workers (default: one per CPU)",
				},
				&cli.StringFlag{
					Name:  "pprof-file",
					Usage: "Write per-test timings as a pprof profile to this file",
				},
				&cli.IntFlag{
					Name:  "slowest",
					Usage: "Print a table of the N slowest tests",
				},
				&cli.StringFlag{
					Name:  "log-file",
					Usage: "Mirror progress output, ANSI stripped, to this file",
				},
				&cli.StringFlag{
					Name:  "config",
					Usage: "Load flag defaults from a YAML config file",
				},
				&cli.BoolFlag{
					Name:  "no-history",
					Usage: "Skip recording the run under .tpdiff/history",
				},
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}
	app.cli.Action = app.run
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:  "history",
		Usage: "Inspect recorded test runs",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List previous test runs",
				Action: app.historyList,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Limit number of results (default: 20)",
						Value:   20,
					},
					&cli.StringFlag{
						Name:  "root-dir",
						Usage: "Suite root the runs were recorded under (default: working directory)",
					},
				},
			},
			{
				Name:      "show",
				Usage:     "Show one recorded test run in detail",
				ArgsUsage: "[index or ID prefix]",
				Action:    app.historyShow,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "root-dir",
						Usage: "Suite root the runs were recorded under (default: working directory)",
					},
					&cli.IntFlag{
						Name:  "slowest",
						Usage: "Number of slowest tests to list (default: 10)",
						Value: 10,
					},
				},
			},
		},
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}
