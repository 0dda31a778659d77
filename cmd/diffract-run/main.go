// Package main provides the Diffract scan processing runner.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/stormlab/diffract/pkg/log"
)

const defaultWorkers = 4

func main() {
	logger := log.WithModule("run")

	command := &cli.Command{
		Name:                  "diffract-run",
		Usage:                 "Process a scan through a workflow tree",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "workflow-file",
				Aliases: []string{"f"},
				Usage:   "Path to a workflow document JSON file",
			},
			&cli.StringFlag{
				Name:  "workflow",
				Usage: "Name of a stored workflow (requires --database-url)",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for workflow persistence",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "scan-file",
				Aliases:  []string{"s"},
				Usage:    "Path to a scan geometry JSON file",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "n-workers",
				Aliases: []string{"n"},
				Usage:   "Number of processing workers",
				Value:   defaultWorkers,
				Sources: cli.EnvVars("N_WORKERS"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:  "schedule",
				Usage: "Cron expression for repeated runs, e.g. for re-processing live scans",
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for runs",
				Sources: cli.EnvVars("TRACING"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Path to write the result arrays to as JSON",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			cfg := runConfig{
				workflowFile: command.String("workflow-file"),
				workflowName: command.String("workflow"),
				databaseURL:  command.String("database-url"),
				scanFile:     command.String("scan-file"),
				nWorkers:     command.Int("n-workers"),
				eventBus:     command.String("event-bus"),
				schedule:     command.String("schedule"),
				tracing:      command.Bool("tracing"),
				output:       command.String("output"),
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, logger, cfg)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("Run failed", "error", err)
		os.Exit(1)
	}
}
