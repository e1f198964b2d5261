package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/okian/fasal/internal/loadtest"
)

func loadtestCmd() *cli.Command {
	return &cli.Command{
		Name:  "loadtest",
		Usage: "Submit synthetic farmers to a running service and verify the results",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Base URL of the service", Value: loadtest.DefaultBaseURL},
			&cli.IntFlag{Name: "farmers", Usage: "Number of farmers to generate", Value: loadtest.DefaultFarmers},
			&cli.IntFlag{Name: "batch-size", Usage: "Items per batch job", Value: loadtest.DefaultBatchSize},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent HTTP workers (default: CPU cores)"},
			&cli.DurationFlag{Name: "timeout", Usage: "HTTP request timeout", Value: loadtest.DefaultTimeout},
			&cli.DurationFlag{Name: "wait", Usage: "How long to wait for jobs to complete", Value: loadtest.DefaultWaitTimeout},
			&cli.IntFlag{Name: "verify", Usage: "Farmers whose history is checked", Value: loadtest.DefaultVerifySample},
			&cli.Uint64Flag{Name: "seed", Usage: "Seed for synthetic attributes", Value: 1},
			&cli.BoolFlag{Name: "verbose", Usage: "Log every batch"},
		},
		Action: cmdLoadtest,
	}
}

func cmdLoadtest(ctx context.Context, cmd *cli.Command) error {
	stats, err := loadtest.Run(ctx, loadtest.Config{
		BaseURL:      cmd.String("url"),
		Farmers:      cmd.Int("farmers"),
		BatchSize:    cmd.Int("batch-size"),
		Workers:      cmd.Int("workers"),
		Timeout:      cmd.Duration("timeout"),
		WaitTimeout:  cmd.Duration("wait"),
		VerifySample: cmd.Int("verify"),
		Seed:         cmd.Uint64("seed"),
		Verbose:      cmd.Bool("verbose"),
		Logger:       cmdLogger(cmd),
	})
	if stats != nil {
		if rerr := render(cmd, stats); rerr != nil {
			return errors.Join(err, rerr)
		}
	}
	return err
}
