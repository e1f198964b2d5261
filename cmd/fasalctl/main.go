// Command fasalctl scores farmers, prices loans and checks model artifacts
// offline, and load tests a running scoring service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/okian/fasal/pkg/logger"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"

	formatFlagName   = "format"
	logLevelFlagName = "log-level"
)

var version = "v0.0.1-default"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		os.Stderr.WriteString("fatal error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            "fasalctl",
		Version:         version,
		Usage:           "Farmer credit scoring and loan quotes from the command line",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  formatFlagName,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
			&cli.StringFlag{
				Name:  logLevelFlagName,
				Usage: "Log level [debug, info, warn, error]",
				Value: "warn",
			},
		},
		Commands: []*cli.Command{
			scoreCmd(),
			quoteCmd(),
			modelCmd(),
			loadtestCmd(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			switch f := cmd.String(formatFlagName); f {
			case formatJSON, formatYAML, "yml":
			default:
				return ctx, fmt.Errorf("unknown output format %q", f)
			}
			if err := logger.SetLevelString(cmd.String(logLevelFlagName)); err != nil {
				return ctx, err
			}
			return ctx, nil
		},
	}
}

// cmdLogger logs to the root command's error writer so that it never mixes
// with rendered output.
func cmdLogger(cmd *cli.Command) logger.Logger {
	var w io.Writer = os.Stderr
	if ew := cmd.Root().ErrWriter; ew != nil {
		w = ew
	}
	l, err := logger.New(w, logger.FormatText)
	if err != nil {
		return logger.Discard()
	}
	return l.Named(cmd.Name)
}

// render writes v to the root command's writer in the selected format.
func render(cmd *cli.Command, v any) error {
	var w io.Writer = os.Stdout
	if rw := cmd.Root().Writer; rw != nil {
		w = rw
	}
	switch cmd.String(formatFlagName) {
	case formatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	}
}
