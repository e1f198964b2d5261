package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/scoring"
)

type scoreOutput struct {
	FarmerID       string `json:"farmer_id,omitempty" yaml:"farmer_id,omitempty"`
	scoring.Result `yaml:",inline"`
}

func scoreCmd() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Score one farmer from a JSON attribute file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Farmer JSON: a bare attribute map or {\"farmer_id\", \"features\"}; - reads stdin",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Tree ensemble artifact; scores deterministically when empty",
			},
		},
		Action: cmdScore,
	}
}

func cmdScore(ctx context.Context, cmd *cli.Command) error {
	farmerID, raw, err := readFarmer(cmd, cmd.String("file"))
	if err != nil {
		return err
	}

	opts := []scoring.Option{scoring.WithLogger(cmdLogger(cmd))}
	if path := cmd.String("model"); path != "" {
		m, err := scoring.LoadModelScorer(path)
		if err != nil {
			return err
		}
		opts = append(opts, scoring.WithModel(m))
	}

	res, err := scoring.NewEngine(opts...).Score(ctx, raw)
	if err != nil {
		return err
	}
	return render(cmd, scoreOutput{FarmerID: farmerID, Result: res})
}

// readFarmer decodes a farmer file. A document with an object-valued
// "features" key is an envelope; anything else is the attribute map itself.
func readFarmer(cmd *cli.Command, path string) (string, features.Raw, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.Root().Reader
		if r == nil {
			r = os.Stdin
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", nil, fmt.Errorf("opening farmer file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var doc map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return "", nil, fmt.Errorf("decoding farmer file: %w", err)
	}
	if doc == nil {
		return "", nil, errors.New("farmer file is empty")
	}

	if bag, ok := doc["features"].(map[string]any); ok {
		id, _ := doc["farmer_id"].(string)
		return id, features.Raw(bag), nil
	}
	return "", features.Raw(doc), nil
}
