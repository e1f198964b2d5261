package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/okian/fasal/internal/domain/ensemble"
	"github.com/okian/fasal/internal/domain/scoring"
)

type modelSummary struct {
	Path          string               `json:"path" yaml:"path"`
	Format        string               `json:"format" yaml:"format"`
	Trees         int                  `json:"trees" yaml:"trees"`
	MaxDepth      int                  `json:"max_depth" yaml:"max_depth"`
	Aggregation   ensemble.Aggregation `json:"aggregation" yaml:"aggregation"`
	ExpectedValue float64              `json:"expected_value" yaml:"expected_value"`
	Features      []string             `json:"features" yaml:"features"`
}

func modelCmd() *cli.Command {
	return &cli.Command{
		Name:  "model",
		Usage: "Inspect tree ensemble artifacts",
		Commands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Check that an artifact loads and matches the feature order",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Artifact path",
						Required: true,
					},
				},
				Action: cmdModelValidate,
			},
		},
	}
}

func cmdModelValidate(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("file")
	m, err := scoring.LoadModelScorer(path)
	if err != nil {
		return err
	}
	ens := m.Ensemble()
	return render(cmd, modelSummary{
		Path:          path,
		Format:        ensemble.Format,
		Trees:         ens.NumTrees(),
		MaxDepth:      ens.MaxDepth(),
		Aggregation:   ens.Aggregation(),
		ExpectedValue: ens.ExpectedValue(),
		Features:      ens.FeatureNames(),
	})
}
