package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/okian/fasal/internal/domain/loan"
)

func quoteCmd() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "Price a loan for a credit score",
		Flags: []cli.Flag{
			&cli.FloatFlag{
				Name:     "score",
				Usage:    "Credit score between 0 and 100",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "amount",
				Usage:    "Requested amount in rupees",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "crop",
				Usage: "Crop type; sets the crop-cycle tenor",
			},
			&cli.FloatFlag{
				Name:  "min-score",
				Usage: "Eligibility threshold",
				Value: loan.DefaultMinEligibleScore,
			},
			&cli.StringFlag{
				Name:  "base-limit",
				Usage: "Loan ceiling at a multiplier of 1.0",
			},
		},
		Action: cmdQuote,
	}
}

func cmdQuote(_ context.Context, cmd *cli.Command) error {
	amount, err := decimal.NewFromString(cmd.String("amount"))
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", cmd.String("amount"), err)
	}

	opts := []loan.Option{loan.WithMinEligibleScore(cmd.Float("min-score"))}
	if s := cmd.String("base-limit"); s != "" {
		limit, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("invalid base limit %q: %w", s, err)
		}
		opts = append(opts, loan.WithBaseLimit(limit))
	}

	q, err := loan.NewCalculator(opts...).Quote(cmd.Float("score"), amount, cmd.String("crop"))
	if err != nil {
		return err
	}
	return render(cmd, q)
}
