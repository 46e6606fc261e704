package cmd

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cryptopulse/signalpipe/internal/services/scorer"
)

var startScorerCmd = &cobra.Command{
	Use:   "start-scorer",
	Short: "Start the signal scorer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		f, err := buildFoundation(ctx)
		if err != nil {
			return err
		}
		defer f.Close(ctx)

		k := f.newKernel("scorer", f.mongoDependencyCheck(), f.redisDependencyCheck())
		svc := scorer.New(f.cfg.Scorer, btcCoinIn(f.cfg.Coins), f.log, k.Metrics(), f.store, f.bus, "scorer-"+uuid.NewString())

		return k.Run(ctx, svc.Run)
	},
}

// btcCoinIn resolves the BTC symbol from the configured coin list the same
// way the Ingestor and Price Monitor do, so the Scorer's dominance
// guardrails key off a consistent symbol.
func btcCoinIn(coins []string) string {
	for _, c := range coins {
		if c == "BTCUSDT" {
			return c
		}
	}
	if len(coins) > 0 {
		return coins[0]
	}
	return "BTCUSDT"
}

func init() {
	RootCmd.AddCommand(startScorerCmd)
}
