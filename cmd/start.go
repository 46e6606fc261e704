package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cryptopulse/signalpipe/internal/services/ingestor"
)

var startIngestorCmd = &cobra.Command{
	Use:   "start-ingestor",
	Short: "Start the market data ingestor",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		f, err := buildFoundation(ctx)
		if err != nil {
			return err
		}
		defer f.Close(ctx)

		k := f.newKernel("ingestor", f.mongoDependencyCheck(), f.redisDependencyCheck())
		svc := ingestor.New(*f.cfg, f.log, k.Metrics(), f.binanceClient(), f.cmcClient(), f.store, f.bus, f.breakers)

		return k.Run(ctx, svc.Run)
	},
}

func init() {
	RootCmd.AddCommand(startIngestorCmd)
}
