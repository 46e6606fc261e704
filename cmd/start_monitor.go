package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cryptopulse/signalpipe/internal/services/monitor"
)

var startMonitorCmd = &cobra.Command{
	Use:   "start-monitor",
	Short: "Start the price monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		f, err := buildFoundation(ctx)
		if err != nil {
			return err
		}
		defer f.Close(ctx)

		k := f.newKernel("monitor", f.mongoDependencyCheck(), f.redisDependencyCheck())
		svc := monitor.New(f.cfg.Monitor, f.cfg.Coins, f.cfg.Retry, f.log, k.Metrics(), f.binanceClient(), f.store, f.bus, f.breakers)

		return k.Run(ctx, svc.Run)
	},
}

func init() {
	RootCmd.AddCommand(startMonitorCmd)
}
