package cmd

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cryptopulse/signalpipe/internal/services/analyzer"
)

var startAnalyzerCmd = &cobra.Command{
	Use:   "start-analyzer",
	Short: "Start the multi-theory analyzer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		f, err := buildFoundation(ctx)
		if err != nil {
			return err
		}
		defer f.Close(ctx)

		k := f.newKernel("analyzer", f.mongoDependencyCheck(), f.redisDependencyCheck())
		svc := analyzer.New(f.cfg.Analyzer, f.log, k.Metrics(), f.store, f.bus, "analyzer-"+uuid.NewString())

		return k.Run(ctx, svc.Run)
	},
}

func init() {
	RootCmd.AddCommand(startAnalyzerCmd)
}
