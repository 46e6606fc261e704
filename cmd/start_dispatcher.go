package cmd

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cryptopulse/signalpipe/internal/services/dispatcher"
)

var startDispatcherCmd = &cobra.Command{
	Use:   "start-dispatcher",
	Short: "Start the notification dispatcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		f, err := buildFoundation(ctx)
		if err != nil {
			return err
		}
		defer f.Close(ctx)

		bot, err := f.chatBot()
		if err != nil {
			return err
		}
		defer bot.Stop()

		k := f.newKernel("dispatcher", f.mongoDependencyCheck(), f.redisDependencyCheck())
		svc := dispatcher.New(f.cfg.Dispatcher, f.cfg.Telegram.PriceChatID, f.cfg.Telegram.SignalChatID, f.cfg.Retry,
			f.log, k.Metrics(), bot, f.store, f.bus, f.breakers, "dispatcher-"+uuid.NewString())

		return k.Run(ctx, svc.Run)
	},
}

func init() {
	RootCmd.AddCommand(startDispatcherCmd)
}
