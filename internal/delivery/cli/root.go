package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tentens-tech/shared-debrid/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "shared-debrid",
	Short: "shared-debrid addon server",
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		config.NewConfig().ConfigureLogger()
	},
}

func Execute(ctx context.Context) error {
	initCommands(rootCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return err
	}

	return nil
}

func initCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(
		NewServe(),
		NewStatus(),
		NewClaim(),
	)
}
