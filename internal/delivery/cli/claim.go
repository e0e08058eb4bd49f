package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tentens-tech/shared-debrid/internal/application/command/leasemanagement"
	"github.com/tentens-tech/shared-debrid/internal/bootstrap"
	"github.com/tentens-tech/shared-debrid/internal/config"
)

func NewClaim() *cobra.Command {
	flags := &targetFlags{}
	var user string
	var minutes string

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Ask for the shared account on behalf of a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap.NewApplication(cmd.Context(), config.NewConfig())
			if err != nil {
				return err
			}

			var sessionMinutes any
			if cmd.Flags().Changed("minutes") {
				sessionMinutes = minutes
			}

			decision, err := app.Access(cmd.Context(), flags.target(), user, sessionMinutes)
			if err != nil {
				return err
			}

			endedAt := decision.EndedAt.UTC().Format(leasemanagement.ISOLayout)
			if decision.Granted {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "granted: %v holds the account until %v\n", decision.Holder, endedAt)
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "denied: %v holds the account until %v\n", decision.Holder, endedAt)
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&user, "user", "", "Name of the requesting user")
	cmd.Flags().StringVar(&minutes, "minutes", "", "Session length in minutes")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
