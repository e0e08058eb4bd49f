package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tentens-tech/shared-debrid/internal/application"
	"github.com/tentens-tech/shared-debrid/internal/bootstrap"
	"github.com/tentens-tech/shared-debrid/internal/config"
)

type targetFlags struct {
	token       string
	containerID string
	fileName    string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.token, "token", "", "API token for the storage backend")
	cmd.Flags().StringVar(&f.containerID, "container", "", "Gist id or key namespace holding the lease document")
	cmd.Flags().StringVar(&f.fileName, "file", "", "Lease document file name")
	_ = cmd.MarkFlagRequired("container")
}

func (f *targetFlags) target() application.Target {
	return application.Target{
		Token:       f.token,
		ContainerID: f.containerID,
		FileName:    f.fileName,
	}
}

func NewStatus() *cobra.Command {
	flags := &targetFlags{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current lease",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap.NewApplication(cmd.Context(), config.NewConfig())
			if err != nil {
				return err
			}

			state, err := app.Status(cmd.Context(), flags.target())
			if err != nil {
				return err
			}

			content, err := json.MarshalIndent(struct {
				Holder  string `json:"holder"`
				EndedAt string `json:"endedAt"`
				Active  bool   `json:"active"`
			}{
				Holder:  state.Holder,
				EndedAt: state.Serialize().EndedAt,
				Active:  state.Active(app.Clock.Now()),
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(content))
			return err
		},
	}
	flags.register(cmd)

	return cmd
}
