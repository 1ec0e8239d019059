package cli

import (
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/payrail/internal/cli/render"
)

// NewResumeCmd creates the resume command
func NewResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Show the payout that finished while nobody was watching",
		Long: `Consume the snapshot saved when a payout reached a terminal state without a
visible terminal, and show the current state of its record.

The snapshot is removed once shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ResumePayout.Run(cmd.Context())
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return render.RenderJSON(cmd.OutOrStdout(), result)
			}
			render.NewPayoutRenderer(cmd.OutOrStdout(), 18).RenderResume(result)
			return nil
		},
	}
}
