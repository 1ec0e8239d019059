package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/trebuchet-org/payrail/internal/cli/render"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// NewSyncCmd creates the sync command
func NewSyncCmd() *cobra.Command {
	var (
		watch    bool
		window   uint64
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile pending payouts with the chain",
		Long: `Check pending payouts on the selected network against their receipts and
scan batch contracts for completed transfers.

With --watch the sweep repeats every --interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireNetwork(app); err != nil {
				return err
			}

			opts := usecase.ReconcileOptions{Window: window}
			renderer := render.NewSyncRenderer(cmd.OutOrStdout())

			if watch {
				if interval <= 0 {
					interval = app.Config.PollInterval
				}
				err := app.ReconcileTransactions.Watch(cmd.Context(), opts, interval, func(result *usecase.ReconcileResult, err error) {
					if app.Config.JSON && err == nil {
						_ = render.RenderJSON(cmd.OutOrStdout(), result)
						return
					}
					renderer.RenderWatchTick(result, err)
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			result, err := app.ReconcileTransactions.Reconcile(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return render.RenderJSON(cmd.OutOrStdout(), result)
			}
			return renderer.RenderSyncResult(result)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep reconciling until interrupted")
	cmd.Flags().Uint64Var(&window, "window", 0, "Blocks scanned back from head for batch transfers")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Time between sweeps in watch mode (default poll interval)")

	return cmd
}
