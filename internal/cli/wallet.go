package cli

import (
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/payrail/internal/cli/render"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// NewWalletCmd creates the wallet command
func NewWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the sender's smart wallet",
	}
	cmd.AddCommand(newWalletCreateCmd())
	return cmd
}

func newWalletCreateCmd() *cobra.Command {
	var noWait bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Deploy a smart wallet for the configured signer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireNetwork(app); err != nil {
				return err
			}

			opts := usecase.CreateWalletOptions{ChainID: app.Config.Network.ChainID, Wait: !noWait}
			out := cmd.OutOrStdout()
			renderer := render.NewPayoutRenderer(out, 0)

			if app.Config.JSON {
				result, err := app.CreateSmartWallet.Run(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return render.RenderJSON(out, result)
			}

			stop, err := followNotifications(app.Bus, renderer.RenderNotification,
				domain.NotificationCreateWalletInitiated,
				domain.NotificationCreateWalletCompleted,
				domain.NotificationCreateWalletFailed,
			)
			if err != nil {
				return err
			}
			result, err := app.CreateSmartWallet.Run(cmd.Context(), opts)
			stop()
			if err != nil {
				return err
			}
			renderer.RenderWalletResult(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return once the deployment is sent")

	return cmd
}
