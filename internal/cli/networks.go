package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/payrail/internal/cli/render"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// NewNetworksCmd creates the networks command
func NewNetworksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List available networks",
		Long: `List the networks configured in payrail.toml [networks] and the
[rpc_endpoints] section of foundry.toml.

This command shows all available networks and attempts to fetch their chain IDs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ListNetworks.Run(cmd.Context(), usecase.ListNetworksParams{})
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.RenderJSON(cmd.OutOrStdout(), result.Networks)
			}
			renderer := render.NewNetworksRenderer(cmd.OutOrStdout(), !color.NoColor)
			return renderer.RenderNetworksList(result)
		},
	}

	return cmd
}
