package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/payrail/internal/cli/render"
)

// NewDAOCmd creates the dao command
func NewDAOCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dao",
		Short: "Inspect Aragon DAOs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "info <name|address>",
		Short: "Resolve a DAO, list its apps and check the signer can forward",
		Long: `Resolve an Aragon DAO by name (<name>.aragonid.eth) or address, list the
Finance, Vault, Voting and Token Manager apps it has installed, and check
whether the configured signer may create withdrawal votes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireNetwork(app); err != nil {
				return err
			}

			info, err := app.ShowDAOInfo.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return render.RenderJSON(cmd.OutOrStdout(), info)
			}
			return render.NewGovernanceRenderer(cmd.OutOrStdout()).RenderDAOInfo(info)
		},
	})
	return cmd
}

// NewSafeCmd creates the safe command
func NewSafeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "safe",
		Short: "Inspect Gnosis Safes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "info <address>",
		Short: "Show a Safe's version, owners and queued transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireNetwork(app); err != nil {
				return err
			}
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid safe address %q", args[0])
			}

			details, err := app.ShowSafeInfo.Run(cmd.Context(), common.HexToAddress(args[0]))
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return render.RenderJSON(cmd.OutOrStdout(), details)
			}
			return render.NewGovernanceRenderer(cmd.OutOrStdout()).RenderSafeInfo(details)
		},
	})
	return cmd
}
