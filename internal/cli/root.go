package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trebuchet-org/payrail/internal/app"
	"github.com/trebuchet-org/payrail/internal/config"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "payrail",
		Short: "Payout orchestration for EVM chains",
		Long: `Payrail sends batched payouts from a wallet, a delegated batch contract,
an Aragon DAO or a Gnosis Safe, and tracks them until they are final.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)

			appInstance, err := app.InitApp(v)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			if appInstance.Config.Timeout > 0 && !isLongRunning(cmd) {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
				cmd.PostRun = func(cmd *cobra.Command, args []string) {
					cancel()
				}
			}
			cmd.SetContext(ctx)

			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network to use (e.g., mainnet, gnosis)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Overall command timeout (default 5m)")
	rootCmd.PersistentFlags().String("signer", "", "Signer type: local or rpc")
	rootCmd.PersistentFlags().String("signer-url", "", "JSON-RPC endpoint of an external signer")
	rootCmd.PersistentFlags().String("signer-address", "", "Account to use on the external signer")
	rootCmd.PersistentFlags().String("store-driver", "", "Record store: json or sqlite")
	rootCmd.PersistentFlags().String("contracts", "", "Contracts registry file (default contracts.yaml)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "governance",
		Title: "Governance Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands",
	})

	for _, cmd := range []*cobra.Command{NewPayoutCmd(), NewSyncCmd(), NewTransactionsCmd(), NewResumeCmd()} {
		cmd.GroupID = "main"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{NewDAOCmd(), NewSafeCmd()} {
		cmd.GroupID = "governance"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{NewWalletCmd(), NewNetworksCmd()} {
		cmd.GroupID = "management"
		rootCmd.AddCommand(cmd)
	}

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// isLongRunning reports whether cmd manages its own lifetime
func isLongRunning(cmd *cobra.Command) bool {
	watch, err := cmd.Flags().GetBool("watch")
	return err == nil && watch
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}

// requireNetwork fails commands that talk to a chain when none is selected
func requireNetwork(a *app.App) error {
	if a.Config.Network == nil {
		return fmt.Errorf("no network selected: pass --network or set default_network in payrail.toml")
	}
	return nil
}
