package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/payrail/internal/cli/render"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// NewTransactionsCmd creates the transactions command with its subcommands
func NewTransactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx", "ls"},
		Short:   "List and inspect payout records",
	}
	cmd.AddCommand(newTransactionsListCmd(), newTransactionsShowCmd())
	// `payrail transactions` behaves like `payrail transactions list`
	list := newTransactionsListCmd()
	cmd.Flags().AddFlagSet(list.Flags())
	cmd.RunE = list.RunE
	return cmd
}

func newTransactionsListCmd() *cobra.Command {
	var (
		from     string
		method   string
		status   string
		all      bool
		decimals int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payout records",
		Long: `List payout records, newest first, grouped by chain.

Only records of the selected network are shown unless --all is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			filter := usecase.TransactionFilter{
				From:   from,
				Status: models.TransactionStatus(status),
			}
			if from != "" && !common.IsHexAddress(from) {
				return fmt.Errorf("invalid --from address %q", from)
			}
			if method != "" {
				filter.PaymentMethod, err = models.ParsePaymentMethod(method)
				if err != nil {
					return err
				}
			}
			if !all && app.Config.Network != nil {
				filter.ChainID = app.Config.Network.ChainID
			}

			result, err := app.ListTransactions.Run(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return render.RenderJSON(cmd.OutOrStdout(), result.Transactions)
			}
			return render.NewTransactionsRenderer(cmd.OutOrStdout(), decimals).RenderTransactionList(result)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Only payouts sent by this address")
	cmd.Flags().StringVar(&method, "method", "", "Only payouts sent with this payment method")
	cmd.Flags().StringVar(&status, "status", "", "Only payouts in this status (sent, confirmed, final, failed)")
	cmd.Flags().BoolVar(&all, "all", false, "Include every chain")
	cmd.Flags().IntVar(&decimals, "decimals", 18, "Decimals used to display values")

	return cmd
}

func newTransactionsShowCmd() *cobra.Command {
	var decimals int

	cmd := &cobra.Command{
		Use:   "show <hash>",
		Short: "Show a payout record with its receipt and events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			details, err := app.ShowTransaction.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return render.RenderJSON(cmd.OutOrStdout(), struct {
					Record    *models.TransactionRecord `json:"record"`
					Inspector *models.InspectorMetadata `json:"inspector,omitempty"`
					Receipt   any                       `json:"receipt,omitempty"`
				}{details.Record, details.Inspector, details.Receipt})
			}
			return render.NewTransactionsRenderer(cmd.OutOrStdout(), decimals).RenderTransactionDetails(details)
		},
	}

	cmd.Flags().IntVar(&decimals, "decimals", 18, "Decimals used to display values")

	return cmd
}
