package cli

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/payrail/internal/app"
	"github.com/trebuchet-org/payrail/internal/cli/render"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

type payoutFlags struct {
	file            string
	pay             []string
	method          string
	dao             string
	safe            string
	safeVersion     string
	safeViaContract bool
	currency        string
	token           string
	decimals        int
	noWait          bool
	sel             bool
}

// NewPayoutCmd creates the payout command
func NewPayoutCmd() *cobra.Command {
	var flags payoutFlags

	cmd := &cobra.Command{
		Use:   "payout",
		Short: "Send a batch of payments",
		Long: `Send a batch of payments on the selected network.

Payments are read from a YAML file and/or repeated --pay flags. Without
--method the available payment methods for the network are offered.

Examples:
  payrail payout -n gnosis --file payments.yaml
  payrail payout -n mainnet --pay 0xabc...=1.5 --pay 0xdef...=2 --method delegated-transfer
  payrail payout -n mainnet --file payments.yaml --method aragon --dao mydao
  payrail payout -n mainnet --file payments.yaml --method gnosis --safe 0x123...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireNetwork(app); err != nil {
				return err
			}

			batch, err := buildPayoutBatch(app, &flags)
			if err != nil {
				return err
			}
			if flags.sel && !app.Config.NonInteractive && !app.Config.JSON {
				batch.Payments, err = SelectPayments(batch.Payments, "Select payments to send", flags.decimals)
				if err != nil {
					return err
				}
			}

			if batch.Method == "" {
				methods, err := app.Resolver.AvailableMethods(cmd.Context(), batch)
				if err != nil {
					return err
				}
				batch.Method, err = app.Selector.SelectPaymentMethod(cmd.Context(), methods, "Select payment method")
				if err != nil {
					return err
				}
			}

			return runPayout(cmd, app, batch, &flags)
		},
	}

	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "YAML file with payments")
	cmd.Flags().StringArrayVar(&flags.pay, "pay", nil, "Payment as address=amount (repeatable)")
	cmd.Flags().StringVarP(&flags.method, "method", "m", "", "Payment method: default, delegated-transfer, aragon, gnosis, smart-wallet")
	cmd.Flags().StringVar(&flags.dao, "dao", "", "Aragon DAO name or address")
	cmd.Flags().StringVar(&flags.safe, "safe", "", "Gnosis Safe address")
	cmd.Flags().StringVar(&flags.safeVersion, "safe-version", "", "Safe version when the relay cannot report it")
	cmd.Flags().BoolVar(&flags.safeViaContract, "safe-via-contract", false, "Pay through a delegated batch contract funded by the Safe")
	cmd.Flags().StringVar(&flags.currency, "currency", "", "Currency label stored with the payout")
	cmd.Flags().StringVar(&flags.token, "token", "", "Stable coin symbol for smart wallet payouts")
	cmd.Flags().IntVar(&flags.decimals, "decimals", 18, "Decimals of the amounts given")
	cmd.Flags().BoolVar(&flags.noWait, "no-wait", false, "Return once the transaction is sent")
	cmd.Flags().BoolVar(&flags.sel, "select", false, "Choose which payments to send")

	return cmd
}

func buildPayoutBatch(app *app.App, flags *payoutFlags) (*models.PayoutBatch, error) {
	if flags.decimals < 0 || flags.decimals > 36 {
		return nil, fmt.Errorf("invalid --decimals %d", flags.decimals)
	}

	var payments []models.PaymentRequest
	currency := flags.currency
	if flags.file != "" {
		fromFile, fileCurrency, err := loadPaymentsFile(flags.file, flags.decimals)
		if err != nil {
			return nil, err
		}
		payments = append(payments, fromFile...)
		if currency == "" {
			currency = fileCurrency
		}
	}
	for _, value := range flags.pay {
		payment, err := parsePayFlag(value, flags.decimals)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	if len(payments) == 0 {
		return nil, fmt.Errorf("%w: no payments, pass --file or --pay", domain.ErrInvalidPayment)
	}

	batch := &models.PayoutBatch{
		Payments:    payments,
		Sender:      app.Wallet.Address(),
		ChainID:     app.Config.Network.ChainID,
		Currency:    currency,
		TokenSymbol: flags.token,
		CreatedAt:   time.Now().UTC(),
	}

	if flags.method != "" {
		method, err := models.ParsePaymentMethod(flags.method)
		if err != nil {
			return nil, err
		}
		batch.Method = method
	}
	if flags.dao != "" {
		batch.Aragon = &models.AragonTarget{Name: flags.dao}
	}
	if flags.safe != "" {
		if !common.IsHexAddress(flags.safe) {
			return nil, fmt.Errorf("invalid safe address %q", flags.safe)
		}
		batch.Safe = &models.SafeTarget{
			Address:     common.HexToAddress(flags.safe),
			Version:     flags.safeVersion,
			ViaContract: flags.safeViaContract,
		}
	}
	return batch, nil
}

func runPayout(cmd *cobra.Command, app *app.App, batch *models.PayoutBatch, flags *payoutFlags) error {
	out := cmd.OutOrStdout()
	renderer := render.NewPayoutRenderer(out, flags.decimals)

	if app.Config.JSON {
		result, err := app.MakePayout.Run(cmd.Context(), batch, usecase.PayoutOptions{Wait: !flags.noWait})
		if err != nil {
			return err
		}
		return render.RenderJSON(out, result.Record)
	}

	renderer.RenderBatch(batch)
	fmt.Fprintln(out)

	stop, err := followNotifications(app.Bus, renderer.RenderNotification,
		domain.NotificationPayoutInitiated,
		domain.NotificationPayoutCompleted,
		domain.NotificationPayoutFailed,
	)
	if err != nil {
		return err
	}
	result, err := app.MakePayout.Run(cmd.Context(), batch, usecase.PayoutOptions{Wait: !flags.noWait})
	stop()
	if result != nil {
		renderer.RenderResult(result)
	}
	return err
}
