package render

import (
	"fmt"
	"io"
	"math/big"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// TransactionsRenderer renders payout history
type TransactionsRenderer struct {
	out      io.Writer
	decimals int
}

// NewTransactionsRenderer creates a new transactions renderer. Values are
// shown with decimals places; zero prints base units.
func NewTransactionsRenderer(out io.Writer, decimals int) *TransactionsRenderer {
	return &TransactionsRenderer{out: out, decimals: decimals}
}

// RenderTransactionList renders records grouped by chain
func (r *TransactionsRenderer) RenderTransactionList(result *usecase.TransactionListResult) error {
	if len(result.Transactions) == 0 {
		fmt.Fprintln(r.out, "No payouts found")
		return nil
	}

	byChain := lo.GroupBy(result.Transactions, func(t *models.TransactionRecord) uint64 { return t.ChainID })
	chainIDs := lo.Keys(byChain)
	slices.Sort(chainIDs)

	for i, chainID := range chainIDs {
		if i > 0 {
			fmt.Fprintln(r.out)
		}
		fmt.Fprintln(r.out, chainHeader.Sprintf(" ⛓ %-10s %-28s ", "chain:", fmt.Sprintf("%s (%d)", domain.ChainName(chainID), chainID)))

		t := newTable(r.out)
		t.AppendHeader(table.Row{"Hash", "Method", "Status", "Value", "Recipients", "Target", "Paid"})
		for _, record := range byChain[chainID] {
			t.AppendRow(table.Row{
				addressStyle.Sprint(ShortHash(record.Hash)),
				record.PaymentMethod.Canonical().Label(),
				r.statusCell(record),
				r.value(record),
				len(record.Recipients),
				gray.Sprint(lo.CoalesceOrEmpty(ShortHash(record.Target()), "-")),
				gray.Sprint(record.PaidAt.Local().Format("2006-01-02 15:04")),
			})
		}
		t.Render()
	}

	fmt.Fprintln(r.out)
	summary := result.Summary
	fmt.Fprintf(r.out, "%s %d payouts, %d pending", bold.Sprint("Total:"), summary.Total, summary.Pending)
	if failed := summary.ByStatus[models.TransactionStatusFailed]; failed > 0 {
		fmt.Fprintf(r.out, ", %s", red.Sprintf("%d failed", failed))
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *TransactionsRenderer) statusCell(record *models.TransactionRecord) string {
	status := StatusString(record.Status)
	if record.PendingDelegated() {
		status += yellow.Sprint(" (awaiting batch)")
	}
	if record.Error != "" && record.Status != models.TransactionStatusFailed {
		status += red.Sprint(" !")
	}
	return status
}

func (r *TransactionsRenderer) value(record *models.TransactionRecord) string {
	value, ok := new(big.Int).SetString(record.Value, 10)
	if !ok {
		return record.Value
	}
	out := FormatAmount(value, r.decimals)
	if record.Currency != "" {
		out += " " + record.Currency
	}
	return out
}

// RenderTransactionDetails renders a single record with its chain evidence
func (r *TransactionsRenderer) RenderTransactionDetails(details *usecase.TransactionDetails) error {
	record := details.Record

	fmt.Fprintln(r.out, sectionStyle.Sprint("Payout ")+addressStyle.Sprint(record.Hash))
	fmt.Fprintln(r.out, strings.Repeat("─", 72))

	r.field("Chain", fmt.Sprintf("%s (%d)", domain.ChainName(record.ChainID), record.ChainID))
	r.field("Method", record.PaymentMethod.Canonical().Label())
	r.field("Status", StatusString(record.Status))
	if record.Confirmations > 0 {
		r.field("Confirmations", fmt.Sprint(record.Confirmations))
	}
	r.field("From", record.From)
	if record.To != "" {
		r.field("To", record.To)
	}
	r.field("Value", r.value(record))
	r.field("Paid at", record.PaidAt.Local().Format("2006-01-02 15:04:05"))
	if record.Error != "" {
		r.field("Error", red.Sprint(record.Error))
	}

	if record.Delegated {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, sectionStyle.Sprint("Delegated"))
		r.field("Target", lo.CoalesceOrEmpty(record.Target(), gray.Sprint("not deployed")))
		r.field("Completed", yesNo(record.DelegatedConfirmed))
		if record.DelegatedHash != "" {
			r.field("Batch tx", record.DelegatedHash)
		}
	}

	if record.Aragon != nil {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, sectionStyle.Sprint("Aragon"))
		r.field("DAO", lo.CoalesceOrEmpty(record.Aragon.DaoName, record.Aragon.DaoAddress))
		r.field("Address", record.Aragon.DaoAddress)
		if record.AragonHash != "" {
			r.field("Withdrawal", record.AragonHash)
			r.field("Confirmed", yesNo(lo.FromPtr(record.AragonConfirmed)))
		}
	}

	if record.Gnosis != nil {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, sectionStyle.Sprint("Gnosis Safe"))
		r.field("Safe", record.Gnosis.SafeAddress)
		if record.Gnosis.Version != "" {
			r.field("Version", record.Gnosis.Version)
		}
		r.field("Proposed", yesNo(record.GnosisInitiated))
		if record.GnosisMultiSend {
			r.field("MultiSend", "yes")
		}
	}

	if len(record.Recipients) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, sectionStyle.Sprint("Recipients"))
		t := newTable(r.out)
		t.AppendHeader(table.Row{"#", "Address", "Name", "Value"})
		names := inspectorNames(details.Inspector)
		for i, recipient := range record.Recipients {
			value := ""
			if i < len(record.Values) {
				value = record.Values[i]
				if v, ok := new(big.Int).SetString(value, 10); ok {
					value = FormatAmount(v, r.decimals)
				}
			}
			t.AppendRow(table.Row{i + 1, recipient, names[strings.ToLower(recipient)], value})
		}
		t.Render()
	}

	r.renderChain(details)
	return nil
}

func (r *TransactionsRenderer) renderChain(details *usecase.TransactionDetails) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, sectionStyle.Sprint("On chain"))
	if details.ChainError != nil {
		fmt.Fprintln(r.out, FormatWarning("receipt unavailable: "+details.ChainError.Error()))
		return
	}
	if details.Receipt == nil {
		fmt.Fprintln(r.out, gray.Sprint("  pending, no receipt yet"))
		return
	}

	receipt := details.Receipt
	status := green.Sprint("success")
	if receipt.Status == types.ReceiptStatusFailed {
		status = red.Sprint("reverted")
	}
	r.field("Receipt", status)
	if receipt.BlockNumber != nil {
		r.field("Block", receipt.BlockNumber.String())
	}
	r.field("Gas used", fmt.Sprint(receipt.GasUsed))
	if receipt.ContractAddress != (common.Address{}) {
		r.field("Deployed", receipt.ContractAddress.Hex())
	}
	for _, event := range details.Events {
		fmt.Fprintf(r.out, "  %s %s\n", cyan.Sprint("↳"), event.String())
	}
}

func (r *TransactionsRenderer) field(label, value string) {
	fmt.Fprintf(r.out, "  %-14s %s\n", gray.Sprint(label+":"), value)
}

func inspectorNames(metadata *models.InspectorMetadata) map[string]string {
	names := make(map[string]string)
	if metadata == nil {
		return names
	}
	for _, p := range metadata.Payments {
		if p.RecipientName != "" {
			names[strings.ToLower(p.RecipientAddress)] = p.RecipientName
		}
	}
	return names
}

func yesNo(v bool) string {
	if v {
		return green.Sprint("yes")
	}
	return yellow.Sprint("no")
}
