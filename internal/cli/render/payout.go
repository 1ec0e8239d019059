package render

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// PayoutRenderer renders payout results and lifecycle notifications
type PayoutRenderer struct {
	out      io.Writer
	decimals int
}

// NewPayoutRenderer creates a new payout renderer
func NewPayoutRenderer(out io.Writer, decimals int) *PayoutRenderer {
	return &PayoutRenderer{out: out, decimals: decimals}
}

// RenderBatch previews the payments before they are sent
func (r *PayoutRenderer) RenderBatch(batch *models.PayoutBatch) {
	fmt.Fprintf(r.out, "%s %d payment(s) on %s\n",
		sectionStyle.Sprint("Payout:"), len(batch.Payments), domain.ChainName(batch.ChainID))

	t := newTable(r.out)
	t.AppendHeader(table.Row{"#", "Recipient", "Name", "Amount", "Details"})
	for i, p := range batch.Payments {
		t.AppendRow(table.Row{i + 1, p.Recipient.Hex(), p.Name, FormatAmount(p.Amount, r.decimals), gray.Sprint(p.Details)})
	}
	t.AppendFooter(table.Row{"", "", "Total", FormatAmount(batch.Total(), r.decimals), ""})
	t.Render()
}

// RenderNotification prints a single bus event
func (r *PayoutRenderer) RenderNotification(event usecase.Event) {
	switch payload := event.Payload.(type) {
	case domain.PayoutEvent:
		switch event.Name {
		case domain.NotificationPayoutInitiated:
			fmt.Fprintf(r.out, "%s Sent %s payout %s\n", cyan.Sprint("→"), payload.PaymentMethod, addressStyle.Sprint(payload.Hash))
		case domain.NotificationPayoutCompleted:
			fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Payout %s confirmed (%d confirmations)", ShortHash(payload.Hash), payload.Confirmations)))
			if payload.DelegatedAddress != "" {
				fmt.Fprintf(r.out, "   batch contract: %s\n", payload.DelegatedAddress)
			}
		case domain.NotificationPayoutFailed:
			fmt.Fprintln(r.out, FormatError(fmt.Sprintf("payout %s failed: %s", ShortHash(payload.Hash), payload.Message)))
		}
	case domain.WalletEvent:
		switch event.Name {
		case domain.NotificationCreateWalletInitiated:
			fmt.Fprintf(r.out, "%s Wallet deployment sent %s\n", cyan.Sprint("→"), addressStyle.Sprint(payload.Hash))
		case domain.NotificationCreateWalletCompleted:
			fmt.Fprintln(r.out, FormatSuccess("Smart wallet deployed at "+payload.Address))
		case domain.NotificationCreateWalletFailed:
			fmt.Fprintln(r.out, FormatError(payload.Message))
		}
	}
}

// RenderResult prints the outcome of a payout
func (r *PayoutRenderer) RenderResult(result *usecase.PayoutResult) {
	fmt.Fprintln(r.out)
	if result.Record != nil {
		record := result.Record
		fmt.Fprintf(r.out, "%s %s\n", bold.Sprint("Method:"), record.PaymentMethod.Canonical().Label())
		fmt.Fprintf(r.out, "%s %s\n", bold.Sprint("Hash:"), record.Hash)
		fmt.Fprintf(r.out, "%s %s\n", bold.Sprint("Status:"), StatusString(record.Status))
		if target := record.Target(); target != "" {
			fmt.Fprintf(r.out, "%s %s\n", bold.Sprint("Batch:"), target)
		}
	}

	if result.DAO != nil {
		fmt.Fprintf(r.out, "%s %s (%s)\n", bold.Sprint("DAO:"), result.DAO.Name, result.DAO.Address.Hex())
		if result.FollowUpHash != (common.Hash{}) {
			fmt.Fprintf(r.out, "%s %s\n", bold.Sprint("Withdrawal:"), result.FollowUpHash.Hex())
		}
	}

	if s := result.Submission; s != nil {
		fmt.Fprintf(r.out, "%s %s nonce %s\n", bold.Sprint("Safe:"), s.Safe.Hex(), s.Nonce.String())
		fmt.Fprintf(r.out, "%s %s\n", bold.Sprint("Safe tx:"), s.ContractTransactionHash.Hex())
		fmt.Fprintf(r.out, "%s %s via %s\n", bold.Sprint("Proposed by:"), s.Sender.Hex(), s.SignMethod)
		fmt.Fprintln(r.out, gray.Sprint("Collect the remaining signatures in the Safe app to execute the payout."))
	}
}

// RenderResume prints a consumed snapshot
func (r *PayoutRenderer) RenderResume(result *usecase.ResumeResult) {
	if result == nil {
		fmt.Fprintln(r.out, "Nothing to resume")
		return
	}
	state := result.Snapshot.State
	fmt.Fprintf(r.out, "%s %s / %s, saved %s\n",
		sectionStyle.Sprint("Resumed:"), result.Snapshot.Screen, result.Snapshot.Dialog,
		result.Snapshot.CreatedAt.Local().Format("2006-01-02 15:04:05"))

	switch {
	case state.Error != "":
		fmt.Fprintln(r.out, FormatError(state.Error))
	case state.Paid:
		fmt.Fprintln(r.out, FormatSuccess("Payout "+ShortHash(state.Hash)+" was paid"))
	case state.Sent:
		fmt.Fprintln(r.out, FormatWarning("Payout "+ShortHash(state.Hash)+" was sent but not yet final"))
	case state.Processing:
		fmt.Fprintln(r.out, FormatWarning("Payout was still being prepared"))
	}
	if state.DelegatedAddress != "" {
		fmt.Fprintf(r.out, "  batch contract: %s\n", state.DelegatedAddress)
	}
	if result.Record != nil {
		fmt.Fprintf(r.out, "  current status: %s\n", StatusString(result.Record.Status))
	}
}

// RenderWalletResult prints the outcome of a wallet deployment
func (r *PayoutRenderer) RenderWalletResult(result *usecase.CreateWalletResult) {
	fmt.Fprintf(r.out, "%s %s\n", bold.Sprint("Deployment:"), result.Hash.Hex())
	if result.Wallet != nil {
		fmt.Fprintf(r.out, "%s %s\n", bold.Sprint("Wallet:"), result.Wallet.Address)
		fmt.Fprintf(r.out, "%s %s\n", bold.Sprint("Owner:"), result.Wallet.Owner)
	} else {
		fmt.Fprintln(r.out, gray.Sprint("Not waiting for the deployment. Run again with --wait to record the wallet."))
	}
}
