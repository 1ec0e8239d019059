package render

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/trebuchet-org/payrail/internal/usecase"
)

// GovernanceRenderer renders DAO and Safe lookups
type GovernanceRenderer struct {
	out io.Writer
}

// NewGovernanceRenderer creates a new governance renderer
func NewGovernanceRenderer(out io.Writer) *GovernanceRenderer {
	return &GovernanceRenderer{out: out}
}

// RenderDAOInfo prints a resolved DAO and its installed apps
func (r *GovernanceRenderer) RenderDAOInfo(info *usecase.DAOInfo) error {
	fmt.Fprintf(r.out, "%s %s\n", sectionStyle.Sprint("DAO"), bold.Sprint(info.DAO.Name))
	fmt.Fprintf(r.out, "  %-14s %s\n", gray.Sprint("Address:"), info.DAO.Address.Hex())

	names := slices.Sorted(maps.Keys(info.DAO.Apps))
	if len(names) > 0 {
		t := newTable(r.out)
		t.AppendHeader(table.Row{"App", "Address"})
		for _, name := range names {
			t.AppendRow(table.Row{Title(name), info.DAO.Apps[name].Hex()})
		}
		t.Render()
	}

	fmt.Fprintln(r.out)
	if info.CanForward {
		fmt.Fprintln(r.out, FormatSuccess(info.Sender+" can create withdrawal votes"))
	} else {
		fmt.Fprintln(r.out, FormatWarning(info.Sender+" holds no voting tokens and cannot forward"))
	}
	return nil
}

// RenderSafeInfo prints a Safe's configuration and queued transactions
func (r *GovernanceRenderer) RenderSafeInfo(details *usecase.SafeDetails) error {
	info := details.Info
	fmt.Fprintf(r.out, "%s %s %s\n", sectionStyle.Sprint("Safe"), bold.Sprint(info.Address), gray.Sprintf("(from %s)", details.Source))
	fmt.Fprintf(r.out, "  %-14s %s\n", gray.Sprint("Version:"), info.Version)
	fmt.Fprintf(r.out, "  %-14s %s\n", gray.Sprint("Domain:"), details.Shape.String())
	fmt.Fprintf(r.out, "  %-14s %d\n", gray.Sprint("Nonce:"), info.Nonce)
	fmt.Fprintf(r.out, "  %-14s %d of %d\n", gray.Sprint("Threshold:"), info.Threshold, len(info.Owners))
	for _, owner := range info.Owners {
		fmt.Fprintf(r.out, "    %s %s\n", gray.Sprint("•"), owner)
	}

	if details.RelayError != nil {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, FormatWarning("transaction service unavailable: "+details.RelayError.Error()))
		return nil
	}
	if len(details.Pending) == 0 {
		fmt.Fprintln(r.out, gray.Sprint("  No queued transactions"))
		return nil
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, sectionStyle.Sprint("Queued"))
	t := newTable(r.out)
	t.AppendHeader(table.Row{"Nonce", "Safe tx", "To", "Signatures", "Origin"})
	for _, tx := range details.Pending {
		t.AppendRow(table.Row{
			tx.Nonce,
			ShortHash(tx.SafeTxHash),
			ShortHash(tx.To),
			fmt.Sprintf("%d/%d", len(tx.Confirmations), tx.ConfirmationsRequired),
			gray.Sprint(tx.Origin),
		})
	}
	t.Render()
	return nil
}
