package render

import (
	"fmt"
	"io"
	"time"

	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// SyncRenderer renders reconciliation sweeps
type SyncRenderer struct {
	out io.Writer
}

// NewSyncRenderer creates a new sync renderer
func NewSyncRenderer(out io.Writer) *SyncRenderer {
	return &SyncRenderer{out: out}
}

// RenderSyncResult prints the counters of one sweep
func (r *SyncRenderer) RenderSyncResult(result *usecase.ReconcileResult) error {
	fmt.Fprintf(r.out, "%s %s\n", sectionStyle.Sprint("Sync"), gray.Sprintf("%s (%d)", domain.ChainName(result.ChainID), result.ChainID))

	if result.DirectChecked == 0 && result.DelegatedChecked == 0 {
		fmt.Fprintln(r.out, gray.Sprint("  No pending payouts"))
	} else {
		fmt.Fprintf(r.out, "  Checked %d pending transaction(s)\n", result.DirectChecked)
		if result.Confirmed > 0 {
			fmt.Fprintf(r.out, "    %s %d confirmed\n", green.Sprint("✓"), result.Confirmed)
		}
		if result.Failed > 0 {
			fmt.Fprintf(r.out, "    %s %d failed\n", red.Sprint("✗"), result.Failed)
		}
		if result.StillPending > 0 {
			fmt.Fprintf(r.out, "    %s %d still pending\n", yellow.Sprint("…"), result.StillPending)
		}
		if result.DelegatedChecked > 0 {
			fmt.Fprintf(r.out, "  Scanned %d batch contract(s), %d paid out\n", result.DelegatedChecked, result.DelegatedConfirmed)
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("%d error(s) during sync:", len(result.Errors))))
		for _, e := range result.Errors {
			fmt.Fprintf(r.out, "  - %s\n", e)
		}
	}

	if result.Updated() > 0 {
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Updated %d record(s)", result.Updated())))
	}
	return nil
}

// RenderWatchTick prints a compact line per sweep in watch mode
func (r *SyncRenderer) RenderWatchTick(result *usecase.ReconcileResult, err error) {
	stamp := gray.Sprint(time.Now().Format("15:04:05"))
	if err != nil {
		fmt.Fprintf(r.out, "%s %s\n", stamp, FormatError(err.Error()))
		return
	}
	fmt.Fprintf(r.out, "%s checked %d, confirmed %d, failed %d, batches paid %d",
		stamp, result.DirectChecked+result.DelegatedChecked, result.Confirmed, result.Failed, result.DelegatedConfirmed)
	if len(result.Errors) > 0 {
		fmt.Fprint(r.out, yellow.Sprintf(", %d error(s)", len(result.Errors)))
	}
	fmt.Fprintln(r.out)
}
