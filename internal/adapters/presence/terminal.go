package presence

import (
	"os"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// TerminalPresence reports the CLI as visible while stdout is an interactive
// terminal. JSON and non-interactive runs count as unattended.
type TerminalPresence struct {
	attended bool
	detached atomic.Bool
}

// NewTerminalPresence creates a new TerminalPresence
func NewTerminalPresence(cfg *config.RuntimeConfig) *TerminalPresence {
	return newTerminalPresence(isTerminal(os.Stdout.Fd()) && !cfg.NonInteractive && !cfg.JSON)
}

func newTerminalPresence(attended bool) *TerminalPresence {
	return &TerminalPresence{attended: attended}
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Visible reports whether a user is watching lifecycle events
func (p *TerminalPresence) Visible() bool {
	return p.attended && !p.detached.Load()
}

// Detach marks the terminal as unattended, e.g. once the command stopped rendering
func (p *TerminalPresence) Detach() {
	p.detached.Store(true)
}

var _ usecase.PresenceOracle = (*TerminalPresence)(nil)
