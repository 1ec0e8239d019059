package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// stageNames are the payout stages shown in the spinner trail
var stageNames = map[string]string{
	"resolve": "Preparing",
	"dao":     "DAO",
	"safe":    "Safe",
	"send":    "Sending",
	"confirm": "Confirming",
	"wallet":  "Deploying",
	"sync":    "Syncing",
}

// SpinnerProgressReporter implements progress reporting with a spinner
type SpinnerProgressReporter struct {
	mu      sync.Mutex
	spinner *spinner.Spinner
	out     io.Writer
	stages  []stageInfo
}

type stageInfo struct {
	Stage     string
	StartTime time.Time
	EndTime   time.Time
	Status    string
	Message   string
}

// NewSpinnerProgressReporter creates a new spinner-based progress reporter
// writing to stderr
func NewSpinnerProgressReporter() *SpinnerProgressReporter {
	return newSpinnerProgressReporter(os.Stderr)
}

func newSpinnerProgressReporter(out io.Writer) *SpinnerProgressReporter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false

	return &SpinnerProgressReporter{
		spinner: s,
		out:     out,
	}
}

// OnProgress handles progress events. A new stage completes the previous one.
func (r *SpinnerProgressReporter) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage == usecase.StageDone {
		r.completeCurrentStage()
		if r.spinner.Active() {
			r.spinner.Stop()
		}
		return
	}

	if event.Stage != "" && (len(r.stages) == 0 || r.stages[len(r.stages)-1].Stage != event.Stage) {
		r.completeCurrentStage()
		r.stages = append(r.stages, stageInfo{
			Stage:     event.Stage,
			StartTime: time.Now(),
			Status:    "running",
		})
	}
	if len(r.stages) > 0 {
		r.stages[len(r.stages)-1].Message = event.Message
	}

	if event.Spinner || event.Total > 0 && event.Current < event.Total {
		if !r.spinner.Active() {
			r.spinner.Start()
		}
	} else if r.spinner.Active() {
		r.spinner.Stop()
	}
	r.spinner.Suffix = " " + r.display(event)
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.print(color.New(color.FgCyan), message)
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.print(color.New(color.FgRed), message)
}

func (r *SpinnerProgressReporter) print(c *color.Color, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Stop spinner temporarily
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}

	c.Fprintln(r.out, message)

	if wasActive {
		r.spinner.Start()
	}
}

// Stop stops the spinner and completes the running stage
func (r *SpinnerProgressReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completeCurrentStage()
	if r.spinner.Active() {
		r.spinner.Stop()
	}
}

// completeCurrentStage marks the current stage as completed
func (r *SpinnerProgressReporter) completeCurrentStage() {
	if len(r.stages) > 0 {
		idx := len(r.stages) - 1
		if r.stages[idx].Status == "running" {
			r.stages[idx].EndTime = time.Now()
			r.stages[idx].Status = "completed"
		}
	}
}

// display renders the stage trail followed by the current message
func (r *SpinnerProgressReporter) display(event usecase.ProgressEvent) string {
	var parts []string
	for _, stage := range r.stages {
		name, ok := stageNames[stage.Stage]
		if !ok {
			continue
		}

		var icon string
		var stageColor *color.Color
		switch stage.Status {
		case "completed":
			icon = "✓"
			stageColor = color.New(color.FgGreen)
		case "running":
			icon = "●"
			stageColor = color.New(color.FgYellow)
		default:
			icon = "○"
			stageColor = color.New(color.FgWhite)
		}

		duration := ""
		if !stage.EndTime.IsZero() {
			duration = fmt.Sprintf(" (%s)", stage.EndTime.Sub(stage.StartTime).Round(time.Millisecond))
		}
		parts = append(parts, fmt.Sprintf("%s %s%s", icon, stageColor.Sprint(name), duration))
	}

	display := strings.Join(parts, " → ")
	if event.Message != "" {
		if display != "" {
			display += "  "
		}
		display += color.New(color.Faint).Sprint(event.Message)
	}
	return display
}

// Ensure SpinnerProgressReporter implements ProgressSink
var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)
