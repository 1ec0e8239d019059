package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"github.com/trebuchet-org/payrail/internal/cli/render"
	"github.com/trebuchet-org/payrail/internal/domain/models"
)

// paymentItem represents a selectable payment in the multi-select
type paymentItem struct {
	payment  models.PaymentRequest
	selected bool
}

// multiSelectModel is the bubbletea model for multi-select
type multiSelectModel struct {
	items     []paymentItem
	cursor    int
	title     string
	decimals  int
	done      bool
	cancelled bool
}

func initialMultiSelectModel(payments []models.PaymentRequest, title string, decimals int) multiSelectModel {
	items := make([]paymentItem, len(payments))
	for i, payment := range payments {
		items[i] = paymentItem{payment: payment, selected: true}
	}
	return multiSelectModel{
		items:    items,
		title:    title,
		decimals: decimals,
	}
}

// Init is the initial command for bubbletea
func (m multiSelectModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m multiSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case " ":
			m.items[m.cursor].selected = !m.items[m.cursor].selected
		case "a":
			all := !m.allSelected()
			for i := range m.items {
				m.items[i].selected = all
			}
		case "enter":
			if len(m.selectedIndices()) > 0 {
				m.done = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m multiSelectModel) allSelected() bool {
	for _, item := range m.items {
		if !item.selected {
			return false
		}
	}
	return true
}

func (m multiSelectModel) selectedIndices() []int {
	var indices []int
	for i, item := range m.items {
		if item.selected {
			indices = append(indices, i)
		}
	}
	return indices
}

// View renders the UI
func (m multiSelectModel) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(color.New(color.FgCyan, color.Bold).Sprintf("%s\n\n", m.title))

	for i, item := range m.items {
		cursor := " "
		if m.cursor == i {
			cursor = color.New(color.FgCyan).Sprint("▸")
		}

		checkbox := color.New(color.FgWhite).Sprint("○")
		if item.selected {
			checkbox = color.New(color.FgGreen).Sprint("✓")
		}

		address := color.New(color.FgWhite).Sprint(item.payment.Recipient.Hex())
		amount := color.New(color.FgYellow).Sprint(render.FormatAmount(item.payment.Amount, m.decimals))
		name := ""
		if item.payment.Name != "" {
			name = color.New(color.Faint).Sprintf("(%s)", item.payment.Name)
		}

		b.WriteString(fmt.Sprintf("%s %s %s %s %s\n", cursor, checkbox, address, amount, name))
	}

	b.WriteString("\n")
	b.WriteString(color.New(color.FgYellow).Sprint("↑/↓: move  Space: toggle  a: all  Enter: confirm  q: quit\n"))

	return b.String()
}

// SelectPayments shows a multi-select of payments and returns the chosen ones
func SelectPayments(payments []models.PaymentRequest, title string, decimals int) ([]models.PaymentRequest, error) {
	if len(payments) == 0 {
		return nil, fmt.Errorf("no payments to select")
	}

	p := tea.NewProgram(initialMultiSelectModel(payments, title, decimals))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("multi-select failed: %w", err)
	}

	m := finalModel.(multiSelectModel)
	if m.cancelled || !m.done {
		return nil, fmt.Errorf("selection cancelled")
	}

	indices := m.selectedIndices()
	selected := make([]models.PaymentRequest, 0, len(indices))
	for _, i := range indices {
		selected = append(selected, payments[i])
	}
	return selected, nil
}
