package interactive

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// SelectorAdapter handles interactive selection
type SelectorAdapter struct {
	config *config.RuntimeConfig
	run    func(promptui.Select) (int, error)
}

// NewSelectorAdapter creates a new selector adapter
func NewSelectorAdapter(cfg *config.RuntimeConfig) *SelectorAdapter {
	return &SelectorAdapter{
		config: cfg,
		run: func(p promptui.Select) (int, error) {
			index, _, err := p.Run()
			return index, err
		},
	}
}

// SelectPaymentMethod selects the rail a payout is sent on
func (s *SelectorAdapter) SelectPaymentMethod(ctx context.Context, methods []models.PaymentMethod, prompt string) (models.PaymentMethod, error) {
	if len(methods) == 0 {
		return "", fmt.Errorf("no payment methods provided for selection")
	}

	// If only one option, return it directly
	if len(methods) == 1 {
		return methods[0], nil
	}

	// In non-interactive mode, we can't select
	if s.config.NonInteractive {
		return "", fmt.Errorf("interactive selection not available in non-interactive mode, use --method")
	}

	options := formatMethodOptions(methods)

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:     prompt,
		Items:     options,
		Templates: templates,
		Size:      len(options),
		Searcher:  createFuzzySearchFunc(options),
	}

	index, err := s.run(promptSelect)
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return methods[index], nil
}

// formatMethodOptions creates display strings like "Gnosis Safe (gnosis)"
func formatMethodOptions(methods []models.PaymentMethod) []string {
	options := make([]string, len(methods))
	for i, method := range methods {
		label := color.New(color.FgWhite, color.Bold).Sprint(method.Label())
		name := color.New(color.FgBlue).Sprint(string(method))
		options[i] = fmt.Sprintf("%s (%s)", label, name)
	}
	return options
}

// createFuzzySearchFunc creates a fuzzy search function for promptui
func createFuzzySearchFunc(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		// Empty search shows all items
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])

		if strings.Contains(item, input) {
			return true
		}

		pattern := fuzzy.Find(input, []string{item})
		return len(pattern) > 0
	}
}

// Ensure the adapter implements the interface
var _ usecase.PaymentMethodSelector = (*SelectorAdapter)(nil)
