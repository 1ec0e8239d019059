package interactive

import (
	"context"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
)

func TestSelectPaymentMethod(t *testing.T) {
	methods := []models.PaymentMethod{models.PaymentMethodDefault, models.PaymentMethodDelegatedTransfer, models.PaymentMethodGnosis}

	t.Run("single option skips the prompt", func(t *testing.T) {
		s := NewSelectorAdapter(&config.RuntimeConfig{NonInteractive: true})
		got, err := s.SelectPaymentMethod(context.Background(), methods[:1], "Method")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentMethodDefault, got)
	})

	t.Run("non-interactive", func(t *testing.T) {
		s := NewSelectorAdapter(&config.RuntimeConfig{NonInteractive: true})
		_, err := s.SelectPaymentMethod(context.Background(), methods, "Method")
		assert.Error(t, err)
	})

	t.Run("selected index", func(t *testing.T) {
		s := NewSelectorAdapter(&config.RuntimeConfig{})
		s.run = func(p promptui.Select) (int, error) {
			assert.Equal(t, "Method", p.Label)
			return 2, nil
		}
		got, err := s.SelectPaymentMethod(context.Background(), methods, "Method")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentMethodGnosis, got)
	})

	t.Run("cancelled", func(t *testing.T) {
		s := NewSelectorAdapter(&config.RuntimeConfig{})
		s.run = func(promptui.Select) (int, error) { return 0, promptui.ErrInterrupt }
		_, err := s.SelectPaymentMethod(context.Background(), methods, "Method")
		assert.True(t, errors.Is(err, promptui.ErrInterrupt))
	})
}

func TestFuzzySearch(t *testing.T) {
	color.NoColor = true
	options := formatMethodOptions([]models.PaymentMethod{models.PaymentMethodDefault, models.PaymentMethodDelegatedTransfer, models.PaymentMethodGnosis})
	search := createFuzzySearchFunc(options)

	assert.True(t, search("", 0))
	assert.True(t, search("gnosis", 2))
	assert.False(t, search("gnosis", 0))
	assert.True(t, search("dlgtd", 1))
}
