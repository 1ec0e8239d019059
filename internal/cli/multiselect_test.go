package cli

import (
	"math/big"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/trebuchet-org/payrail/internal/domain/models"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m multiSelectModel, keys ...string) multiSelectModel {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(multiSelectModel)
	}
	return m
}

func TestMultiSelectModel(t *testing.T) {
	payments := []models.PaymentRequest{
		{Recipient: common.HexToAddress("0x01"), Amount: big.NewInt(1), Name: "Alice"},
		{Recipient: common.HexToAddress("0x02"), Amount: big.NewInt(2)},
		{Recipient: common.HexToAddress("0x03"), Amount: big.NewInt(3)},
	}

	t.Run("everything selected initially", func(t *testing.T) {
		m := initialMultiSelectModel(payments, "Select", 0)
		assert.Equal(t, []int{0, 1, 2}, m.selectedIndices())
		assert.Contains(t, m.View(), "Alice")
	})

	t.Run("toggle and confirm", func(t *testing.T) {
		m := press(initialMultiSelectModel(payments, "Select", 0), "down", " ", "enter")
		assert.True(t, m.done)
		assert.Equal(t, []int{0, 2}, m.selectedIndices())
		assert.Empty(t, m.View())
	})

	t.Run("enter needs a selection", func(t *testing.T) {
		m := press(initialMultiSelectModel(payments, "Select", 0), "a", "enter")
		assert.False(t, m.done)
		assert.Empty(t, m.selectedIndices())
	})

	t.Run("quit cancels", func(t *testing.T) {
		m := press(initialMultiSelectModel(payments, "Select", 0), "q")
		assert.True(t, m.cancelled)
		assert.False(t, m.done)
	})

	t.Run("cursor stays in range", func(t *testing.T) {
		m := press(initialMultiSelectModel(payments, "Select", 0), "k", "down", "down", "down", "down")
		assert.Equal(t, 2, m.cursor)
	})
}
