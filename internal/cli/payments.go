package cli

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/trebuchet-org/payrail/internal/domain/models"
)

// paymentsFile is the YAML document accepted by `payrail payout --file`
type paymentsFile struct {
	Currency string         `yaml:"currency,omitempty"`
	Payments []paymentEntry `yaml:"payments"`
}

type paymentEntry struct {
	Address  string `yaml:"address"`
	Amount   string `yaml:"amount"`
	Name     string `yaml:"name,omitempty"`
	Currency string `yaml:"currency,omitempty"`
	Details  string `yaml:"details,omitempty"`
	DueDate  string `yaml:"due_date,omitempty"`
}

// loadPaymentsFile reads payments from path. Amounts are decimal strings
// scaled by decimals.
func loadPaymentsFile(path string, decimals int) ([]models.PaymentRequest, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read payments file: %w", err)
	}
	var file paymentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, "", fmt.Errorf("failed to parse %s: %w", path, err)
	}

	payments := make([]models.PaymentRequest, 0, len(file.Payments))
	for i, entry := range file.Payments {
		payment, err := entry.toRequest(decimals)
		if err != nil {
			return nil, "", fmt.Errorf("payment %d: %w", i+1, err)
		}
		payments = append(payments, payment)
	}
	return payments, file.Currency, nil
}

func (e paymentEntry) toRequest(decimals int) (models.PaymentRequest, error) {
	if !common.IsHexAddress(e.Address) {
		return models.PaymentRequest{}, fmt.Errorf("invalid address %q", e.Address)
	}
	amount, err := parseAmount(e.Amount, decimals)
	if err != nil {
		return models.PaymentRequest{}, err
	}
	return models.PaymentRequest{
		Recipient: common.HexToAddress(e.Address),
		Amount:    amount,
		Name:      e.Name,
		Currency:  e.Currency,
		Details:   e.Details,
		DueDate:   e.DueDate,
	}, nil
}

// parsePayFlag parses a --pay value of the form address=amount
func parsePayFlag(value string, decimals int) (models.PaymentRequest, error) {
	address, amount, ok := strings.Cut(value, "=")
	if !ok {
		return models.PaymentRequest{}, fmt.Errorf("invalid payment %q, expected address=amount", value)
	}
	return paymentEntry{Address: strings.TrimSpace(address), Amount: strings.TrimSpace(amount)}.toRequest(decimals)
}

// parseAmount converts a decimal string into base units. Amounts with more
// fractional digits than decimals are rejected.
func parseAmount(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("missing amount")
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if r.Sign() <= 0 {
		return nil, fmt.Errorf("amount %q must be positive", s)
	}
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)))
	if !scaled.IsInt() {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	return new(big.Int).Set(scaled.Num()), nil
}
