package models

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PaymentMethod identifies the rail a payout is executed on
type PaymentMethod string

const (
	PaymentMethodDefault           PaymentMethod = "default"
	PaymentMethodSmartWallet       PaymentMethod = "smart-wallet"
	PaymentMethodDelegatedTransfer PaymentMethod = "delegated-transfer"
	PaymentMethodAragon            PaymentMethod = "aragon"
	PaymentMethodGnosis            PaymentMethod = "gnosis"

	// Legacy aliases still found in stored records
	PaymentMethodSmart PaymentMethod = "smart"
	PaymentMethodDao   PaymentMethod = "dao"
)

// PaymentMethods lists the canonical payment methods in display order
var PaymentMethods = []PaymentMethod{
	PaymentMethodDefault,
	PaymentMethodDelegatedTransfer,
	PaymentMethodAragon,
	PaymentMethodGnosis,
	PaymentMethodSmartWallet,
}

// ParsePaymentMethod parses and canonicalizes a payment method name
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))).Canonical()
	switch m {
	case PaymentMethodDefault, PaymentMethodSmartWallet, PaymentMethodDelegatedTransfer,
		PaymentMethodAragon, PaymentMethodGnosis:
		return m, nil
	case "":
		return PaymentMethodDefault, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// Canonical maps legacy aliases onto their current names
func (m PaymentMethod) Canonical() PaymentMethod {
	switch m {
	case PaymentMethodSmart:
		return PaymentMethodSmartWallet
	case PaymentMethodDao:
		return PaymentMethodDelegatedTransfer
	}
	return m
}

// IsDelegated reports whether the method executes through a delegated target
func (m PaymentMethod) IsDelegated() bool {
	switch m.Canonical() {
	case PaymentMethodDelegatedTransfer, PaymentMethodAragon, PaymentMethodGnosis:
		return true
	}
	return false
}

// Label returns the display name of the method
func (m PaymentMethod) Label() string {
	switch m.Canonical() {
	case PaymentMethodDefault:
		return "Wallet"
	case PaymentMethodSmartWallet:
		return "Smart Wallet"
	case PaymentMethodDelegatedTransfer:
		return "Smart Contract Address"
	case PaymentMethodAragon:
		return "Aragon DAO"
	case PaymentMethodGnosis:
		return "Gnosis Safe"
	}
	return string(m)
}

// InspectorLabel returns the method name used in inspector metadata
func (m PaymentMethod) InspectorLabel() string {
	switch m.Canonical() {
	case PaymentMethodDefault:
		return "wallet"
	case PaymentMethodSmartWallet:
		return "smart-wallet"
	case PaymentMethodDelegatedTransfer:
		return "batch-address"
	}
	return string(m.Canonical())
}

// PaymentRequest is a single payment inside a batch
type PaymentRequest struct {
	Recipient common.Address `json:"address" yaml:"address"`
	Amount    *big.Int       `json:"amount" yaml:"amount"`
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
	Currency  string         `json:"currency,omitempty" yaml:"currency,omitempty"`
	Details   string         `json:"details,omitempty" yaml:"details,omitempty"`
	DueDate   string         `json:"dueDate,omitempty" yaml:"due_date,omitempty"`
}

// AragonTarget identifies the DAO an Aragon payout withdraws from
type AragonTarget struct {
	// Name is either a DAO name (resolved as <name>.aragonid.eth) or an address
	Name string `json:"daoName"`
}

// SafeTarget identifies the Safe a Gnosis payout is proposed to
type SafeTarget struct {
	Address common.Address `json:"safeAddress"`
	Version string         `json:"version,omitempty"`
	// ViaContract routes the payout through a delegated batch contract that
	// the Safe funds with a single CALL once deployed
	ViaContract bool `json:"viaContract,omitempty"`
}

// PayoutBatch is the unit submitted by a payout. Retries create a new batch.
type PayoutBatch struct {
	Payments []PaymentRequest
	Method   PaymentMethod
	Sender   common.Address
	ChainID  uint64
	Currency string

	// TokenSymbol selects the stable coin for smart-wallet payouts
	TokenSymbol string

	Aragon *AragonTarget
	Safe   *SafeTarget

	CreatedAt time.Time
}

// Total returns the aggregate value of the batch
func (b *PayoutBatch) Total() *big.Int {
	total := new(big.Int)
	for _, p := range b.Payments {
		if p.Amount != nil {
			total.Add(total, p.Amount)
		}
	}
	return total
}

// Recipients returns the recipient addresses in batch order
func (b *PayoutBatch) Recipients() []common.Address {
	out := make([]common.Address, len(b.Payments))
	for i, p := range b.Payments {
		out[i] = p.Recipient
	}
	return out
}

// Amounts returns the payment amounts in batch order
func (b *PayoutBatch) Amounts() []*big.Int {
	out := make([]*big.Int, len(b.Payments))
	for i, p := range b.Payments {
		out[i] = new(big.Int).Set(p.Amount)
	}
	return out
}

// Summary returns the reference text attached to DAO and Safe withdrawals
func (b *PayoutBatch) Summary(target string) string {
	var sb strings.Builder
	if target != "" {
		sb.WriteString("Batch payment address: ")
		sb.WriteString(target)
		sb.WriteString("\n")
	}
	sb.WriteString("Recipients:")
	for i, p := range b.Payments {
		name := p.Name
		if name == "" {
			name = p.Recipient.Hex()
		}
		fmt.Fprintf(&sb, "\n%d. %s: %s", i+1, name, p.Amount.String())
		if b.Currency != "" {
			sb.WriteString(" " + b.Currency)
		}
	}
	return sb.String()
}
