package models

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// TransactionStatus represents the lifecycle state of a payout transaction
type TransactionStatus string

const (
	TransactionStatusSent      TransactionStatus = "sent"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusFinal     TransactionStatus = "final"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// rank orders the statuses a record moves through. Failed sits outside the
// order and is only reachable from sent.
func (s TransactionStatus) rank() int {
	switch s {
	case TransactionStatusSent:
		return 1
	case TransactionStatusConfirmed:
		return 2
	case TransactionStatusFinal:
		return 3
	}
	return 0
}

// CanMoveTo reports whether a record in status s may take status next.
// Statuses never move backwards and failed is terminal.
func (s TransactionStatus) CanMoveTo(next TransactionStatus) bool {
	switch {
	case next == "" || next == s:
		return false
	case s == "":
		return true
	case s == TransactionStatusFailed:
		return false
	case next == TransactionStatusFailed:
		return s == TransactionStatusSent
	}
	return next.rank() > s.rank()
}

// AragonInfo describes the DAO a payout was withdrawn from
type AragonInfo struct {
	DaoName    string            `json:"daoName,omitempty"`
	DaoAddress string            `json:"daoAddress"`
	Apps       map[string]string `json:"apps,omitempty"`
}

// GnosisInfo describes the Safe a payout was proposed to
type GnosisInfo struct {
	SafeAddress string `json:"safeAddress"`
	Version     string `json:"version,omitempty"`
}

// TransactionRecord is the persisted history entry of a payout.
// Records are keyed by hash and only ever merged, never deleted.
type TransactionRecord struct {
	Hash    string `json:"hash"`
	ChainID uint64 `json:"chain"`
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	Value   string `json:"value"`

	Currency      string           `json:"currency,omitempty"`
	Recipients    []string         `json:"recipients,omitempty"`
	Values        []string         `json:"values,omitempty"`
	Payments      []PaymentRequest `json:"payments,omitempty"`
	PaymentMethod PaymentMethod    `json:"paymentMethod"`

	Status        TransactionStatus `json:"status"`
	Confirmed     *bool             `json:"confirmed,omitempty"`
	Confirmations int               `json:"confirmations,omitempty"`
	Error         string            `json:"error,omitempty"`

	Delegated          bool   `json:"delegated"`
	DelegatedAddress   string `json:"delegatedAddress,omitempty"`
	SmartAddress       string `json:"smartAddress,omitempty"` // legacy name of DelegatedAddress
	DelegatedConfirmed bool   `json:"delegatedConfirmed,omitempty"`
	DelegatedHash      string `json:"delegatedHash,omitempty"`

	Aragon          *AragonInfo `json:"aragon,omitempty"`
	AragonHash      string      `json:"aragonHash,omitempty"`
	AragonConfirmed *bool       `json:"aragonConfirmed,omitempty"`

	Gnosis          *GnosisInfo `json:"gnosis,omitempty"`
	GnosisInitiated bool        `json:"gnosisInitiated,omitempty"`
	GnosisConfirmed *bool       `json:"gnosisConfirmed,omitempty"`
	GnosisMultiSend bool        `json:"gnosisMultiSend,omitempty"`

	PaidAt    time.Time `json:"paid_at"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Target returns the delegated target address, honouring the legacy field
func (r *TransactionRecord) Target() string {
	if r.DelegatedAddress != "" {
		return r.DelegatedAddress
	}
	return r.SmartAddress
}

// IsConfirmed reports whether the first confirmation was observed
func (r *TransactionRecord) IsConfirmed() bool {
	return lo.FromPtr(r.Confirmed)
}

// awaitsFinal reports whether the record was sent but not finalized. A
// record left at confirmed, e.g. with a confirmation cap of one, still counts.
func (r *TransactionRecord) awaitsFinal() bool {
	if r.Confirmed == nil || r.GnosisMultiSend || r.Status == TransactionStatusFailed {
		return false
	}
	return !*r.Confirmed || r.Status == TransactionStatusConfirmed
}

// PendingDirect reports whether the record awaits its receipt
func (r *TransactionRecord) PendingDirect() bool {
	return !r.Delegated && r.awaitsFinal()
}

// PendingDeployment reports whether a delegated contract deployment awaits its receipt
func (r *TransactionRecord) PendingDeployment() bool {
	return r.Delegated && r.awaitsFinal()
}

// PendingDelegated reports whether the record's delegated target has yet to complete
func (r *TransactionRecord) PendingDelegated() bool {
	return r.IsConfirmed() && r.Delegated && !r.DelegatedConfirmed && r.Target() != ""
}

// RecordUpdate is a partial update merged into a TransactionRecord.
// Nil fields are left untouched, so applying an update twice is a no-op.
// Status, Confirmed and Confirmations only move forward.
type RecordUpdate struct {
	Status             *TransactionStatus
	Confirmed          *bool
	Confirmations      *int
	Error              *string
	DelegatedAddress   *string
	DelegatedConfirmed *bool
	DelegatedHash      *string
	AragonHash         *string
	AragonConfirmed    *bool
	GnosisInitiated    *bool
	GnosisConfirmed    *bool
}

// Apply merges u into r and reports whether anything changed
func (u RecordUpdate) Apply(r *TransactionRecord) bool {
	changed := false
	set := func(dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setOptBool := func(dst **bool, src *bool) {
		if src != nil && (*dst == nil || **dst != *src) {
			*dst = lo.ToPtr(*src)
			changed = true
		}
	}

	if u.Status != nil && r.Status.CanMoveTo(*u.Status) {
		r.Status = *u.Status
		changed = true
	}
	if u.Confirmations != nil && *u.Confirmations > r.Confirmations {
		r.Confirmations = *u.Confirmations
		changed = true
	}
	if u.Confirmed != nil && !r.IsConfirmed() {
		setOptBool(&r.Confirmed, u.Confirmed)
	}
	set(&r.Error, u.Error)
	set(&r.DelegatedAddress, u.DelegatedAddress)
	setBool(&r.DelegatedConfirmed, u.DelegatedConfirmed)
	set(&r.DelegatedHash, u.DelegatedHash)
	set(&r.AragonHash, u.AragonHash)
	setOptBool(&r.AragonConfirmed, u.AragonConfirmed)
	setBool(&r.GnosisInitiated, u.GnosisInitiated)
	setOptBool(&r.GnosisConfirmed, u.GnosisConfirmed)
	return changed
}

// Merge folds the non-zero fields of other into r. It is used when a record
// is saved again under a hash that already exists.
func (r *TransactionRecord) Merge(other *TransactionRecord) {
	if other.ChainID != 0 {
		r.ChainID = other.ChainID
	}
	r.From = lo.CoalesceOrEmpty(other.From, r.From)
	r.To = lo.CoalesceOrEmpty(other.To, r.To)
	r.Value = lo.CoalesceOrEmpty(other.Value, r.Value)
	r.Currency = lo.CoalesceOrEmpty(other.Currency, r.Currency)
	if len(other.Recipients) > 0 {
		r.Recipients = other.Recipients
		r.Values = other.Values
	}
	if len(other.Payments) > 0 {
		r.Payments = other.Payments
	}
	if other.PaymentMethod != "" {
		r.PaymentMethod = other.PaymentMethod
	}
	if r.Status.CanMoveTo(other.Status) {
		r.Status = other.Status
	}
	if other.Confirmed != nil && !r.IsConfirmed() {
		r.Confirmed = lo.ToPtr(*other.Confirmed)
	}
	if other.Confirmations > r.Confirmations {
		r.Confirmations = other.Confirmations
	}
	r.Error = lo.CoalesceOrEmpty(other.Error, r.Error)
	r.Delegated = r.Delegated || other.Delegated
	r.DelegatedAddress = lo.CoalesceOrEmpty(other.DelegatedAddress, r.DelegatedAddress)
	r.SmartAddress = lo.CoalesceOrEmpty(other.SmartAddress, r.SmartAddress)
	r.DelegatedConfirmed = r.DelegatedConfirmed || other.DelegatedConfirmed
	r.DelegatedHash = lo.CoalesceOrEmpty(other.DelegatedHash, r.DelegatedHash)
	if other.Aragon != nil {
		r.Aragon = other.Aragon
	}
	r.AragonHash = lo.CoalesceOrEmpty(other.AragonHash, r.AragonHash)
	if other.AragonConfirmed != nil {
		r.AragonConfirmed = other.AragonConfirmed
	}
	if other.Gnosis != nil {
		r.Gnosis = other.Gnosis
	}
	r.GnosisInitiated = r.GnosisInitiated || other.GnosisInitiated
	if other.GnosisConfirmed != nil {
		r.GnosisConfirmed = other.GnosisConfirmed
	}
	r.GnosisMultiSend = r.GnosisMultiSend || other.GnosisMultiSend
	if r.PaidAt.IsZero() {
		r.PaidAt = other.PaidAt
	}
}

// NormalizeHash lower-cases a hash so records dedupe regardless of input casing
func NormalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

// Snapshot is the one-shot resume record written when no UI observed an event
type Snapshot struct {
	Screen    string        `json:"screen"`
	Dialog    string        `json:"dialog"`
	State     SnapshotState `json:"state"`
	CreatedAt time.Time     `json:"createdAt"`
}

// SnapshotState is the partial payout state needed to resume rendering
type SnapshotState struct {
	Hash             string        `json:"hash"`
	Processing       bool          `json:"processing"`
	Sent             bool          `json:"sent"`
	Paid             bool          `json:"paid"`
	Error            string        `json:"error,omitempty"`
	DelegatedAddress string        `json:"delegatedAddress,omitempty"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
	Aragon           *AragonInfo   `json:"aragon,omitempty"`
	Gnosis           *GnosisInfo   `json:"gnosis,omitempty"`
}

// InspectorPayment is a single payment entry in inspector metadata
type InspectorPayment struct {
	RecipientAddress string `json:"recipientAddress"`
	RecipientName    string `json:"recipientName,omitempty"`
	Value            string `json:"value"`
	Currency         string `json:"currency,omitempty"`
	Note             string `json:"note,omitempty"`
	DueDate          string `json:"dueDate,omitempty"`
}

// InspectorMetadata is the descriptive document stored for every payout
type InspectorMetadata struct {
	TransactionHash   string             `json:"transactionHash"`
	BatchAddress      string             `json:"batchAddress,omitempty"`
	PaymentMethod     string             `json:"paymentMethod"`
	PaymentMethodInfo map[string]string  `json:"paymentMethodInfo,omitempty"`
	Payments          []InspectorPayment `json:"payments"`
	Creator           string             `json:"creator"`
	CreatedAt         time.Time          `json:"createdAt"`
}

// SmartWallet is a deployed per-chain wallet contract owned by a sender
type SmartWallet struct {
	ChainID   uint64    `json:"chainId"`
	Owner     string    `json:"owner"`
	Address   string    `json:"address"`
	TxHash    string    `json:"txHash,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
