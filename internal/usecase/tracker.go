package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
)

// DefaultConfirmations is how many confirmations the tracker acts on
const DefaultConfirmations = 2

// Screen and dialog identifiers stored in snapshots
const (
	SnapshotScreenPayments = "payments"
	SnapshotDialogPayout   = "payout"
)

// failedPaymentMessage is stored in snapshots of failed payouts
const failedPaymentMessage = "Failed to make payment"

// TrackerEvent drives the payout state machine
type TrackerEvent interface {
	trackerEvent()
}

// HashEvent is fired once the wallet returned a transaction hash
type HashEvent struct {
	Hash   string
	Payout *ResolvedPayout
	PaidAt time.Time
}

// ConfirmationEvent is fired for every new confirmation of a transaction
type ConfirmationEvent struct {
	Hash string
	// ContractAddress is set when the transaction deployed a contract
	ContractAddress string
}

// FailureEvent is fired when a transaction reverted or could not be mined
type FailureEvent struct {
	Hash string
	Err  error
}

func (HashEvent) trackerEvent()         {}
func (ConfirmationEvent) trackerEvent() {}
func (FailureEvent) trackerEvent()      {}

// Transition is the outcome of one event
type Transition struct {
	Record *models.TransactionRecord
	// Completed is set on the first accepted confirmation
	Completed bool
	// Ignored is set when the event left the record unchanged: a replayed
	// hash, a confirmation beyond the cap or a failure after confirmation
	Ignored bool
}

type trackedPayout struct {
	chainID       uint64
	method        models.PaymentMethod
	aragon        *models.AragonInfo
	gnosis        *models.GnosisInfo
	inspector     *models.InspectorMetadata
	paidAt        time.Time
	confirmations int
	done          bool
}

// PayoutTracker moves payout records through sent, confirmed and final,
// emitting notifications and writing a snapshot whenever nobody watches.
type PayoutTracker struct {
	store    TransactionStore
	bus      EventBus
	presence PresenceOracle
	log      *slog.Logger
	cap      int
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*trackedPayout
}

// NewPayoutTracker creates a new payout tracker
func NewPayoutTracker(
	cfg *config.RuntimeConfig,
	store TransactionStore,
	bus EventBus,
	presence PresenceOracle,
	log *slog.Logger,
) *PayoutTracker {
	limit := cfg.Confirmations
	if limit <= 0 {
		limit = DefaultConfirmations
	}
	return &PayoutTracker{
		store:    store,
		bus:      bus,
		presence: presence,
		log:      log.With("component", "tracker"),
		cap:      limit,
		now:      time.Now,
		sessions: make(map[string]*trackedPayout),
	}
}

// Handle applies ev to the record it refers to
func (t *PayoutTracker) Handle(ctx context.Context, ev TrackerEvent) (*Transition, error) {
	switch e := ev.(type) {
	case HashEvent:
		return t.onHash(ctx, e)
	case ConfirmationEvent:
		return t.onConfirmation(ctx, e)
	case FailureEvent:
		return t.onFailure(ctx, e)
	}
	return nil, fmt.Errorf("unknown tracker event %T", ev)
}

func (t *PayoutTracker) onHash(ctx context.Context, e HashEvent) (*Transition, error) {
	hash := models.NormalizeHash(e.Hash)
	paidAt := e.PaidAt
	if paidAt.IsZero() {
		paidAt = t.now().UTC()
	}

	known, err := t.known(ctx, hash, e.Payout)
	if err != nil || known != nil {
		return known, err
	}

	record := e.Payout.Record
	record.Hash = hash
	record.Status = models.TransactionStatusSent
	record.Confirmed = lo.ToPtr(false)
	record.PaidAt = paidAt
	record.UpdatedAt = t.now().UTC()
	if err := t.store.Save(ctx, &record); err != nil {
		return nil, fmt.Errorf("failed to save transaction %s: %w", hash, err)
	}

	inspector := e.Payout.Inspector
	t.mu.Lock()
	if _, ok := t.sessions[hash]; !ok {
		t.sessions[hash] = &trackedPayout{
			chainID:   record.ChainID,
			method:    record.PaymentMethod,
			aragon:    record.Aragon,
			gnosis:    record.Gnosis,
			inspector: &inspector,
			paidAt:    paidAt,
		}
	}
	t.mu.Unlock()

	t.log.Debug("payout sent", "hash", hash, "method", record.PaymentMethod)
	t.bus.Emit(domain.NotificationPayoutInitiated, domain.PayoutEvent{
		Hash:          hash,
		ChainID:       record.ChainID,
		PaymentMethod: string(record.PaymentMethod),
	})
	t.snapshot(ctx, models.SnapshotState{
		Hash:          hash,
		Processing:    true,
		Sent:          true,
		PaymentMethod: record.PaymentMethod,
		Aragon:        record.Aragon,
		Gnosis:        record.Gnosis,
	})
	return &Transition{Record: &record}, nil
}

// known returns an ignored transition when hash is already tracked. The
// stored record and its confirmation count are kept as they are.
func (t *PayoutTracker) known(ctx context.Context, hash string, payout *ResolvedPayout) (*Transition, error) {
	record, err := t.store.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load transaction %s: %w", hash, err)
	}
	session, err := t.session(ctx, hash)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	if session.inspector == nil && payout != nil {
		inspector := payout.Inspector
		session.inspector = &inspector
	}
	t.mu.Unlock()

	t.log.Debug("hash already tracked", "hash", hash, "status", record.Status)
	return &Transition{Record: record, Ignored: true}, nil
}

func (t *PayoutTracker) onConfirmation(ctx context.Context, e ConfirmationEvent) (*Transition, error) {
	hash := models.NormalizeHash(e.Hash)
	session, err := t.session(ctx, hash)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if session.done || session.confirmations >= t.cap {
		t.mu.Unlock()
		return &Transition{Ignored: true}, nil
	}
	session.confirmations++
	n := session.confirmations
	t.mu.Unlock()

	status := models.TransactionStatusConfirmed
	if n >= 2 {
		status = models.TransactionStatusFinal
	}
	update := models.RecordUpdate{
		Status:        &status,
		Confirmed:     lo.ToPtr(true),
		Confirmations: &n,
	}
	if e.ContractAddress != "" && session.method.IsDelegated() {
		update.DelegatedAddress = lo.ToPtr(e.ContractAddress)
	}
	record, err := t.store.Update(ctx, hash, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", hash, err)
	}

	if n > 1 {
		return &Transition{Record: record}, nil
	}

	t.log.Debug("payout confirmed", "hash", hash, "delegatedAddress", record.Target())
	t.saveInspector(ctx, session, record)
	t.bus.Emit(domain.NotificationPayoutCompleted, domain.PayoutEvent{
		Hash:             hash,
		ChainID:          record.ChainID,
		PaymentMethod:    string(record.PaymentMethod),
		DelegatedAddress: record.Target(),
		Confirmations:    n,
	})
	t.snapshot(ctx, models.SnapshotState{
		Hash:             hash,
		Paid:             true,
		DelegatedAddress: record.Target(),
		PaymentMethod:    record.PaymentMethod,
		Aragon:           record.Aragon,
		Gnosis:           record.Gnosis,
	})
	return &Transition{Record: record, Completed: true}, nil
}

func (t *PayoutTracker) onFailure(ctx context.Context, e FailureEvent) (*Transition, error) {
	hash := models.NormalizeHash(e.Hash)
	session, err := t.session(ctx, hash)
	if err != nil {
		return nil, err
	}

	current, err := t.store.Get(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", hash, err)
	}
	t.mu.Lock()
	settled := session.done || session.confirmations > 0
	t.mu.Unlock()
	if settled || current.IsConfirmed() || current.Status == models.TransactionStatusFailed {
		return &Transition{Record: current, Ignored: true}, nil
	}

	message := failedPaymentMessage
	if e.Err != nil {
		message = e.Err.Error()
	}
	record, err := t.store.Update(ctx, hash, models.RecordUpdate{
		Status:    lo.ToPtr(models.TransactionStatusFailed),
		Confirmed: lo.ToPtr(false),
		Error:     &message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", hash, err)
	}

	t.mu.Lock()
	session.done = true
	t.mu.Unlock()

	t.log.Debug("payout failed", "hash", hash, "error", message)
	t.bus.Emit(domain.NotificationPayoutFailed, domain.PayoutEvent{
		Hash:          hash,
		ChainID:       record.ChainID,
		PaymentMethod: string(record.PaymentMethod),
		Message:       message,
	})
	t.snapshot(ctx, models.SnapshotState{
		Hash:          hash,
		Error:         failedPaymentMessage,
		PaymentMethod: record.PaymentMethod,
		Aragon:        record.Aragon,
		Gnosis:        record.Gnosis,
	})
	return &Transition{Record: record}, nil
}

// RecordSafeProposal stores a direct Gnosis multiSend payout. The record is
// keyed by the contract transaction hash and is complete on creation.
func (t *PayoutTracker) RecordSafeProposal(ctx context.Context, payout *ResolvedPayout, submission *models.SafeSubmission) (*models.TransactionRecord, error) {
	hash := models.NormalizeHash(submission.ContractTransactionHash.Hex())
	now := t.now().UTC()

	record := payout.Record
	record.Hash = hash
	record.Status = models.TransactionStatusConfirmed
	record.Confirmed = lo.ToPtr(true)
	record.GnosisInitiated = true
	record.GnosisMultiSend = true
	record.PaidAt = now
	record.UpdatedAt = now
	if err := t.store.Save(ctx, &record); err != nil {
		return nil, fmt.Errorf("failed to save transaction %s: %w", hash, err)
	}

	inspector := payout.Inspector
	inspector.TransactionHash = hash
	inspector.CreatedAt = now
	if err := t.store.SaveInspector(ctx, &inspector); err != nil {
		t.log.Warn("failed to save inspector metadata", "hash", hash, "error", err)
	}

	t.bus.Emit(domain.NotificationPayoutInitiated, domain.PayoutEvent{
		Hash:          hash,
		ChainID:       record.ChainID,
		PaymentMethod: string(record.PaymentMethod),
	})
	return &record, nil
}

// ConsumeSnapshot returns the pending snapshot once, or nil
func (t *PayoutTracker) ConsumeSnapshot(ctx context.Context) (*models.Snapshot, error) {
	return t.store.ConsumeSnapshot(ctx)
}

// session returns the in-memory state of hash, rebuilding it from the store
// for payouts sent by an earlier process.
func (t *PayoutTracker) session(ctx context.Context, hash string) (*trackedPayout, error) {
	t.mu.Lock()
	session, ok := t.sessions[hash]
	t.mu.Unlock()
	if ok {
		return session, nil
	}

	record, err := t.store.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("untracked transaction %s: %w", hash, err)
		}
		return nil, err
	}
	session = &trackedPayout{
		chainID:       record.ChainID,
		method:        record.PaymentMethod.Canonical(),
		aragon:        record.Aragon,
		gnosis:        record.Gnosis,
		paidAt:        record.PaidAt,
		confirmations: record.Confirmations,
		done:          record.Status == models.TransactionStatusFailed,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.sessions[hash]; ok {
		return existing, nil
	}
	t.sessions[hash] = session
	return session, nil
}

func (t *PayoutTracker) saveInspector(ctx context.Context, session *trackedPayout, record *models.TransactionRecord) {
	if session.inspector == nil {
		return
	}
	inspector := *session.inspector
	inspector.TransactionHash = record.Hash
	inspector.BatchAddress = record.Target()
	inspector.CreatedAt = session.paidAt
	if record.Aragon != nil {
		inspector.PaymentMethodInfo = lo.Assign(inspector.PaymentMethodInfo, map[string]string{"daoAddress": record.Aragon.DaoAddress})
	}
	if err := t.store.SaveInspector(ctx, &inspector); err != nil {
		t.log.Warn("failed to save inspector metadata", "hash", record.Hash, "error", err)
	}
}

// snapshot persists state when no surface observed the event
func (t *PayoutTracker) snapshot(ctx context.Context, state models.SnapshotState) {
	if t.presence.Visible() {
		return
	}
	err := t.store.SaveSnapshot(ctx, &models.Snapshot{
		Screen:    SnapshotScreenPayments,
		Dialog:    SnapshotDialogPayout,
		State:     state,
		CreatedAt: t.now().UTC(),
	})
	if err != nil {
		t.log.Warn("failed to save snapshot", "hash", state.Hash, "error", err)
	}
}
