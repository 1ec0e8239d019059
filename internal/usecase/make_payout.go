package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
)

// MakePayout resolves a payout batch, submits it and follows it until final
type MakePayout struct {
	resolver *PayoutResolver
	tracker  *PayoutTracker
	wallet   Wallet
	watcher  ReceiptWatcher
	aragon   *RequestAragonWithdrawal
	safe     *ProposeSafeWithdrawal
	store    TransactionStore
	progress ProgressSink
	log      *slog.Logger
}

// NewMakePayout creates a new payout use case
func NewMakePayout(
	resolver *PayoutResolver,
	tracker *PayoutTracker,
	wallet Wallet,
	watcher ReceiptWatcher,
	aragon *RequestAragonWithdrawal,
	safe *ProposeSafeWithdrawal,
	store TransactionStore,
	progress ProgressSink,
	log *slog.Logger,
) *MakePayout {
	return &MakePayout{
		resolver: resolver,
		tracker:  tracker,
		wallet:   wallet,
		watcher:  watcher,
		aragon:   aragon,
		safe:     safe,
		store:    store,
		progress: progress,
		log:      log.With("component", "payout"),
	}
}

// PayoutOptions contains options for making a payout
type PayoutOptions struct {
	// Wait follows the transaction until final and runs DAO/Safe follow-ups
	Wait bool
}

// PayoutResult contains the result of a payout
type PayoutResult struct {
	Payout *ResolvedPayout
	Record *models.TransactionRecord
	DAO    *DAO

	// Submission is the Safe proposal of a gnosis payout
	Submission *models.SafeSubmission
	// FollowUpHash is the DAO withdrawal transaction of an aragon payout
	FollowUpHash common.Hash
}

// Run executes batch
func (m *MakePayout) Run(ctx context.Context, batch *models.PayoutBatch, opts PayoutOptions) (*PayoutResult, error) {
	m.progress.OnProgress(ctx, ProgressEvent{Stage: "resolve", Message: "Preparing payout...", Spinner: true})
	defer m.progress.OnProgress(ctx, ProgressEvent{Stage: StageDone})
	resolved, err := m.resolver.Resolve(ctx, batch)
	if err != nil {
		return nil, err
	}
	result := &PayoutResult{Payout: resolved}

	if resolved.Method == models.PaymentMethodAragon {
		m.progress.OnProgress(ctx, ProgressEvent{Stage: "dao", Message: "Resolving DAO " + batch.Aragon.Name + "...", Spinner: true})
		dao, err := m.aragon.Prepare(ctx, batch.Aragon.Name)
		if err != nil {
			return nil, err
		}
		result.DAO = dao
		resolved.Record.Aragon = &models.AragonInfo{
			DaoName:    batch.Aragon.Name,
			DaoAddress: dao.Address.Hex(),
			Apps:       lo.MapValues(dao.Apps, func(a common.Address, _ string) string { return a.Hex() }),
		}
		resolved.Inspector.PaymentMethodInfo = lo.Assign(resolved.Inspector.PaymentMethodInfo, map[string]string{"daoAddress": dao.Address.Hex()})
	}

	if resolved.Safe != nil {
		m.progress.OnProgress(ctx, ProgressEvent{Stage: "safe", Message: "Proposing Safe transaction...", Spinner: true})
		submission, err := m.safe.Submit(ctx, *resolved.Safe)
		if err != nil {
			return nil, err
		}
		result.Submission = submission
		result.Record, err = m.tracker.RecordSafeProposal(ctx, resolved, submission)
		return result, err
	}

	m.progress.OnProgress(ctx, ProgressEvent{Stage: "send", Message: "Waiting for wallet...", Spinner: true})
	hash, err := m.wallet.SendTransaction(ctx, *resolved.Call)
	if err != nil {
		return nil, err
	}

	transition, err := m.tracker.Handle(ctx, HashEvent{Hash: hash.Hex(), Payout: resolved})
	if err != nil {
		return nil, err
	}
	result.Record = transition.Record
	if !opts.Wait {
		return result, nil
	}

	completed := false
	record, err := m.follow(ctx, hash, func(r *models.TransactionRecord) {
		completed = true
	})
	if record != nil {
		result.Record = record
	}
	if err != nil || !completed {
		return result, err
	}

	switch {
	case resolved.Method == models.PaymentMethodAragon:
		err = m.withdrawFromDAO(ctx, result)
	case resolved.Method == models.PaymentMethodGnosis && batch.Safe.ViaContract:
		err = m.withdrawFromSafe(ctx, result)
	}
	return result, err
}

// follow feeds receipt updates of hash into the tracker
func (m *MakePayout) follow(ctx context.Context, hash common.Hash, onCompleted func(*models.TransactionRecord)) (*models.TransactionRecord, error) {
	var record *models.TransactionRecord
	m.progress.OnProgress(ctx, ProgressEvent{Stage: "confirm", Message: "Waiting for confirmations...", Spinner: true})

	for update := range m.watcher.Watch(ctx, hash, m.tracker.cap) {
		if update.Err != nil {
			return record, fmt.Errorf("stopped following %s: %w", hash.Hex(), update.Err)
		}
		if update.Receipt.Status == types.ReceiptStatusFailed {
			transition, err := m.tracker.Handle(ctx, FailureEvent{Hash: hash.Hex(), Err: domain.ErrTransactionFailed})
			if err != nil {
				return record, err
			}
			return transition.Record, fmt.Errorf("%w: %s reverted", domain.ErrTransactionFailed, hash.Hex())
		}

		contract := ""
		if update.Receipt.ContractAddress != (common.Address{}) {
			contract = update.Receipt.ContractAddress.Hex()
		}
		transition, err := m.tracker.Handle(ctx, ConfirmationEvent{Hash: hash.Hex(), ContractAddress: contract})
		if err != nil {
			return record, err
		}
		if transition.Ignored {
			continue
		}
		record = transition.Record
		m.progress.OnProgress(ctx, ProgressEvent{
			Stage:   "confirm",
			Current: record.Confirmations,
			Total:   m.tracker.cap,
			Message: fmt.Sprintf("Confirmation %d/%d", record.Confirmations, m.tracker.cap),
		})
		if transition.Completed && onCompleted != nil {
			onCompleted(record)
		}
	}
	return record, nil
}

// withdrawFromDAO funds the deployed batch contract from the DAO
func (m *MakePayout) withdrawFromDAO(ctx context.Context, result *PayoutResult) error {
	record := result.Record
	batch := result.Payout.Batch
	delegated := common.HexToAddress(record.Target())
	if delegated == (common.Address{}) {
		return fmt.Errorf("%w: no delegated address for %s", domain.ErrMissingContractMetadata, record.Hash)
	}

	m.progress.OnProgress(ctx, ProgressEvent{Stage: "dao", Message: "Requesting DAO withdrawal...", Spinner: true})
	hash, err := m.aragon.Withdraw(ctx, AragonWithdrawalRequest{
		DAO:       result.DAO,
		Recipient: delegated,
		Amount:    batch.Total(),
		Reference: batch.Summary(delegated.Hex()),
	})
	if err != nil {
		m.recordError(ctx, record.Hash, err)
		return err
	}
	result.FollowUpHash = hash

	updated, err := m.store.Update(ctx, record.Hash, models.RecordUpdate{
		AragonHash:      lo.ToPtr(models.NormalizeHash(hash.Hex())),
		AragonConfirmed: lo.ToPtr(false),
	})
	if err != nil {
		return err
	}
	result.Record = updated

	for update := range m.watcher.Watch(ctx, hash, 1) {
		if update.Err != nil {
			return fmt.Errorf("stopped following DAO withdrawal %s: %w", hash.Hex(), update.Err)
		}
		if update.Receipt.Status == types.ReceiptStatusFailed {
			m.recordError(ctx, record.Hash, domain.ErrTransactionFailed)
			return fmt.Errorf("%w: DAO withdrawal %s reverted", domain.ErrTransactionFailed, hash.Hex())
		}
		if result.Record, err = m.store.Update(ctx, record.Hash, models.RecordUpdate{AragonConfirmed: lo.ToPtr(true)}); err != nil {
			return err
		}
	}
	return nil
}

// withdrawFromSafe proposes the Safe CALL funding the deployed batch contract
func (m *MakePayout) withdrawFromSafe(ctx context.Context, result *PayoutResult) error {
	record := result.Record
	delegated := common.HexToAddress(record.Target())
	if delegated == (common.Address{}) {
		return fmt.Errorf("%w: no delegated address for %s", domain.ErrMissingContractMetadata, record.Hash)
	}

	m.progress.OnProgress(ctx, ProgressEvent{Stage: "safe", Message: "Proposing Safe withdrawal...", Spinner: true})
	submission, err := m.safe.Submit(ctx, *ContractWithdrawal(result.Payout.Batch, delegated))
	if err != nil {
		m.recordError(ctx, record.Hash, err)
		return err
	}
	result.Submission = submission

	updated, err := m.store.Update(ctx, record.Hash, models.RecordUpdate{GnosisInitiated: lo.ToPtr(true)})
	if err != nil {
		return err
	}
	result.Record = updated
	return nil
}

func (m *MakePayout) recordError(ctx context.Context, hash string, cause error) {
	message := domain.UserMessage(cause)
	if _, err := m.store.Update(ctx, hash, models.RecordUpdate{Error: &message}); err != nil {
		m.log.Warn("failed to record follow-up error", "hash", hash, "error", err)
	}
}
