package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// DefaultReconcileWindow is how many blocks back from head delegated
// completions are searched for
const DefaultReconcileWindow uint64 = 100000

// receiptWorkers bounds concurrent receipt lookups
const receiptWorkers = 4

// ReconcileTransactions closes out pending records from chain evidence
type ReconcileTransactions struct {
	store    TransactionStore
	chain    ChainClient
	window   uint64
	progress ProgressSink
	log      *slog.Logger
}

// NewReconcileTransactions creates a new reconciliation use case
func NewReconcileTransactions(
	cfg *config.RuntimeConfig,
	store TransactionStore,
	chain ChainClient,
	progress ProgressSink,
	log *slog.Logger,
) *ReconcileTransactions {
	window := cfg.ReconcileWindow
	if window == 0 {
		window = DefaultReconcileWindow
	}
	return &ReconcileTransactions{
		store:    store,
		chain:    chain,
		window:   window,
		progress: progress,
		log:      log.With("component", "reconcile"),
	}
}

// ReconcileOptions contains options for a sweep
type ReconcileOptions struct {
	// Window overrides the configured block window when non-zero
	Window uint64
}

// ReconcileResult contains the result of a sweep
type ReconcileResult struct {
	ChainID            uint64
	DirectChecked      int
	Confirmed          int
	Failed             int
	StillPending       int
	DelegatedChecked   int
	DelegatedConfirmed int
	Errors             []string
}

// Updated reports whether the sweep changed any record
func (r *ReconcileResult) Updated() int {
	return r.Confirmed + r.Failed + r.DelegatedConfirmed
}

// Reconcile performs one sweep over the records of the connected chain
func (s *ReconcileTransactions) Reconcile(ctx context.Context, opts ReconcileOptions) (*ReconcileResult, error) {
	chainID, err := s.chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrChainCallFailed, err)
	}
	result := &ReconcileResult{ChainID: chainID, Errors: make([]string, 0)}

	s.progress.OnProgress(ctx, ProgressEvent{
		Stage:   "sync",
		Message: "Checking pending transactions...",
		Spinner: true,
	})

	records, err := s.store.List(ctx, TransactionFilter{ChainID: chainID})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	pendingReceipts := lo.Filter(records, func(r *models.TransactionRecord, _ int) bool {
		return r.PendingDirect() || r.PendingDeployment()
	})
	s.reconcileReceipts(ctx, pendingReceipts, result)

	// Deployments confirmed above are eligible for the log scan right away
	records, err = s.store.List(ctx, TransactionFilter{ChainID: chainID})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	pendingDelegated := lo.Filter(records, func(r *models.TransactionRecord, _ int) bool {
		return r.PendingDelegated()
	})
	window := lo.Ternary(opts.Window != 0, opts.Window, s.window)
	s.reconcileDelegated(ctx, pendingDelegated, window, result)

	s.progress.OnProgress(ctx, ProgressEvent{
		Stage:   "sync",
		Message: "Sync completed",
		Spinner: false,
	})
	return result, nil
}

// Watch runs a sweep every interval until ctx is done
func (s *ReconcileTransactions) Watch(ctx context.Context, opts ReconcileOptions, interval time.Duration, onResult func(*ReconcileResult, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		onResult(s.Reconcile(ctx, opts))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *ReconcileTransactions) reconcileReceipts(ctx context.Context, records []*models.TransactionRecord, result *ReconcileResult) {
	if len(records) == 0 {
		return
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(receiptWorkers)
	for _, record := range records {
		g.Go(func() error {
			outcome, err := s.reconcileReceipt(gctx, record)
			mu.Lock()
			defer mu.Unlock()
			if !record.Delegated {
				result.DirectChecked++
			}
			switch {
			case err != nil:
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", record.Hash, err))
			case outcome == models.TransactionStatusFinal:
				result.Confirmed++
			case outcome == models.TransactionStatusFailed:
				result.Failed++
			default:
				result.StillPending++
			}
			return nil
		})
	}
	_ = g.Wait()
}

// reconcileReceipt returns the status applied, or "" when still pending
func (s *ReconcileTransactions) reconcileReceipt(ctx context.Context, record *models.TransactionRecord) (models.TransactionStatus, error) {
	receipt, err := s.chain.TransactionReceipt(ctx, common.HexToHash(record.Hash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return "", nil
		}
		return "", err
	}

	var update models.RecordUpdate
	status := models.TransactionStatusFinal
	if receipt.Status == types.ReceiptStatusSuccessful {
		update = models.RecordUpdate{
			Status:    &status,
			Confirmed: lo.ToPtr(true),
		}
		if record.Delegated && receipt.ContractAddress != (common.Address{}) {
			update.DelegatedAddress = lo.ToPtr(receipt.ContractAddress.Hex())
		}
	} else {
		status = models.TransactionStatusFailed
		update = models.RecordUpdate{
			Status:    &status,
			Confirmed: lo.ToPtr(false),
			Error:     lo.ToPtr(failedPaymentMessage),
		}
	}

	if _, err := s.store.Update(ctx, record.Hash, update); err != nil {
		return "", err
	}
	s.log.Debug("reconciled receipt", "hash", record.Hash, "status", status)
	return status, nil
}

func (s *ReconcileTransactions) reconcileDelegated(ctx context.Context, records []*models.TransactionRecord, window uint64, result *ReconcileResult) {
	if len(records) == 0 {
		return
	}
	result.DelegatedChecked = len(records)

	s.progress.OnProgress(ctx, ProgressEvent{
		Stage:   "sync",
		Message: fmt.Sprintf("Scanning %d batch address(es) for payouts...", len(records)),
		Spinner: true,
	})

	head, err := s.chain.BlockNumber(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("block number: %v", err))
		return
	}
	from := uint64(0)
	if head > window {
		from = head - window
	}

	targets := lo.Uniq(lo.Map(records, func(r *models.TransactionRecord, _ int) common.Address {
		return common.HexToAddress(r.Target())
	}))
	logs, err := s.chain.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: targets,
		Topics:    [][]common.Hash{{domain.BatchTransferTopic}},
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("batch transfer logs: %v", err))
		return
	}

	byAddress := make(map[string]types.Log, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		byAddress[strings.ToLower(l.Address.Hex())] = l
	}

	for _, record := range records {
		match, ok := byAddress[strings.ToLower(record.Target())]
		if !ok {
			continue
		}
		_, err := s.store.Update(ctx, record.Hash, models.RecordUpdate{
			DelegatedConfirmed: lo.ToPtr(true),
			DelegatedHash:      lo.ToPtr(models.NormalizeHash(match.TxHash.Hex())),
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", record.Hash, err))
			continue
		}
		result.DelegatedConfirmed++
		s.log.Debug("batch address paid out", "hash", record.Hash, "address", record.Target(), "tx", match.TxHash.Hex())
	}
}
