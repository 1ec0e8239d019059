package usecase

import (
	"context"
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
)

// ListTransactions is the use case for listing payout records
type ListTransactions struct {
	store TransactionStore
}

// NewListTransactions creates a new ListTransactions use case
func NewListTransactions(store TransactionStore) *ListTransactions {
	return &ListTransactions{store: store}
}

// TransactionListResult contains the result of listing records
type TransactionListResult struct {
	Transactions []*models.TransactionRecord
	Summary      TransactionSummary
}

// TransactionSummary provides summary statistics
type TransactionSummary struct {
	Total    int
	Pending  int
	ByStatus map[models.TransactionStatus]int
	ByMethod map[models.PaymentMethod]int
	ByChain  map[uint64]int
}

// Run lists the records matching filter, newest first
func (uc *ListTransactions) Run(ctx context.Context, filter TransactionFilter) (*TransactionListResult, error) {
	records, err := uc.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PaidAt.After(records[j].PaidAt)
	})

	summary := TransactionSummary{
		Total:    len(records),
		ByStatus: make(map[models.TransactionStatus]int),
		ByMethod: make(map[models.PaymentMethod]int),
		ByChain:  make(map[uint64]int),
	}
	for _, r := range records {
		summary.ByStatus[r.Status]++
		summary.ByMethod[r.PaymentMethod.Canonical()]++
		summary.ByChain[r.ChainID]++
		if r.PendingDirect() || r.PendingDeployment() || r.PendingDelegated() {
			summary.Pending++
		}
	}

	return &TransactionListResult{Transactions: records, Summary: summary}, nil
}

// ShowTransaction is the use case for showing one payout record
type ShowTransaction struct {
	store  TransactionStore
	chain  ChainClient
	events EventParser
}

// NewShowTransaction creates a new ShowTransaction use case
func NewShowTransaction(store TransactionStore, chain ChainClient, events EventParser) *ShowTransaction {
	return &ShowTransaction{store: store, chain: chain, events: events}
}

// TransactionDetails is a record with its inspector metadata and the payout
// events found in its receipts
type TransactionDetails struct {
	Record    *models.TransactionRecord
	Inspector *models.InspectorMetadata
	Receipt   *types.Receipt
	Events    []domain.ParsedEvent
	// ChainError is set when receipts could not be fetched
	ChainError error
}

// Run loads the record stored under hash
func (uc *ShowTransaction) Run(ctx context.Context, hash string) (*TransactionDetails, error) {
	record, err := uc.store.Get(ctx, models.NormalizeHash(hash))
	if err != nil {
		return nil, err
	}
	details := &TransactionDetails{Record: record}

	inspector, err := uc.store.GetInspector(ctx, record.Hash)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	details.Inspector = inspector

	if uc.chain != nil {
		uc.loadReceipts(ctx, details)
	}
	return details, nil
}

// loadReceipts fetches the receipts of the record and its delegated
// execution. Missing receipts are not an error.
func (uc *ShowTransaction) loadReceipts(ctx context.Context, details *TransactionDetails) {
	hashes := []string{details.Record.Hash}
	if details.Record.DelegatedHash != "" {
		hashes = append(hashes, details.Record.DelegatedHash)
	}
	for i, hash := range hashes {
		receipt, err := uc.chain.TransactionReceipt(ctx, common.HexToHash(hash))
		if err != nil {
			if !errors.Is(err, ethereum.NotFound) {
				details.ChainError = err
				return
			}
			continue
		}
		if i == 0 {
			details.Receipt = receipt
		}
		if uc.events != nil {
			details.Events = append(details.Events, uc.events.ParseReceipt(receipt)...)
		}
	}
}

// ResumePayout consumes the snapshot left by a payout nobody watched
type ResumePayout struct {
	tracker *PayoutTracker
	store   TransactionStore
}

// NewResumePayout creates a new ResumePayout use case
func NewResumePayout(tracker *PayoutTracker, store TransactionStore) *ResumePayout {
	return &ResumePayout{tracker: tracker, store: store}
}

// ResumeResult is a consumed snapshot and the current state of its record
type ResumeResult struct {
	Snapshot *models.Snapshot
	Record   *models.TransactionRecord
}

// Run returns nil when there is nothing to resume
func (uc *ResumePayout) Run(ctx context.Context) (*ResumeResult, error) {
	snapshot, err := uc.tracker.ConsumeSnapshot(ctx)
	if err != nil || snapshot == nil {
		return nil, err
	}
	result := &ResumeResult{Snapshot: snapshot}
	if snapshot.State.Hash != "" {
		record, err := uc.store.Get(ctx, snapshot.State.Hash)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		result.Record = record
	}
	return result, nil
}
