package usecase_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

var (
	hashMined    = common.HexToHash("0x0a")
	hashPending  = common.HexToHash("0x0b")
	hashReverted = common.HexToHash("0x0c")
	hashPaid     = common.HexToHash("0x0d")
	hashUnpaid   = common.HexToHash("0x0e")
	hashDeploy   = common.HexToHash("0x0f")
	hashOther    = common.HexToHash("0x10")
	hashPayout   = common.HexToHash("0xbeef")

	paidTarget   = common.HexToAddress("0xd0000000000000000000000000000000000000aa")
	unpaidTarget = common.HexToAddress("0xd0000000000000000000000000000000000000bb")
	deployTarget = common.HexToAddress("0xd0000000000000000000000000000000000000cc")
)

func pendingRecord(hash common.Hash, chainID uint64, delegated bool, confirmed bool, target common.Address) *models.TransactionRecord {
	r := &models.TransactionRecord{
		Hash:          models.NormalizeHash(hash.Hex()),
		ChainID:       chainID,
		From:          sender.Hex(),
		PaymentMethod: models.PaymentMethodDefault,
		Status:        models.TransactionStatusSent,
		Confirmed:     lo.ToPtr(confirmed),
		Delegated:     delegated,
	}
	if delegated {
		r.PaymentMethod = models.PaymentMethodDelegatedTransfer
	}
	if confirmed {
		r.Status = models.TransactionStatusFinal
	}
	if target != (common.Address{}) {
		r.DelegatedAddress = target.Hex()
	}
	return r
}

func reconcileStore() *MemoryStore {
	return NewMemoryStore(
		pendingRecord(hashMined, testChainID, false, false, common.Address{}),
		pendingRecord(hashPending, testChainID, false, false, common.Address{}),
		pendingRecord(hashReverted, testChainID, false, false, common.Address{}),
		pendingRecord(hashPaid, testChainID, true, true, paidTarget),
		pendingRecord(hashUnpaid, testChainID, true, true, unpaidTarget),
		pendingRecord(hashDeploy, testChainID, true, false, common.Address{}),
		pendingRecord(hashOther, domain.ChainEthereum, false, false, common.Address{}),
	)
}

func batchTransferLog(contract common.Address, tx common.Hash) types.Log {
	return types.Log{
		Address: contract,
		Topics:  []common.Hash{domain.BatchTransferTopic},
		TxHash:  tx,
	}
}

func newReconcileChain() *MockChainClient {
	chain := new(MockChainClient)
	chain.On("ChainID", mock.Anything).Return(testChainID, nil)
	chain.On("BlockNumber", mock.Anything).Return(uint64(250000), nil)
	chain.On("TransactionReceipt", mock.Anything, hashMined).Return(&types.Receipt{Status: types.ReceiptStatusSuccessful}, nil)
	chain.On("TransactionReceipt", mock.Anything, hashPending).Return(nil, ethereum.NotFound)
	chain.On("TransactionReceipt", mock.Anything, hashReverted).Return(&types.Receipt{Status: types.ReceiptStatusFailed}, nil)
	chain.On("TransactionReceipt", mock.Anything, hashDeploy).Return(&types.Receipt{Status: types.ReceiptStatusSuccessful, ContractAddress: deployTarget}, nil)
	return chain
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	store := reconcileStore()
	chain := newReconcileChain()
	chain.On("FilterLogs", mock.Anything, mock.Anything).Return([]types.Log{
		batchTransferLog(paidTarget, hashPayout),
		{Address: unpaidTarget, Topics: []common.Hash{domain.BatchTransferTopic}, TxHash: hashPayout, Removed: true},
	}, nil)

	uc := usecase.NewReconcileTransactions(&config.RuntimeConfig{}, store, chain, &RecordingProgress{}, discardLogger)
	result, err := uc.Reconcile(ctx, usecase.ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, testChainID, result.ChainID)
	assert.Equal(t, 3, result.DirectChecked)
	assert.Equal(t, 2, result.Confirmed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.StillPending)
	assert.Equal(t, 3, result.DelegatedChecked)
	assert.Equal(t, 1, result.DelegatedConfirmed)
	assert.Empty(t, result.Errors)

	get := func(h common.Hash) *models.TransactionRecord {
		r, err := store.Get(ctx, models.NormalizeHash(h.Hex()))
		require.NoError(t, err)
		return r
	}
	assert.Equal(t, models.TransactionStatusFinal, get(hashMined).Status)
	assert.True(t, get(hashMined).IsConfirmed())
	assert.Equal(t, models.TransactionStatusSent, get(hashPending).Status)
	assert.Equal(t, models.TransactionStatusFailed, get(hashReverted).Status)
	assert.Equal(t, deployTarget.Hex(), get(hashDeploy).DelegatedAddress)

	paid := get(hashPaid)
	assert.True(t, paid.DelegatedConfirmed)
	assert.Equal(t, models.NormalizeHash(hashPayout.Hex()), paid.DelegatedHash)
	assert.False(t, get(hashUnpaid).DelegatedConfirmed)
	assert.Equal(t, models.TransactionStatusSent, get(hashOther).Status)

	query := chain.Calls[len(chain.Calls)-1].Arguments.Get(1).(ethereum.FilterQuery)
	assert.Equal(t, big.NewInt(150000), query.FromBlock)
	assert.Equal(t, big.NewInt(250000), query.ToBlock)
	assert.Equal(t, [][]common.Hash{{domain.BatchTransferTopic}}, query.Topics)
	assert.ElementsMatch(t, []common.Address{paidTarget, unpaidTarget, deployTarget}, query.Addresses)
	chain.AssertNotCalled(t, "TransactionReceipt", mock.Anything, hashOther)
}

func TestReconcileDoesNotReprocess(t *testing.T) {
	ctx := context.Background()
	store := reconcileStore()
	chain := newReconcileChain()
	chain.On("FilterLogs", mock.Anything, mock.Anything).Return([]types.Log{batchTransferLog(paidTarget, hashPayout)}, nil)

	uc := usecase.NewReconcileTransactions(&config.RuntimeConfig{ReconcileWindow: 500}, store, chain, &RecordingProgress{}, discardLogger)
	_, err := uc.Reconcile(ctx, usecase.ReconcileOptions{})
	require.NoError(t, err)
	updates := store.updates

	second, err := uc.Reconcile(ctx, usecase.ReconcileOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Updated())
	assert.Equal(t, 1, second.DirectChecked)
	assert.Equal(t, 1, second.StillPending)
	assert.Equal(t, 2, second.DelegatedChecked)
	assert.Equal(t, updates, store.updates)

	query := chain.Calls[len(chain.Calls)-1].Arguments.Get(1).(ethereum.FilterQuery)
	assert.Equal(t, big.NewInt(249500), query.FromBlock)
	assert.NotContains(t, query.Addresses, paidTarget)
}

func TestReconcileCollectsErrors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(
		pendingRecord(hashMined, testChainID, false, false, common.Address{}),
		pendingRecord(hashPending, testChainID, false, false, common.Address{}),
		pendingRecord(hashPaid, testChainID, true, true, paidTarget),
	)
	chain := new(MockChainClient)
	chain.On("ChainID", mock.Anything).Return(testChainID, nil)
	chain.On("TransactionReceipt", mock.Anything, hashMined).Return(&types.Receipt{Status: types.ReceiptStatusSuccessful}, nil)
	chain.On("TransactionReceipt", mock.Anything, hashPending).Return(nil, errors.New("header not found"))
	chain.On("BlockNumber", mock.Anything).Return(uint64(0), errors.New("connection reset"))

	uc := usecase.NewReconcileTransactions(&config.RuntimeConfig{}, store, chain, &RecordingProgress{}, discardLogger)
	result, err := uc.Reconcile(ctx, usecase.ReconcileOptions{Window: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Confirmed)
	assert.Len(t, result.Errors, 2)
	chain.AssertNotCalled(t, "FilterLogs", mock.Anything, mock.Anything)
}

func TestReconcileChainUnavailable(t *testing.T) {
	chain := new(MockChainClient)
	chain.On("ChainID", mock.Anything).Return(uint64(0), errors.New("dial tcp: connection refused"))

	uc := usecase.NewReconcileTransactions(&config.RuntimeConfig{}, NewMemoryStore(), chain, &RecordingProgress{}, discardLogger)
	_, err := uc.Reconcile(context.Background(), usecase.ReconcileOptions{})
	assert.ErrorIs(t, err, domain.ErrChainCallFailed)
}

func TestReconcileFinalizesRecordsLeftConfirmed(t *testing.T) {
	ctx := context.Background()
	record := pendingRecord(hashMined, testChainID, false, true, common.Address{})
	record.Status = models.TransactionStatusConfirmed
	record.Confirmations = 1
	store := NewMemoryStore(record)

	chain := newReconcileChain()
	uc := usecase.NewReconcileTransactions(&config.RuntimeConfig{}, store, chain, &RecordingProgress{}, discardLogger)
	result, err := uc.Reconcile(ctx, usecase.ReconcileOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Confirmed)

	stored, err := store.Get(ctx, record.Hash)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFinal, stored.Status)
	assert.Equal(t, 1, stored.Confirmations)
	assert.False(t, stored.PendingDirect())
}
