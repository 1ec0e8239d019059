package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/mock"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
	"github.com/trebuchet-org/payrail/pkg/safe"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockWallet is a mock implementation of Wallet
type MockWallet struct {
	mock.Mock
	address common.Address
}

func (m *MockWallet) Address() common.Address {
	return m.address
}

func (m *MockWallet) SendTransaction(ctx context.Context, req usecase.CallRequest) (common.Hash, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(common.Hash), args.Error(1)
}

func (m *MockWallet) SignTypedData(ctx context.Context, method safe.SignMethod, data apitypes.TypedData) ([]byte, error) {
	args := m.Called(ctx, method, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockSafeRelay is a mock implementation of SafeRelay
type MockSafeRelay struct {
	mock.Mock
}

func (m *MockSafeRelay) SafeInfo(ctx context.Context, safeAddress common.Address) (*models.SafeInfo, error) {
	args := m.Called(ctx, safeAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SafeInfo), args.Error(1)
}

func (m *MockSafeRelay) LatestNonce(ctx context.Context, safeAddress common.Address) (uint64, bool, error) {
	args := m.Called(ctx, safeAddress)
	return args.Get(0).(uint64), args.Bool(1), args.Error(2)
}

func (m *MockSafeRelay) Propose(ctx context.Context, safeAddress common.Address, proposal *safe.Proposal) error {
	args := m.Called(ctx, safeAddress, proposal)
	return args.Error(0)
}

func (m *MockSafeRelay) GetPendingTransactions(ctx context.Context, safeAddress common.Address) ([]*safe.MultisigTransaction, error) {
	args := m.Called(ctx, safeAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*safe.MultisigTransaction), args.Error(1)
}

// MockChainClient is a mock implementation of ChainClient. Contract calls
// go to caller when set.
type MockChainClient struct {
	mock.Mock
	caller safe.ContractCaller
}

func (m *MockChainClient) ChainID(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainClient) BlockNumber(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if m.caller != nil {
		return m.caller.CallContract(ctx, msg, blockNumber)
	}
	args := m.Called(ctx, msg, blockNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockChainClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Receipt), args.Error(1)
}

func (m *MockChainClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Log), args.Error(1)
}

func (m *MockChainClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockChainClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// MockDAOResolver is a mock implementation of DAOResolver
type MockDAOResolver struct {
	mock.Mock
}

func (m *MockDAOResolver) ResolveDAO(ctx context.Context, name string) (common.Address, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(common.Address), args.Error(1)
}

func (m *MockDAOResolver) DiscoverApps(ctx context.Context, dao common.Address) (map[string]common.Address, error) {
	args := m.Called(ctx, dao)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]common.Address), args.Error(1)
}

// MemoryStore is an in-memory TransactionStore
type MemoryStore struct {
	mu         sync.Mutex
	records    map[string]*models.TransactionRecord
	inspectors map[string]*models.InspectorMetadata
	wallets    map[string]*models.SmartWallet
	snapshot   *models.Snapshot
	updates    int
}

func NewMemoryStore(records ...*models.TransactionRecord) *MemoryStore {
	s := &MemoryStore{
		records:    make(map[string]*models.TransactionRecord),
		inspectors: make(map[string]*models.InspectorMetadata),
		wallets:    make(map[string]*models.SmartWallet),
	}
	for _, r := range records {
		cp := *r
		s.records[r.Hash] = &cp
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, hash string) (*models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, filter usecase.TransactionFilter) ([]*models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.TransactionRecord, 0, len(s.records))
	for _, r := range s.records {
		if filter.ChainID != 0 && r.ChainID != filter.ChainID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, record *models.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[record.Hash]; ok {
		existing.Merge(record)
		return nil
	}
	cp := *record
	s.records[record.Hash] = &cp
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, hash string, update models.RecordUpdate) (*models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if update.Apply(r) {
		s.updates++
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	return nil
}

func (s *MemoryStore) ConsumeSnapshot(ctx context.Context) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.snapshot
	s.snapshot = nil
	return snapshot, nil
}

func (s *MemoryStore) SaveInspector(ctx context.Context, metadata *models.InspectorMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inspectors[metadata.TransactionHash] = metadata
	return nil
}

func (s *MemoryStore) GetInspector(ctx context.Context, hash string) (*models.InspectorMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.inspectors[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) SaveWallet(ctx context.Context, wallet *models.SmartWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[walletKey(wallet.ChainID, wallet.Owner)] = wallet
	return nil
}

func (s *MemoryStore) GetWallet(ctx context.Context, chainID uint64, owner string) (*models.SmartWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletKey(chainID, owner)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return w, nil
}

func walletKey(chainID uint64, owner string) string {
	return common.HexToAddress(owner).Hex() + "@" + new(big.Int).SetUint64(chainID).String()
}

// RecordingBus records emitted notifications
type RecordingBus struct {
	mu     sync.Mutex
	events []usecase.Event
}

func (b *RecordingBus) Emit(name domain.Notification, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, usecase.Event{Name: name, Payload: payload})
}

func (b *RecordingBus) Subscribe(names ...domain.Notification) (usecase.Subscription, error) {
	return nil, nil
}

func (b *RecordingBus) Names() []domain.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]domain.Notification, len(b.events))
	for i, e := range b.events {
		names[i] = e.Name
	}
	return names
}

type staticPresence bool

func (p staticPresence) Visible() bool { return bool(p) }

// StaticContracts serves a fixed contract set per chain
type StaticContracts map[uint64]*models.ChainContracts

func (c StaticContracts) ChainContracts(ctx context.Context, chainID uint64) (*models.ChainContracts, error) {
	contracts, ok := c[chainID]
	if !ok {
		return nil, domain.ErrUnsupportedNetwork
	}
	return contracts, nil
}

// ScriptedWatcher replays receipt updates per transaction hash
type ScriptedWatcher struct {
	mu      sync.Mutex
	updates map[common.Hash][]usecase.ReceiptUpdate
	watched []common.Hash
}

func NewScriptedWatcher() *ScriptedWatcher {
	return &ScriptedWatcher{updates: make(map[common.Hash][]usecase.ReceiptUpdate)}
}

// Mine scripts n successful confirmations of hash
func (w *ScriptedWatcher) Mine(hash common.Hash, n int, contract common.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := 1; i <= n; i++ {
		w.updates[hash] = append(w.updates[hash], usecase.ReceiptUpdate{
			Receipt:       &types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful, ContractAddress: contract},
			Confirmations: i,
		})
	}
}

// Revert scripts a failed receipt for hash
func (w *ScriptedWatcher) Revert(hash common.Hash) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.updates[hash] = append(w.updates[hash], usecase.ReceiptUpdate{
		Receipt:       &types.Receipt{TxHash: hash, Status: types.ReceiptStatusFailed},
		Confirmations: 1,
	})
}

func (w *ScriptedWatcher) Watch(ctx context.Context, hash common.Hash, confirmations int) <-chan usecase.ReceiptUpdate {
	w.mu.Lock()
	updates := w.updates[hash]
	w.watched = append(w.watched, hash)
	w.mu.Unlock()

	out := make(chan usecase.ReceiptUpdate, len(updates))
	for _, u := range updates {
		out <- u
	}
	close(out)
	return out
}

// RecordingProgress records progress events
type RecordingProgress struct {
	mu     sync.Mutex
	events []usecase.ProgressEvent
}

func (p *RecordingProgress) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *RecordingProgress) Info(string)  {}
func (p *RecordingProgress) Error(string) {}
