package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

const (
	transactionsFile = "transactions.json"
	inspectorsFile   = "inspector.json"
	walletsFile      = "wallets.json"
	snapshotFile     = "snapshot.json"
)

// TransactionStoreAdapter implements TransactionStore with JSON files under
// the data directory. Every write rewrites the file through a rename.
type TransactionStoreAdapter struct {
	dir string
	now func() time.Time

	mu sync.RWMutex
}

// NewTransactionStoreAdapter creates a new TransactionStoreAdapter
func NewTransactionStoreAdapter(cfg *config.RuntimeConfig) *TransactionStoreAdapter {
	dir := cfg.Store.Path
	if dir == "" {
		dir = cfg.DataDir
	}
	return &TransactionStoreAdapter{dir: dir, now: time.Now}
}

func (s *TransactionStoreAdapter) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readJSON decodes name into v. A missing file leaves v untouched.
func (s *TransactionStoreAdapter) readJSON(name string, v any) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (s *TransactionStoreAdapter) writeJSON(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// loadRecords reads the record map, folding records whose hashes differ
// only in case into one entry
func (s *TransactionStoreAdapter) loadRecords() (map[string]*models.TransactionRecord, error) {
	raw := make(map[string]*models.TransactionRecord)
	if err := s.readJSON(transactionsFile, &raw); err != nil {
		return nil, err
	}

	keys := lo.Keys(raw)
	sort.Strings(keys)
	records := make(map[string]*models.TransactionRecord, len(raw))
	for _, key := range keys {
		record := raw[key]
		if record == nil {
			continue
		}
		hash := models.NormalizeHash(lo.CoalesceOrEmpty(record.Hash, key))
		record.Hash = hash
		if existing, ok := records[hash]; ok {
			existing.Merge(record)
			continue
		}
		records[hash] = record
	}
	return records, nil
}

// Get returns domain.ErrNotFound for unknown hashes
func (s *TransactionStoreAdapter) Get(_ context.Context, hash string) (*models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.loadRecords()
	if err != nil {
		return nil, err
	}
	record, ok := records[models.NormalizeHash(hash)]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", hash, domain.ErrNotFound)
	}
	return record, nil
}

// List returns matching records ordered by hash
func (s *TransactionStoreAdapter) List(_ context.Context, filter usecase.TransactionFilter) ([]*models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.loadRecords()
	if err != nil {
		return nil, err
	}
	out := lo.Filter(lo.Values(records), func(r *models.TransactionRecord, _ int) bool {
		return Matches(r, filter)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out, nil
}

// Matches reports whether record passes filter
func Matches(record *models.TransactionRecord, filter usecase.TransactionFilter) bool {
	if filter.ChainID != 0 && record.ChainID != filter.ChainID {
		return false
	}
	if filter.From != "" && !strings.EqualFold(record.From, filter.From) {
		return false
	}
	if filter.PaymentMethod != "" && record.PaymentMethod.Canonical() != filter.PaymentMethod.Canonical() {
		return false
	}
	if filter.Status != "" && record.Status != filter.Status {
		return false
	}
	return true
}

// Save inserts record, merging it into an existing record with the same hash
func (s *TransactionStoreAdapter) Save(_ context.Context, record *models.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords()
	if err != nil {
		return err
	}
	hash := models.NormalizeHash(record.Hash)
	if hash == "" {
		return fmt.Errorf("%w: record without hash", domain.ErrInvalidPayment)
	}

	if existing, ok := records[hash]; ok {
		existing.Merge(record)
		existing.UpdatedAt = s.now().UTC()
	} else {
		cp := *record
		cp.Hash = hash
		records[hash] = &cp
	}
	return s.writeJSON(transactionsFile, records)
}

// Update applies update to the record stored under hash
func (s *TransactionStoreAdapter) Update(_ context.Context, hash string, update models.RecordUpdate) (*models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords()
	if err != nil {
		return nil, err
	}
	record, ok := records[models.NormalizeHash(hash)]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", hash, domain.ErrNotFound)
	}
	if !update.Apply(record) {
		return record, nil
	}
	record.UpdatedAt = s.now().UTC()
	if err := s.writeJSON(transactionsFile, records); err != nil {
		return nil, err
	}
	return record, nil
}

// SaveSnapshot replaces the pending snapshot
func (s *TransactionStoreAdapter) SaveSnapshot(_ context.Context, snapshot *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(snapshotFile, snapshot)
}

// ConsumeSnapshot returns the pending snapshot and removes it
func (s *TransactionStoreAdapter) ConsumeSnapshot(_ context.Context) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot *models.Snapshot
	if err := s.readJSON(snapshotFile, &snapshot); err != nil {
		return nil, err
	}
	if err := os.Remove(s.path(snapshotFile)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return snapshot, nil
}

// SaveInspector stores metadata under its transaction hash
func (s *TransactionStoreAdapter) SaveInspector(_ context.Context, metadata *models.InspectorMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inspectors := make(map[string]*models.InspectorMetadata)
	if err := s.readJSON(inspectorsFile, &inspectors); err != nil {
		return err
	}
	inspectors[models.NormalizeHash(metadata.TransactionHash)] = metadata
	return s.writeJSON(inspectorsFile, inspectors)
}

func (s *TransactionStoreAdapter) GetInspector(_ context.Context, hash string) (*models.InspectorMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inspectors := make(map[string]*models.InspectorMetadata)
	if err := s.readJSON(inspectorsFile, &inspectors); err != nil {
		return nil, err
	}
	metadata, ok := inspectors[models.NormalizeHash(hash)]
	if !ok {
		return nil, fmt.Errorf("inspector metadata %s: %w", hash, domain.ErrNotFound)
	}
	return metadata, nil
}

// WalletKey identifies a smart wallet by chain and owner
func WalletKey(chainID uint64, owner string) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(common.HexToAddress(owner).Hex()))
}

func (s *TransactionStoreAdapter) SaveWallet(_ context.Context, wallet *models.SmartWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallets := make(map[string]*models.SmartWallet)
	if err := s.readJSON(walletsFile, &wallets); err != nil {
		return err
	}
	wallets[WalletKey(wallet.ChainID, wallet.Owner)] = wallet
	return s.writeJSON(walletsFile, wallets)
}

func (s *TransactionStoreAdapter) GetWallet(_ context.Context, chainID uint64, owner string) (*models.SmartWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallets := make(map[string]*models.SmartWallet)
	if err := s.readJSON(walletsFile, &wallets); err != nil {
		return nil, err
	}
	wallet, ok := wallets[WalletKey(chainID, owner)]
	if !ok {
		return nil, fmt.Errorf("smart wallet for %s on chain %d: %w", owner, chainID, domain.ErrNotFound)
	}
	return wallet, nil
}

// Ensure TransactionStoreAdapter implements TransactionStore
var _ usecase.TransactionStore = (*TransactionStoreAdapter)(nil)
