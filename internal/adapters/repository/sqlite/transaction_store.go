package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// DefaultFile is the database file created in the data directory
const DefaultFile = "payrail.db"

// TransactionStore keeps payout records in SQLite. Records are stored as JSON
// documents next to the columns List filters on.
type TransactionStore struct {
	Db  *sqlx.DB
	log *slog.Logger
	now func() time.Time
}

type recordRow struct {
	Hash          string `db:"hash"`
	ChainID       uint64 `db:"chain_id"`
	Sender        string `db:"sender"`
	PaymentMethod string `db:"payment_method"`
	Status        string `db:"status"`
	Data          string `db:"data"`
}

// NewTransactionStore opens the database configured by cfg and creates its tables
func NewTransactionStore(cfg *config.RuntimeConfig, log *slog.Logger) (*TransactionStore, error) {
	path := cfg.Store.Path
	if path == "" {
		path = filepath.Join(cfg.DataDir, DefaultFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// one connection serializes the read-merge-write of Save and Update
	db.SetMaxOpenConns(1)

	store := &TransactionStore{Db: db, log: log.With("component", "sqlite"), now: time.Now}
	if err := store.CreateTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *TransactionStore) CreateTables() error {
	schema := `CREATE TABLE IF NOT EXISTS transactions (
		hash            text NOT NULL PRIMARY KEY,
		chain_id        integer NOT NULL,
		sender          text NOT NULL,
		payment_method  text NOT NULL,
		status          text NOT NULL,
		data            text NOT NULL,
		updated_at      integer NOT NULL);
	CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
	CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(chain_id, sender);
	CREATE TABLE IF NOT EXISTS inspectors (
		hash  text NOT NULL PRIMARY KEY,
		data  text NOT NULL);
	CREATE TABLE IF NOT EXISTS wallets (
		chain_id  integer NOT NULL,
		owner     text NOT NULL,
		data      text NOT NULL,
		PRIMARY KEY (chain_id, owner));
	CREATE TABLE IF NOT EXISTS snapshots (
		id    integer NOT NULL PRIMARY KEY CHECK (id = 1),
		data  text NOT NULL);`
	_, err := s.Db.Exec(schema)
	if err != nil {
		s.log.Error("Create table error", "error", err)
		return fmt.Errorf("failed to create tables: %w", err)
	}
	s.log.Debug("Transaction tables created")
	return nil
}

func (s *TransactionStore) Close() error {
	return s.Db.Close()
}

func decodeRecord(data string) (*models.TransactionRecord, error) {
	var record models.TransactionRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &record, nil
}

func (s *TransactionStore) get(ctx context.Context, q sqlx.QueryerContext, hash string) (*models.TransactionRecord, error) {
	var data string
	err := sqlx.GetContext(ctx, q, &data, `SELECT data FROM transactions WHERE hash = $1`, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", hash, domain.ErrNotFound)
		}
		return nil, err
	}
	return decodeRecord(data)
}

func (s *TransactionStore) put(ctx context.Context, exec sqlx.ExecerContext, record *models.TransactionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	_, err = exec.ExecContext(ctx, `INSERT INTO transactions (
		hash, chain_id, sender, payment_method, status, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT(hash) DO UPDATE SET
			chain_id = excluded.chain_id,
			sender = excluded.sender,
			payment_method = excluded.payment_method,
			status = excluded.status,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		record.Hash,
		record.ChainID,
		strings.ToLower(record.From),
		string(record.PaymentMethod.Canonical()),
		string(record.Status),
		string(data),
		s.now().Unix(),
	)
	return err
}

func (s *TransactionStore) Get(ctx context.Context, hash string) (*models.TransactionRecord, error) {
	return s.get(ctx, s.Db, models.NormalizeHash(hash))
}

// List returns matching records ordered by hash
func (s *TransactionStore) List(ctx context.Context, filter usecase.TransactionFilter) ([]*models.TransactionRecord, error) {
	query := `SELECT hash, chain_id, sender, payment_method, status, data FROM transactions`
	var where []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.ChainID != 0 {
		add("chain_id = $%d", filter.ChainID)
	}
	if filter.From != "" {
		add("sender = $%d", strings.ToLower(filter.From))
	}
	if filter.PaymentMethod != "" {
		add("payment_method = $%d", string(filter.PaymentMethod.Canonical()))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY hash"

	var rows []recordRow
	if err := s.Db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	records := make([]*models.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		record, err := decodeRecord(row.Data)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Save inserts record, merging it into an existing record with the same hash
func (s *TransactionStore) Save(ctx context.Context, record *models.TransactionRecord) error {
	hash := models.NormalizeHash(record.Hash)
	if hash == "" {
		return fmt.Errorf("%w: record without hash", domain.ErrInvalidPayment)
	}

	tx, err := s.Db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := s.get(ctx, tx, hash)
	switch {
	case err == nil:
		existing.Merge(record)
		existing.UpdatedAt = s.now().UTC()
	case errors.Is(err, domain.ErrNotFound):
		cp := *record
		existing = &cp
		existing.Hash = hash
	default:
		return err
	}

	if err := s.put(ctx, tx, existing); err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", hash, err)
	}
	return tx.Commit()
}

// Update applies update to the record stored under hash
func (s *TransactionStore) Update(ctx context.Context, hash string, update models.RecordUpdate) (*models.TransactionRecord, error) {
	hash = models.NormalizeHash(hash)
	tx, err := s.Db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	record, err := s.get(ctx, tx, hash)
	if err != nil {
		return nil, err
	}
	if !update.Apply(record) {
		return record, nil
	}
	record.UpdatedAt = s.now().UTC()
	if err := s.put(ctx, tx, record); err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", hash, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *TransactionStore) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = s.Db.ExecContext(ctx, `INSERT INTO snapshots (id, data) VALUES (1, $1)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data`, string(data))
	return err
}

// ConsumeSnapshot returns the pending snapshot and deletes it
func (s *TransactionStore) ConsumeSnapshot(ctx context.Context) (*models.Snapshot, error) {
	tx, err := s.Db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	var data string
	if err := tx.GetContext(ctx, &data, `SELECT data FROM snapshots WHERE id = 1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = 1`); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *TransactionStore) SaveInspector(ctx context.Context, metadata *models.InspectorMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	_, err = s.Db.ExecContext(ctx, `INSERT INTO inspectors (hash, data) VALUES ($1, $2)
		ON CONFLICT(hash) DO UPDATE SET data = excluded.data`,
		models.NormalizeHash(metadata.TransactionHash), string(data))
	return err
}

func (s *TransactionStore) GetInspector(ctx context.Context, hash string) (*models.InspectorMetadata, error) {
	var data string
	err := s.Db.GetContext(ctx, &data, `SELECT data FROM inspectors WHERE hash = $1`, models.NormalizeHash(hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("inspector metadata %s: %w", hash, domain.ErrNotFound)
		}
		return nil, err
	}
	var metadata models.InspectorMetadata
	if err := json.Unmarshal([]byte(data), &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

func walletOwner(owner string) string {
	return strings.ToLower(common.HexToAddress(owner).Hex())
}

func (s *TransactionStore) SaveWallet(ctx context.Context, wallet *models.SmartWallet) error {
	data, err := json.Marshal(wallet)
	if err != nil {
		return err
	}
	_, err = s.Db.ExecContext(ctx, `INSERT INTO wallets (chain_id, owner, data) VALUES ($1, $2, $3)
		ON CONFLICT(chain_id, owner) DO UPDATE SET data = excluded.data`,
		wallet.ChainID, walletOwner(wallet.Owner), string(data))
	return err
}

func (s *TransactionStore) GetWallet(ctx context.Context, chainID uint64, owner string) (*models.SmartWallet, error) {
	var data string
	err := s.Db.GetContext(ctx, &data, `SELECT data FROM wallets WHERE chain_id = $1 AND owner = $2`, chainID, walletOwner(owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("smart wallet for %s on chain %d: %w", owner, chainID, domain.ErrNotFound)
		}
		return nil, err
	}
	var wallet models.SmartWallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

var _ usecase.TransactionStore = (*TransactionStore)(nil)
