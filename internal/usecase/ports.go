package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/pkg/safe"
)

// CallRequest is a transaction the wallet sends. A nil To deploys Data.
type CallRequest struct {
	To    *common.Address
	Value *big.Int
	Data  []byte
}

// IsDeployment reports whether the request creates a contract
func (c CallRequest) IsDeployment() bool {
	return c.To == nil
}

// ChainClient is the read/write surface of an RPC node
type ChainClient interface {
	ChainID(ctx context.Context) (uint64, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Wallet is the external signer payouts are sent from
type Wallet interface {
	Address() common.Address
	SendTransaction(ctx context.Context, req CallRequest) (common.Hash, error)
	SignTypedData(ctx context.Context, method safe.SignMethod, data apitypes.TypedData) ([]byte, error)
}

// SafeRelay is the Safe transaction service of the current network
type SafeRelay interface {
	SafeInfo(ctx context.Context, safeAddress common.Address) (*models.SafeInfo, error)
	LatestNonce(ctx context.Context, safeAddress common.Address) (nonce uint64, found bool, err error)
	Propose(ctx context.Context, safeAddress common.Address, proposal *safe.Proposal) error
	GetPendingTransactions(ctx context.Context, safeAddress common.Address) ([]*safe.MultisigTransaction, error)
}

// TransactionFilter narrows List results. Zero values match everything.
type TransactionFilter struct {
	ChainID       uint64
	From          string
	PaymentMethod models.PaymentMethod
	Status        models.TransactionStatus
}

// TransactionStore persists payout records and their side documents.
// Save and Update merge by hash and are safe to call concurrently.
type TransactionStore interface {
	Get(ctx context.Context, hash string) (*models.TransactionRecord, error)
	List(ctx context.Context, filter TransactionFilter) ([]*models.TransactionRecord, error)
	Save(ctx context.Context, record *models.TransactionRecord) error
	Update(ctx context.Context, hash string, update models.RecordUpdate) (*models.TransactionRecord, error)

	SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error
	// ConsumeSnapshot returns the pending snapshot and clears it. It returns nil when none exists.
	ConsumeSnapshot(ctx context.Context) (*models.Snapshot, error)

	SaveInspector(ctx context.Context, metadata *models.InspectorMetadata) error
	GetInspector(ctx context.Context, hash string) (*models.InspectorMetadata, error)

	SaveWallet(ctx context.Context, wallet *models.SmartWallet) error
	GetWallet(ctx context.Context, chainID uint64, owner string) (*models.SmartWallet, error)
}

// Event is a notification delivered to bus subscribers
type Event struct {
	Name    domain.Notification
	Payload any
}

// Subscription receives events until closed
type Subscription interface {
	Out() <-chan Event
	Close() error
}

// EventBus delivers lifecycle notifications in process
type EventBus interface {
	Emit(name domain.Notification, payload any)
	Subscribe(names ...domain.Notification) (Subscription, error)
}

// PresenceOracle reports whether a user-facing surface is watching
type PresenceOracle interface {
	Visible() bool
}

// ContractsRegistry provides contract metadata per chain
type ContractsRegistry interface {
	ChainContracts(ctx context.Context, chainID uint64) (*models.ChainContracts, error)
}

// DAO is a resolved Aragon organization
type DAO struct {
	Name    string
	Address common.Address
	Apps    map[string]common.Address
}

// DAOResolver resolves Aragon DAOs and discovers their installed apps
type DAOResolver interface {
	ResolveDAO(ctx context.Context, name string) (common.Address, error)
	DiscoverApps(ctx context.Context, dao common.Address) (map[string]common.Address, error)
}

// EventParser decodes payout contract events
type EventParser interface {
	ParseReceipt(receipt *types.Receipt) []domain.ParsedEvent
}

// ReceiptUpdate is one observation of a transaction being mined deeper
type ReceiptUpdate struct {
	Receipt       *types.Receipt
	Confirmations int
	Err           error
}

// ReceiptWatcher follows a transaction until it reached the given depth.
// The returned channel is closed once done, on failure or when ctx ends.
type ReceiptWatcher interface {
	Watch(ctx context.Context, hash common.Hash, confirmations int) <-chan ReceiptUpdate
}

// NetworkResolver handles network configuration resolution
type NetworkResolver interface {
	GetNetworks(ctx context.Context) []string
	ResolveNetwork(ctx context.Context, networkName string) (*config.Network, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// StageDone completes the running stage and stops any spinner
const StageDone = "done"

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// PaymentMethodSelector handles interactive selection of payment methods
type PaymentMethodSelector interface {
	SelectPaymentMethod(ctx context.Context, methods []models.PaymentMethod, prompt string) (models.PaymentMethod, error)
}
