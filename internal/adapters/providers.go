package adapters

import (
	"fmt"
	"log/slog"

	"github.com/google/wire"

	"github.com/trebuchet-org/payrail/internal/adapters/abi"
	"github.com/trebuchet-org/payrail/internal/adapters/blockchain"
	"github.com/trebuchet-org/payrail/internal/adapters/dao"
	"github.com/trebuchet-org/payrail/internal/adapters/events"
	"github.com/trebuchet-org/payrail/internal/adapters/fs"
	"github.com/trebuchet-org/payrail/internal/adapters/interactive"
	"github.com/trebuchet-org/payrail/internal/adapters/presence"
	"github.com/trebuchet-org/payrail/internal/adapters/progress"
	"github.com/trebuchet-org/payrail/internal/adapters/repository/contracts"
	"github.com/trebuchet-org/payrail/internal/adapters/repository/sqlite"
	"github.com/trebuchet-org/payrail/internal/adapters/safe"
	"github.com/trebuchet-org/payrail/internal/adapters/signer"
	internalconfig "github.com/trebuchet-org/payrail/internal/config"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// ProvideTransactionStore selects the record store backend configured by store.driver
func ProvideTransactionStore(cfg *config.RuntimeConfig, log *slog.Logger) (usecase.TransactionStore, error) {
	switch cfg.Store.Driver {
	case "", "json":
		return fs.NewTransactionStoreAdapter(cfg), nil
	case "sqlite":
		return sqlite.NewTransactionStore(cfg, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// ProvideProgressSink renders progress on the terminal unless output is JSON
func ProvideProgressSink(cfg *config.RuntimeConfig, log *slog.Logger) usecase.ProgressSink {
	if cfg.JSON {
		return progress.NewLogSink(log)
	}
	return progress.NewSpinnerProgressReporter()
}

// StoreSet provides the record store
var StoreSet = wire.NewSet(
	ProvideTransactionStore,
)

// ChainSet provides chain access, signing and contract metadata
var ChainSet = wire.NewSet(
	blockchain.NewClient,
	wire.Bind(new(usecase.ChainClient), new(*blockchain.Client)),

	blockchain.NewReceiptWatcher,
	wire.Bind(new(usecase.ReceiptWatcher), new(*blockchain.ReceiptWatcher)),

	signer.NewWallet,

	contracts.NewRepository,
	wire.Bind(new(usecase.ContractsRegistry), new(*contracts.Repository)),

	abi.NewEventParser,
	wire.Bind(new(usecase.EventParser), new(*abi.EventParser)),
)

// GovernanceSet provides the Aragon and Safe integrations
var GovernanceSet = wire.NewSet(
	dao.NewResolver,
	wire.Bind(new(usecase.DAOResolver), new(*dao.Resolver)),

	safe.NewRelayAdapter,
	wire.Bind(new(usecase.SafeRelay), new(*safe.RelayAdapter)),
)

// NotificationSet provides the event bus and the presence oracle
var NotificationSet = wire.NewSet(
	events.NewBus,
	wire.Bind(new(usecase.EventBus), new(*events.Bus)),

	presence.NewTerminalPresence,
	wire.Bind(new(usecase.PresenceOracle), new(*presence.TerminalPresence)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewSelectorAdapter,
	wire.Bind(new(usecase.PaymentMethodSelector), new(*interactive.SelectorAdapter)),

	ProvideProgressSink,
)

// ConfigSet provides configuration-based implementations
var ConfigSet = wire.NewSet(
	internalconfig.ProvideNetworkResolver,
	wire.Bind(new(usecase.NetworkResolver), new(*internalconfig.NetworkResolver)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	StoreSet,
	ChainSet,
	GovernanceSet,
	NotificationSet,
	InteractiveSet,
	ConfigSet,
)
