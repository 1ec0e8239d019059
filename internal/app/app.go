package app

import (
	"log/slog"

	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Shared dependencies
	Wallet   usecase.Wallet
	Bus      usecase.EventBus
	Selector usecase.PaymentMethodSelector
	Resolver *usecase.PayoutResolver

	// Use cases
	MakePayout            *usecase.MakePayout
	CreateSmartWallet     *usecase.CreateSmartWallet
	ReconcileTransactions *usecase.ReconcileTransactions
	ListTransactions      *usecase.ListTransactions
	ShowTransaction       *usecase.ShowTransaction
	ResumePayout          *usecase.ResumePayout
	ShowDAOInfo           *usecase.ShowDAOInfo
	ShowSafeInfo          *usecase.ShowSafeInfo
	ListNetworks          *usecase.ListNetworks
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	wallet usecase.Wallet,
	bus usecase.EventBus,
	selector usecase.PaymentMethodSelector,
	resolver *usecase.PayoutResolver,
	makePayout *usecase.MakePayout,
	createSmartWallet *usecase.CreateSmartWallet,
	reconcileTransactions *usecase.ReconcileTransactions,
	listTransactions *usecase.ListTransactions,
	showTransaction *usecase.ShowTransaction,
	resumePayout *usecase.ResumePayout,
	showDAOInfo *usecase.ShowDAOInfo,
	showSafeInfo *usecase.ShowSafeInfo,
	listNetworks *usecase.ListNetworks,
) (*App, error) {
	return &App{
		Config:                cfg,
		Log:                   log,
		Wallet:                wallet,
		Bus:                   bus,
		Selector:              selector,
		Resolver:              resolver,
		MakePayout:            makePayout,
		CreateSmartWallet:     createSmartWallet,
		ReconcileTransactions: reconcileTransactions,
		ListTransactions:      listTransactions,
		ShowTransaction:       showTransaction,
		ResumePayout:          resumePayout,
		ShowDAOInfo:           showDAOInfo,
		ShowSafeInfo:          showSafeInfo,
		ListNetworks:          listNetworks,
	}, nil
}
