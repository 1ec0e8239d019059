//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"

	"github.com/trebuchet-org/payrail/internal/adapters"
	"github.com/trebuchet-org/payrail/internal/config"
	"github.com/trebuchet-org/payrail/internal/logging"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper) (*App, error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewPayoutResolver,
		usecase.NewPayoutTracker,
		usecase.NewRequestAragonWithdrawal,
		usecase.NewProposeSafeWithdrawal,
		usecase.NewMakePayout,
		usecase.NewCreateSmartWallet,
		usecase.NewReconcileTransactions,
		usecase.NewListTransactions,
		usecase.NewShowTransaction,
		usecase.NewResumePayout,
		usecase.NewShowDAOInfo,
		usecase.NewShowSafeInfo,
		usecase.NewListNetworks,

		// App
		NewApp,
	)
	return nil, nil
}
