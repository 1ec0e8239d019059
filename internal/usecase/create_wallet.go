package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
)

// CreateSmartWallet deploys the sender's smart wallet on supported chains
type CreateSmartWallet struct {
	contracts ContractsRegistry
	wallet    Wallet
	watcher   ReceiptWatcher
	store     TransactionStore
	bus       EventBus
	progress  ProgressSink
	log       *slog.Logger
}

// NewCreateSmartWallet creates a new smart wallet use case
func NewCreateSmartWallet(
	contracts ContractsRegistry,
	wallet Wallet,
	watcher ReceiptWatcher,
	store TransactionStore,
	bus EventBus,
	progress ProgressSink,
	log *slog.Logger,
) *CreateSmartWallet {
	return &CreateSmartWallet{
		contracts: contracts,
		wallet:    wallet,
		watcher:   watcher,
		store:     store,
		bus:       bus,
		progress:  progress,
		log:       log.With("component", "wallet"),
	}
}

// CreateWalletOptions contains options for wallet creation
type CreateWalletOptions struct {
	ChainID uint64
	Wait    bool
}

// CreateWalletResult contains the result of wallet creation
type CreateWalletResult struct {
	Hash   common.Hash
	Wallet *models.SmartWallet
}

// Run deploys the wallet contract and stores its address once mined
func (c *CreateSmartWallet) Run(ctx context.Context, opts CreateWalletOptions) (*CreateWalletResult, error) {
	if !lo.Contains(domain.SmartWalletChains, opts.ChainID) {
		return nil, fmt.Errorf("%w: smart wallets are not available on %s", domain.ErrUnsupportedNetwork, domain.ChainName(opts.ChainID))
	}
	owner := c.wallet.Address()
	if owner == (common.Address{}) {
		return nil, domain.ErrAuthRequired
	}

	contracts, err := c.contracts.ChainContracts(ctx, opts.ChainID)
	if err != nil {
		return nil, err
	}
	if contracts.Wallet == nil || len(contracts.Wallet.Bytecode) == 0 {
		return nil, fmt.Errorf("%w: no wallet bytecode on chain %d", domain.ErrMissingContractMetadata, opts.ChainID)
	}

	args, err := walletConstructorArgs(contracts.Wallet)
	if err != nil {
		return nil, err
	}
	packed, err := contracts.Wallet.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to pack wallet constructor: %v", domain.ErrEncodingInvariant, err)
	}
	data := append(append([]byte{}, contracts.Wallet.Bytecode...), packed...)

	c.progress.OnProgress(ctx, ProgressEvent{Stage: "wallet", Message: "Deploying smart wallet...", Spinner: true})
	defer c.progress.OnProgress(ctx, ProgressEvent{Stage: StageDone})
	hash, err := c.wallet.SendTransaction(ctx, CallRequest{Data: data})
	if err != nil {
		return nil, err
	}
	result := &CreateWalletResult{Hash: hash}
	c.bus.Emit(domain.NotificationCreateWalletInitiated, domain.WalletEvent{
		Hash:    models.NormalizeHash(hash.Hex()),
		ChainID: opts.ChainID,
		Owner:   owner.Hex(),
	})
	if !opts.Wait {
		return result, nil
	}

	for update := range c.watcher.Watch(ctx, hash, 1) {
		if update.Err != nil {
			return result, fmt.Errorf("stopped following %s: %w", hash.Hex(), update.Err)
		}
		if update.Receipt.Status == types.ReceiptStatusFailed || update.Receipt.ContractAddress == (common.Address{}) {
			c.bus.Emit(domain.NotificationCreateWalletFailed, domain.WalletEvent{
				Hash:    models.NormalizeHash(hash.Hex()),
				ChainID: opts.ChainID,
				Owner:   owner.Hex(),
				Message: "wallet deployment failed",
			})
			return result, fmt.Errorf("%w: wallet deployment %s", domain.ErrTransactionFailed, hash.Hex())
		}

		wallet := &models.SmartWallet{
			ChainID:   opts.ChainID,
			Owner:     owner.Hex(),
			Address:   update.Receipt.ContractAddress.Hex(),
			TxHash:    models.NormalizeHash(hash.Hex()),
			CreatedAt: time.Now().UTC(),
		}
		if err := c.store.SaveWallet(ctx, wallet); err != nil {
			return result, fmt.Errorf("failed to save wallet: %w", err)
		}
		result.Wallet = wallet
		c.log.Info("smart wallet created", "chain", opts.ChainID, "address", wallet.Address)
		c.bus.Emit(domain.NotificationCreateWalletCompleted, domain.WalletEvent{
			Hash:    wallet.TxHash,
			ChainID: opts.ChainID,
			Owner:   owner.Hex(),
			Address: wallet.Address,
		})
	}
	return result, nil
}

// walletConstructorArgs fills address inputs from the artifact params,
// defaulting to the zero address
func walletConstructorArgs(wallet *models.ContractArtifact) ([]any, error) {
	args := make([]any, 0, len(wallet.ABI.Constructor.Inputs))
	for _, input := range wallet.ABI.Constructor.Inputs {
		switch input.Type.T {
		case abi.AddressTy:
			args = append(args, wallet.Params[input.Name])
		case abi.BytesTy:
			args = append(args, []byte{})
		case abi.StringTy:
			args = append(args, "")
		default:
			return nil, fmt.Errorf("%w: unsupported wallet constructor input %s %s", domain.ErrMissingContractMetadata, input.Type.String(), input.Name)
		}
	}
	return args, nil
}
