package usecase

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/pkg/safe"
)

// ShowSafeInfo reports a Safe's version, nonce and queued transactions
type ShowSafeInfo struct {
	cfg   *config.RuntimeConfig
	relay SafeRelay
	chain ChainClient
}

// NewShowSafeInfo creates a new ShowSafeInfo use case
func NewShowSafeInfo(cfg *config.RuntimeConfig, relay SafeRelay, chain ChainClient) *ShowSafeInfo {
	return &ShowSafeInfo{cfg: cfg, relay: relay, chain: chain}
}

// SafeDetails contains what is known about a Safe
type SafeDetails struct {
	Info    *models.SafeInfo
	Shape   safe.DomainShape
	Source  string // "relay" or "contract"
	Pending []*safe.MultisigTransaction
	// RelayError is set when the relay could not be reached
	RelayError error
}

// Run queries the relay, falling back to the contract
func (uc *ShowSafeInfo) Run(ctx context.Context, address common.Address) (*SafeDetails, error) {
	details := &SafeDetails{Source: "relay"}

	info, err := uc.relay.SafeInfo(ctx, address)
	if err != nil {
		details.RelayError = err
		details.Source = "contract"
		info, err = uc.fromContract(ctx, address)
		if err != nil {
			return nil, err
		}
	}
	details.Info = info

	shape, err := safe.ResolveDomainShape(info.Version)
	if err != nil {
		return nil, err
	}
	details.Shape = shape

	if details.RelayError == nil {
		pending, err := uc.relay.GetPendingTransactions(ctx, address)
		if err != nil {
			details.RelayError = err
		}
		details.Pending = pending
	}
	return details, nil
}

func (uc *ShowSafeInfo) fromContract(ctx context.Context, address common.Address) (*models.SafeInfo, error) {
	contract := safe.NewContract(address, uc.chain)
	version, err := contract.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a Safe: %v", domain.ErrNotFound, address.Hex(), err)
	}
	nonce, err := contract.Nonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrChainCallFailed, err)
	}
	threshold, err := contract.Threshold(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrChainCallFailed, err)
	}
	owners, err := contract.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrChainCallFailed, err)
	}
	return &models.SafeInfo{
		Address:   address.Hex(),
		Version:   version,
		Nonce:     nonce.Uint64(),
		Threshold: int(threshold.Int64()),
		Owners:    lo.Map(owners, func(o common.Address, _ int) string { return o.Hex() }),
	}, nil
}
