package safe

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
	"github.com/trebuchet-org/payrail/pkg/safe"
)

// RelayAdapter wraps safe.Client for the configured network. The client is
// created on first use so networks without a relay only fail Safe payouts.
type RelayAdapter struct {
	network    *config.Network
	httpClient *http.Client

	once   sync.Once
	client *safe.Client
	err    error
}

// NewRelayAdapter creates a new adapter for the network's Safe transaction service
func NewRelayAdapter(cfg *config.RuntimeConfig) *RelayAdapter {
	return &RelayAdapter{network: cfg.Network}
}

func (r *RelayAdapter) get() (*safe.Client, error) {
	r.once.Do(func() {
		if r.network == nil {
			r.err = fmt.Errorf("%w: no network configured", domain.ErrUnsupportedNetwork)
			return
		}
		opts := []safe.Option{safe.WithServiceURL(r.network.RelayURL)}
		if r.httpClient != nil {
			opts = append(opts, safe.WithHTTPClient(r.httpClient))
		}
		r.client, r.err = safe.NewClient(r.network.ChainID, opts...)
	})
	return r.client, r.err
}

// SafeInfo returns domain.ErrNotFound when the relay does not know the Safe
func (r *RelayAdapter) SafeInfo(ctx context.Context, safeAddress common.Address) (*models.SafeInfo, error) {
	client, err := r.get()
	if err != nil {
		return nil, err
	}
	return client.SafeInfo(ctx, safeAddress)
}

func (r *RelayAdapter) LatestNonce(ctx context.Context, safeAddress common.Address) (uint64, bool, error) {
	client, err := r.get()
	if err != nil {
		return 0, false, err
	}
	return client.LatestNonce(ctx, safeAddress)
}

func (r *RelayAdapter) Propose(ctx context.Context, safeAddress common.Address, proposal *safe.Proposal) error {
	client, err := r.get()
	if err != nil {
		return err
	}
	return client.Propose(ctx, safeAddress, proposal)
}

func (r *RelayAdapter) GetPendingTransactions(ctx context.Context, safeAddress common.Address) ([]*safe.MultisigTransaction, error) {
	client, err := r.get()
	if err != nil {
		return nil, err
	}
	return client.GetPendingTransactions(ctx, safeAddress)
}

// Ensure the adapter implements the interface
var _ usecase.SafeRelay = (*RelayAdapter)(nil)
