package usecase

import (
	"context"

	"github.com/trebuchet-org/payrail/pkg/safe"
)

// ListNetworksParams contains parameters for listing networks
type ListNetworksParams struct{}

// ListNetworksResult contains the result of listing networks
type ListNetworksResult struct {
	Networks []NetworkStatus
}

// NetworkStatus represents the status of a network
type NetworkStatus struct {
	Name    string
	ChainID uint64
	// Relay is set when Safe payouts can be proposed on the network
	Relay bool
	Error error
}

// ListNetworks is a use case for listing available networks
type ListNetworks struct {
	resolver NetworkResolver
}

// NewListNetworks creates a new ListNetworks use case
func NewListNetworks(resolver NetworkResolver) *ListNetworks {
	return &ListNetworks{
		resolver: resolver,
	}
}

// Run executes the use case
func (uc *ListNetworks) Run(ctx context.Context, params ListNetworksParams) (*ListNetworksResult, error) {
	// Get all configured networks
	networkNames := uc.resolver.GetNetworks(ctx)

	// Check each network's status
	networks := make([]NetworkStatus, 0, len(networkNames))
	for _, name := range networkNames {
		status := NetworkStatus{
			Name: name,
		}

		// Try to resolve network to get chain ID
		info, err := uc.resolver.ResolveNetwork(ctx, name)
		if err != nil {
			status.Error = err
		} else {
			status.ChainID = info.ChainID
			_, known := safe.TransactionServiceURLs[info.ChainID]
			status.Relay = info.RelayURL != "" || known
		}

		networks = append(networks, status)
	}

	return &ListNetworksResult{
		Networks: networks,
	}, nil
}
