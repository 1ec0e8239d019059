package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/samber/lo"

	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
)

// ChainIDFetcher asks an RPC endpoint for its chain id
type ChainIDFetcher func(ctx context.Context, rpcURL string) (uint64, error)

// NetworkResolver resolves network names to configurations with caching.
// payrail.toml [networks] take precedence over foundry.toml [rpc_endpoints].
type NetworkResolver struct {
	dataDir  string
	networks map[string]config.NetworkConfig
	fetch    ChainIDFetcher

	mu    sync.RWMutex
	cache *NetworkCache
}

// NetworkCache caches chain ID lookups
type NetworkCache struct {
	Networks  map[string]uint64 `json:"networks"` // name -> chainID
	RPCs      map[string]uint64 `json:"rpcs"`     // rpcURL -> chainID
	UpdatedAt time.Time         `json:"updatedAt"`
}

// NewNetworkResolver creates a new network resolver
func NewNetworkResolver(projectRoot, dataDir string, file *config.FileConfig) (*NetworkResolver, error) {
	networks := make(map[string]config.NetworkConfig)

	endpoints, err := loadFoundryEndpoints(projectRoot)
	if err != nil {
		return nil, err
	}
	for name, url := range endpoints {
		networks[name] = config.NetworkConfig{RPCURL: url}
	}
	if file != nil {
		for name, network := range file.Networks {
			networks[name] = network
		}
	}

	r := &NetworkResolver{
		dataDir:  dataDir,
		networks: networks,
		fetch:    fetchChainID,
	}
	r.loadCache()
	return r, nil
}

// GetNetworks returns all configured network names
func (r *NetworkResolver) GetNetworks(context.Context) []string {
	names := lo.Keys(r.networks)
	slices.Sort(names)
	return names
}

// ResolveNetwork resolves a network name to its configuration
func (r *NetworkResolver) ResolveNetwork(ctx context.Context, name string) (*config.Network, error) {
	network, ok := r.networks[name]
	if !ok {
		return nil, fmt.Errorf("network '%s' not found in %s [networks] or foundry.toml [rpc_endpoints]", name, FileName)
	}

	rpcURL := os.ExpandEnv(network.RPCURL)
	if rpcURL == "" {
		if envVar, ok := DetectEnvVar(network.RPCURL); ok {
			return nil, fmt.Errorf("network '%s': rpc url references %s which is not set", name, envVar)
		}
		return nil, fmt.Errorf("network '%s' has no rpc url", name)
	}

	chainID := network.ChainID
	if chainID == 0 {
		var err error
		chainID, err = r.chainID(ctx, name, rpcURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch chain ID for network %s: %w", name, err)
		}
	}

	return &config.Network{
		ChainID:           chainID,
		Name:              name,
		RPCURL:            rpcURL,
		ExplorerURL:       lo.CoalesceOrEmpty(network.ExplorerURL, defaultExplorerURL(chainID)),
		RelayURL:          network.RelayURL,
		ENSRegistry:       network.ENSRegistry,
		DiscoveryBlockCap: network.DiscoveryBlockCap,
	}, nil
}

func (r *NetworkResolver) chainID(ctx context.Context, name, rpcURL string) (uint64, error) {
	r.mu.RLock()
	if chainID, ok := r.cache.RPCs[rpcURL]; ok {
		r.mu.RUnlock()
		return chainID, nil
	}
	r.mu.RUnlock()

	chainID, err := r.fetch(ctx, rpcURL)
	if err != nil {
		return 0, err
	}
	r.updateCache(name, rpcURL, chainID)
	return chainID, nil
}

// fetchChainID issues eth_chainId against rpcURL
func fetchChainID(ctx context.Context, rpcURL string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return 0, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	defer client.Close()

	var chainID hexutil.Uint64
	if err := client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		return 0, fmt.Errorf("RPC error: %w", err)
	}
	if chainID == 0 {
		return 0, fmt.Errorf("empty chain ID response")
	}
	return uint64(chainID), nil
}

// defaultExplorerURL returns the block explorer of the chains payouts run on
func defaultExplorerURL(chainID uint64) string {
	switch chainID {
	case domain.ChainEthereum:
		return "https://etherscan.io"
	case domain.ChainRopsten:
		return "https://ropsten.etherscan.io"
	case domain.ChainRinkeby:
		return "https://rinkeby.etherscan.io"
	case domain.ChainGoerli:
		return "https://goerli.etherscan.io"
	case domain.ChainKovan:
		return "https://kovan.etherscan.io"
	case domain.ChainHarmony:
		return "https://explorer.harmony.one"
	case domain.ChainHarmonyTestnet:
		return "https://explorer.testnet.harmony.one"
	default:
		return ""
	}
}

func (r *NetworkResolver) cachePath() string {
	return filepath.Join(r.dataDir, "cache", "chainIds.json")
}

// loadCache loads the chain ID cache from disk
func (r *NetworkResolver) loadCache() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache = &NetworkCache{
		Networks:  make(map[string]uint64),
		RPCs:      make(map[string]uint64),
		UpdatedAt: time.Now(),
	}

	data, err := os.ReadFile(r.cachePath())
	if err != nil {
		return
	}

	var cache NetworkCache
	if err := json.Unmarshal(data, &cache); err != nil || cache.RPCs == nil || cache.Networks == nil {
		return
	}
	r.cache = &cache
}

// updateCache records a fetched chain id. The cache is best effort.
func (r *NetworkResolver) updateCache(name, rpcURL string, chainID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Networks[name] = chainID
	r.cache.RPCs[rpcURL] = chainID
	r.cache.UpdatedAt = time.Now()

	_ = r.saveCache()
}

func (r *NetworkResolver) saveCache() error {
	path := r.cachePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r.cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
