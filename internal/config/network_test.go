package config

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/payrail/internal/domain/config"
)

func TestNetworkResolver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "foundry.toml", `
[rpc_endpoints]
kovan = "http://kovan.local"
rinkeby = "http://foundry-rinkeby.local"
`)

	file := &config.FileConfig{
		Networks: map[string]config.NetworkConfig{
			"rinkeby": {RPCURL: "http://rinkeby.local", DiscoveryBlockCap: 500},
			"harmony": {RPCURL: "${PAYRAIL_TEST_UNSET_RPC}"},
		},
	}

	resolver, err := NewNetworkResolver(dir, t.TempDir(), file)
	require.NoError(t, err)

	fetched := 0
	resolver.fetch = func(_ context.Context, rpcURL string) (uint64, error) {
		fetched++
		switch rpcURL {
		case "http://rinkeby.local":
			return 4, nil
		case "http://kovan.local":
			return 42, nil
		}
		return 0, errors.New("connection refused")
	}

	assert.Equal(t, []string{"harmony", "kovan", "rinkeby"}, resolver.GetNetworks(ctx))

	t.Run("payrail.toml wins over foundry.toml", func(t *testing.T) {
		network, err := resolver.ResolveNetwork(ctx, "rinkeby")
		require.NoError(t, err)
		assert.Equal(t, uint64(4), network.ChainID)
		assert.Equal(t, "http://rinkeby.local", network.RPCURL)
		assert.Equal(t, uint64(500), network.DiscoveryBlockCap)
	})

	t.Run("foundry endpoint", func(t *testing.T) {
		network, err := resolver.ResolveNetwork(ctx, "kovan")
		require.NoError(t, err)
		assert.Equal(t, uint64(42), network.ChainID)
		assert.Equal(t, "https://kovan.etherscan.io", network.ExplorerURL)
	})

	t.Run("chain id cached", func(t *testing.T) {
		before := fetched
		_, err := resolver.ResolveNetwork(ctx, "kovan")
		require.NoError(t, err)
		assert.Equal(t, before, fetched)
	})

	t.Run("unset env reference", func(t *testing.T) {
		_, err := resolver.ResolveNetwork(ctx, "harmony")
		assert.ErrorContains(t, err, "PAYRAIL_TEST_UNSET_RPC")
	})

	t.Run("unknown network", func(t *testing.T) {
		_, err := resolver.ResolveNetwork(ctx, "mainnet")
		assert.Error(t, err)
	})
}

func TestNetworkResolver_PersistentCache(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	file := &config.FileConfig{
		Networks: map[string]config.NetworkConfig{"local": {RPCURL: "http://127.0.0.1:8545"}},
	}

	first, err := NewNetworkResolver(t.TempDir(), dataDir, file)
	require.NoError(t, err)
	first.fetch = func(context.Context, string) (uint64, error) { return 1666700000, nil }
	_, err = first.ResolveNetwork(ctx, "local")
	require.NoError(t, err)

	second, err := NewNetworkResolver(t.TempDir(), dataDir, file)
	require.NoError(t, err)
	second.fetch = func(context.Context, string) (uint64, error) {
		return 0, errors.New("should not be called")
	}
	network, err := second.ResolveNetwork(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, uint64(1666700000), network.ChainID)
	assert.Equal(t, "https://explorer.testnet.harmony.one", network.ExplorerURL)
}
