package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/trebuchet-org/payrail/internal/domain/config"
)

// FileName is the project configuration file
const FileName = "payrail.toml"

// loadFileConfig loads and parses payrail.toml. A missing file yields an
// empty configuration.
func loadFileConfig(projectRoot string) (*config.FileConfig, error) {
	path := filepath.Join(projectRoot, FileName)

	cfg := &config.FileConfig{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	// RPC URLs are expanded by the network resolver
	for name, network := range cfg.Networks {
		network.ExplorerURL = os.ExpandEnv(network.ExplorerURL)
		network.RelayURL = os.ExpandEnv(network.RelayURL)
		network.ENSRegistry = os.ExpandEnv(network.ENSRegistry)
		cfg.Networks[name] = network
	}

	cfg.Signer.PrivateKey = os.ExpandEnv(cfg.Signer.PrivateKey)
	cfg.Signer.Mnemonic = os.ExpandEnv(cfg.Signer.Mnemonic)
	cfg.Signer.URL = os.ExpandEnv(cfg.Signer.URL)
	cfg.Signer.Address = os.ExpandEnv(cfg.Signer.Address)
	cfg.Store.Path = os.ExpandEnv(cfg.Store.Path)

	return cfg, nil
}

// foundryTOML is the part of foundry.toml read as a network fallback
type foundryTOML struct {
	RpcEndpoints map[string]string `toml:"rpc_endpoints"`
}

// loadFoundryEndpoints reads the raw [rpc_endpoints] of foundry.toml, if present
func loadFoundryEndpoints(projectRoot string) (map[string]string, error) {
	path := filepath.Join(projectRoot, "foundry.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var raw foundryTOML
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse foundry.toml: %w", err)
	}

	return raw.RpcEndpoints, nil
}
