package config

// FileConfig represents the full payrail.toml configuration
type FileConfig struct {
	DefaultNetwork string                   `toml:"default_network,omitempty"`
	Networks       map[string]NetworkConfig `toml:"networks"`
	Store          StoreFileConfig          `toml:"store,omitempty"`
	Signer         SignerFileConfig         `toml:"signer,omitempty"`
	Payout         PayoutFileConfig         `toml:"payout,omitempty"`
}

// NetworkConfig is a [networks.<name>] section
type NetworkConfig struct {
	ChainID           uint64 `toml:"chain_id,omitempty"`
	RPCURL            string `toml:"rpc_url"`
	ExplorerURL       string `toml:"explorer_url,omitempty"`
	RelayURL          string `toml:"relay_url,omitempty"`
	ENSRegistry       string `toml:"ens_registry,omitempty"`
	DiscoveryBlockCap uint64 `toml:"discovery_block_cap,omitempty"`
}

// StoreFileConfig is the [store] section
type StoreFileConfig struct {
	Driver string `toml:"driver,omitempty"`
	Path   string `toml:"path,omitempty"`
}

// SignerFileConfig is the [signer] section. Secrets hold env var references.
type SignerFileConfig struct {
	Type       string `toml:"type,omitempty"`
	PrivateKey string `toml:"private_key,omitempty"` //nolint:gosec // env var reference
	Mnemonic   string `toml:"mnemonic,omitempty"`    //nolint:gosec // env var reference
	URL        string `toml:"url,omitempty"`
	Address    string `toml:"address,omitempty"`
}

// PayoutFileConfig is the [payout] section
type PayoutFileConfig struct {
	Confirmations   int    `toml:"confirmations,omitempty"`
	ReconcileWindow uint64 `toml:"reconcile_window,omitempty"`
	Contracts       string `toml:"contracts,omitempty"`
	Origin          string `toml:"origin,omitempty"`
}
