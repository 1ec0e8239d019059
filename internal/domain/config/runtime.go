package config

import (
	"time"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Context settings
	Network *Network // nil if not specified

	// Execution settings
	Debug          bool
	NonInteractive bool
	JSON           bool // Output in JSON format
	Timeout        time.Duration

	// Payout tracking
	Confirmations   int    // confirmations acted on per transaction, best-effort
	ReconcileWindow uint64 // blocks scanned back from head for delegated completion
	PollInterval    time.Duration

	Store  StoreConfig
	Signer SignerConfig

	// ContractsFile overrides the embedded contracts registry
	ContractsFile string

	// Origin is attached to Safe proposals
	Origin string

	// Resolved configuration file
	File *FileConfig
}

// Network represents network configuration
type Network struct {
	ChainID     uint64 `json:"chainId"`
	Name        string `json:"name"`
	RPCURL      string `json:"rpcUrl"`
	ExplorerURL string `json:"explorerUrl,omitempty"`

	// RelayURL is the Safe transaction service root, including the API version path
	RelayURL string `json:"relayUrl,omitempty"`
	// ENSRegistry used to resolve Aragon DAO names
	ENSRegistry string `json:"ensRegistry,omitempty"`
	// DiscoveryBlockCap bounds the Aragon app discovery log scan
	DiscoveryBlockCap uint64 `json:"discoveryBlockCap,omitempty"`
}

// StoreConfig selects the record store backend
type StoreConfig struct {
	Driver string // "json" or "sqlite"
	Path   string
}

// SignerConfig selects how transactions and typed data are signed
type SignerConfig struct {
	Type       string // "local" or "rpc"
	PrivateKey string
	Mnemonic   string
	URL        string
	Address    string
}
