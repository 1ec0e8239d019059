package domain

import "fmt"

// Known chain IDs
const (
	ChainEthereum       uint64 = 1
	ChainRopsten        uint64 = 3
	ChainRinkeby        uint64 = 4
	ChainGoerli         uint64 = 5
	ChainKovan          uint64 = 42
	ChainHarmony        uint64 = 1666600000
	ChainHarmonyTestnet uint64 = 1666700000
)

var chainNames = map[uint64]string{
	ChainEthereum:       "Ethereum",
	ChainRopsten:        "Ropsten",
	ChainRinkeby:        "Rinkeby",
	ChainGoerli:         "Goerli",
	ChainKovan:          "Kovan",
	ChainHarmony:        "Harmony",
	ChainHarmonyTestnet: "Harmony Testnet",
}

// ChainName returns a display name for chainID
func ChainName(chainID uint64) string {
	if name, ok := chainNames[chainID]; ok {
		return name
	}
	return fmt.Sprintf("chain %d", chainID)
}

// IsHarmony reports whether chainID is Harmony mainnet or testnet
func IsHarmony(chainID uint64) bool {
	return chainID == ChainHarmony || chainID == ChainHarmonyTestnet
}

// SmartWalletChains lists the chains smart wallets can be created on
var SmartWalletChains = []uint64{ChainRinkeby, ChainHarmonyTestnet, ChainKovan, ChainRopsten}
