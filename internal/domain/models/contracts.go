package models

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ContractArtifact is a deployable or callable contract known on a chain
type ContractArtifact struct {
	Name     string
	Address  common.Address
	ABI      abi.ABI
	Bytecode []byte
	// Params holds named addresses used as constructor arguments (bridge, swap...)
	Params map[string]common.Address
}

// HasAddress reports whether the artifact points at a deployed contract
func (c *ContractArtifact) HasAddress() bool {
	return c != nil && c.Address != (common.Address{})
}

// Token is a stable coin usable by smart-wallet payouts
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
}

// ChainContracts is the contract metadata the resolver needs for one chain
type ChainContracts struct {
	ChainID        uint64
	Batch          *ContractArtifact
	DelegatedBatch *ContractArtifact
	Wallet         *ContractArtifact
	Tokens         map[string]Token
}

// Token returns the token registered under symbol
func (c *ChainContracts) Token(symbol string) (Token, bool) {
	if c == nil || c.Tokens == nil {
		return Token{}, false
	}
	t, ok := c.Tokens[symbol]
	return t, ok
}
