package signer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/usecase"
	"github.com/trebuchet-org/payrail/pkg/safe"
)

// Signer types
const (
	TypeLocal = "local"
	TypeRPC   = "rpc"
)

// NewWallet builds the wallet selected by the signer configuration. Without
// any signer configured a wallet is returned that fails with ErrAuthRequired,
// so read-only commands keep working.
func NewWallet(cfg *config.RuntimeConfig, chain usecase.ChainClient, log *slog.Logger) (usecase.Wallet, error) {
	s := cfg.Signer
	switch s.Type {
	case TypeRPC:
		if s.URL == "" {
			return nil, fmt.Errorf("rpc signer requires a url")
		}
		var address common.Address
		if s.Address != "" {
			if !common.IsHexAddress(s.Address) {
				return nil, fmt.Errorf("invalid signer address %q", s.Address)
			}
			address = common.HexToAddress(s.Address)
		}
		return NewRPCWallet(s.URL, address, log), nil
	case TypeLocal, "":
		switch {
		case s.PrivateKey != "":
			return NewLocalWallet(s.PrivateKey, chain)
		case s.Mnemonic != "":
			return NewMnemonicWallet(s.Mnemonic, chain)
		}
		return NoWallet{}, nil
	default:
		return nil, fmt.Errorf("unknown signer type %q", s.Type)
	}
}

// NoWallet is used when no signer is configured
type NoWallet struct{}

func (NoWallet) Address() common.Address { return common.Address{} }

func (NoWallet) SendTransaction(context.Context, usecase.CallRequest) (common.Hash, error) {
	return common.Hash{}, domain.ErrAuthRequired
}

func (NoWallet) SignTypedData(context.Context, safe.SignMethod, apitypes.TypedData) ([]byte, error) {
	return nil, domain.ErrAuthRequired
}
