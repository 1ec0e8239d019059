package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/trebuchet-org/payrail/internal/usecase"
	"github.com/trebuchet-org/payrail/pkg/safe"
	"github.com/tyler-smith/go-bip39"
)

// BIP-44 path m/44'/60'/0'/0/0
const (
	purposeIndex  = 44
	coinTypeIndex = 60
)

// LocalWallet signs transactions and typed data with an in-memory key
type LocalWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chain   usecase.ChainClient
}

// NewLocalWallet creates a wallet from a hex encoded private key
func NewLocalWallet(privateKey string, chain usecase.ChainClient) (*LocalWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return newLocalWallet(key, chain), nil
}

// NewMnemonicWallet creates a wallet from the first account of a BIP-39 mnemonic
func NewMnemonicWallet(mnemonic string, chain usecase.ChainClient) (*LocalWallet, error) {
	key, err := privateKeyFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	return newLocalWallet(key, chain), nil
}

func newLocalWallet(key *ecdsa.PrivateKey, chain usecase.ChainClient) *LocalWallet {
	return &LocalWallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chain:   chain,
	}
}

func privateKeyFromMnemonic(mnemonic string) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	path := []uint32{
		hdkeychain.HardenedKeyStart + purposeIndex,
		hdkeychain.HardenedKeyStart + coinTypeIndex,
		hdkeychain.HardenedKeyStart + 0,
		0,
		0,
	}
	for _, index := range path {
		key, err = key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive key: %w", err)
		}
	}

	privKey, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain private key: %w", err)
	}
	return crypto.ToECDSA(privKey.Serialize())
}

func (w *LocalWallet) Address() common.Address {
	return w.address
}

// SendTransaction fills nonce, gas price and gas limit from the node, signs
// a legacy EIP-155 transaction and broadcasts it
func (w *LocalWallet) SendTransaction(ctx context.Context, req usecase.CallRequest) (common.Hash, error) {
	chainID, err := w.chain.ChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	nonce, err := w.chain.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, err
	}
	gasPrice, err := w.chain.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	gas, err := w.chain.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.address,
		To:    req.To,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       req.To,
		Value:    value,
		Data:     req.Data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(new(big.Int).SetUint64(chainID)), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := w.chain.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

// SignTypedData signs the EIP-712 hash of data. The legacy eth_signTypedData
// encoding is not supported by local keys.
func (w *LocalWallet) SignTypedData(_ context.Context, method safe.SignMethod, data apitypes.TypedData) ([]byte, error) {
	if method == safe.SignMethodV1 {
		return nil, fmt.Errorf("%s is not supported by local signers", method)
	}
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return crypto.Sign(hash, w.key)
}

var _ usecase.Wallet = (*LocalWallet)(nil)
