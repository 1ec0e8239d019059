package signer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/usecase"
	"github.com/trebuchet-org/payrail/pkg/safe"
)

const defaultRPCTimeout = 2 * time.Minute

// RPCWallet forwards signing requests to an external JSON-RPC signer
// (a browser wallet bridge, clef or a node with unlocked accounts)
type RPCWallet struct {
	url     string
	timeout time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	client  *rpc.Client
	address common.Address
}

// NewRPCWallet creates a new RPC wallet. A zero address is resolved with
// eth_accounts on first use.
func NewRPCWallet(url string, address common.Address, log *slog.Logger) *RPCWallet {
	return &RPCWallet{
		url:     url,
		timeout: defaultRPCTimeout,
		address: address,
		log:     log.With("component", "rpc-signer"),
	}
}

func (w *RPCWallet) connect(ctx context.Context) (*rpc.Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.client != nil {
		return w.client, nil
	}
	client, err := rpc.DialContext(ctx, w.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to signer %s: %w", w.url, err)
	}
	w.client = client
	return client, nil
}

func (w *RPCWallet) call(ctx context.Context, result any, method string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	client, err := w.connect(ctx)
	if err != nil {
		return err
	}
	w.log.Debug("signer request", "method", method)
	if err := client.CallContext(ctx, result, method, args...); err != nil {
		return signerError(err)
	}
	return nil
}

// signerError keeps the provider error code so rejections can be recognized
func signerError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &domain.SignerError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}
	return err
}

// Address returns the configured account or the signer's first account
func (w *RPCWallet) Address() common.Address {
	w.mu.Lock()
	address := w.address
	w.mu.Unlock()
	if address != (common.Address{}) {
		return address
	}

	var accounts []common.Address
	if err := w.call(context.Background(), &accounts, "eth_accounts"); err != nil {
		w.log.Warn("failed to list signer accounts", "error", err)
		return common.Address{}
	}
	if len(accounts) == 0 {
		return common.Address{}
	}

	w.mu.Lock()
	w.address = accounts[0]
	w.mu.Unlock()
	return accounts[0]
}

type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Value *hexutil.Big    `json:"value"`
	Data  hexutil.Bytes   `json:"data"`
}

func (w *RPCWallet) SendTransaction(ctx context.Context, req usecase.CallRequest) (common.Hash, error) {
	from := w.Address()
	if from == (common.Address{}) {
		return common.Hash{}, domain.ErrAuthRequired
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	var hash common.Hash
	err := w.call(ctx, &hash, "eth_sendTransaction", sendTxArgs{
		From:  from,
		To:    req.To,
		Value: (*hexutil.Big)(value),
		Data:  req.Data,
	})
	if err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// SignTypedData calls the given eth_signTypedData flavour. The legacy method
// takes its parameters in reverse order.
func (w *RPCWallet) SignTypedData(ctx context.Context, method safe.SignMethod, data apitypes.TypedData) ([]byte, error) {
	from := w.Address()
	if from == (common.Address{}) {
		return nil, domain.ErrAuthRequired
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode typed data: %w", err)
	}

	params := []any{from, string(payload)}
	if method == safe.SignMethodV1 {
		params = []any{string(payload), from}
	}

	var signature hexutil.Bytes
	if err := w.call(ctx, &signature, string(method), params...); err != nil {
		return nil, err
	}
	return signature, nil
}

// Close releases the RPC connection
func (w *RPCWallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
}

var _ usecase.Wallet = (*RPCWallet)(nil)
