package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

const defaultCallTimeout = 15 * time.Second

// Client implements ChainClient on top of ethclient. It dials lazily so
// commands that never touch the chain work without a reachable node.
type Client struct {
	network *config.Network
	timeout time.Duration

	mu      sync.Mutex
	client  *ethclient.Client
	chainID uint64
}

// NewClient creates a new chain client for the configured network
func NewClient(cfg *config.RuntimeConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Client{network: cfg.Network, timeout: timeout}
}

// connect establishes connection to the node and verifies its chain ID
func (c *Client) connect(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.network == nil || c.network.RPCURL == "" {
		return nil, fmt.Errorf("%w: no network configured", domain.ErrUnsupportedNetwork)
	}

	client, err := ethclient.DialContext(ctx, c.network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to RPC: %v", domain.ErrChainCallFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	networkChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to get chain ID: %v", domain.ErrChainCallFailed, err)
	}

	// If chainID was 0, use the network's chain ID
	if c.network.ChainID != 0 && networkChainID.Uint64() != c.network.ChainID {
		client.Close()
		return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", c.network.ChainID, networkChainID.Uint64())
	}
	c.client = client
	c.chainID = networkChainID.Uint64()
	return client, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ethereum.NotFound) || errors.Is(err, domain.ErrUnsupportedNetwork) || errors.Is(err, domain.ErrChainCallFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrChainCallFailed, op, err)
}

// ChainID returns the chain the node serves
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	if _, err := c.connect(ctx); err != nil {
		return 0, err
	}
	return c.chainID, nil
}

// BlockNumber returns the current head
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	n, err := client.BlockNumber(ctx)
	return n, wrap("block number", err)
}

// CallContract executes a read-only call
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := client.CallContract(ctx, msg, blockNumber)
	return out, wrap("call", err)
}

// TransactionReceipt returns ethereum.NotFound while the transaction is pending
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	receipt, err := client.TransactionReceipt(ctx, hash)
	return receipt, wrap("receipt", err)
}

// FilterLogs queries logs. Large ranges can take a while, so the timeout is doubled.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*c.timeout)
	defer cancel()
	logs, err := client.FilterLogs(ctx, query)
	return logs, wrap("filter logs", err)
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	n, err := client.PendingNonceAt(ctx, account)
	return n, wrap("nonce", err)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	price, err := client.SuggestGasPrice(ctx)
	return price, wrap("gas price", err)
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	gas, err := client.EstimateGas(ctx, msg)
	return gas, wrap("estimate gas", err)
}

// SendTransaction broadcasts a signed transaction
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return wrap("send transaction", client.SendTransaction(ctx, tx))
}

// Close releases the RPC connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

// Ensure the adapter implements the interface
var _ usecase.ChainClient = (*Client)(nil)
