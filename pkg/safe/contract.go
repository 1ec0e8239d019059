package safe

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/payrail/internal/domain/models"
)

const safeABIJSON = `[
	{"type":"function","name":"nonce","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"VERSION","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"getThreshold","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getOwners","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"getTransactionHash","stateMutability":"view","inputs":[
		{"name":"to","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"data","type":"bytes"},
		{"name":"operation","type":"uint8"},
		{"name":"safeTxGas","type":"uint256"},
		{"name":"baseGas","type":"uint256"},
		{"name":"gasPrice","type":"uint256"},
		{"name":"gasToken","type":"address"},
		{"name":"refundReceiver","type":"address"},
		{"name":"_nonce","type":"uint256"}
	],"outputs":[{"name":"","type":"bytes32"}]}
]`

var SafeABI = mustParseABI(safeABIJSON)

// ContractCaller executes read-only contract calls
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Contract reads state from a deployed Safe
type Contract struct {
	address common.Address
	caller  ContractCaller
	abi     abi.ABI
}

// NewContract binds the Safe at address
func NewContract(address common.Address, caller ContractCaller) *Contract {
	return &Contract{address: address, caller: caller, abi: SafeABI}
}

// Address returns the Safe address
func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	to := c.address
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty result from %s", method)
	}
	return values, nil
}

// Nonce returns the Safe's on-chain nonce
func (c *Contract) Nonce(ctx context.Context) (*big.Int, error) {
	values, err := c.call(ctx, "nonce")
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// Version returns the Safe's VERSION()
func (c *Contract) Version(ctx context.Context) (string, error) {
	values, err := c.call(ctx, "VERSION")
	if err != nil {
		return "", err
	}
	return values[0].(string), nil
}

// Threshold returns the number of confirmations required
func (c *Contract) Threshold(ctx context.Context) (*big.Int, error) {
	values, err := c.call(ctx, "getThreshold")
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// Owners returns the Safe owners
func (c *Contract) Owners(ctx context.Context) ([]common.Address, error) {
	values, err := c.call(ctx, "getOwners")
	if err != nil {
		return nil, err
	}
	return values[0].([]common.Address), nil
}

// TransactionHash asks the Safe to hash tx, the contract-truth hash
func (c *Contract) TransactionHash(ctx context.Context, tx *models.SafeTransaction) (common.Hash, error) {
	values, err := c.call(ctx, "getTransactionHash",
		tx.To,
		bigOrZero(tx.Value),
		tx.Data,
		uint8(tx.Operation),
		bigOrZero(tx.SafeTxGas),
		bigOrZero(tx.BaseGas),
		bigOrZero(tx.GasPrice),
		tx.GasToken,
		tx.RefundReceiver,
		bigOrZero(tx.Nonce),
	)
	if err != nil {
		return common.Hash{}, err
	}
	hash := values[0].([32]byte)
	return common.Hash(hash), nil
}
