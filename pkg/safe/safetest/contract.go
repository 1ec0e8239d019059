// Package safetest provides an in-memory Safe contract for tests.
package safetest

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/payrail/pkg/safe"
)

var (
	SafeTxTypeHash          = crypto.Keccak256Hash([]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))
	DomainTypeHash          = crypto.Keccak256Hash([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	LegacyDomainTypeHash    = crypto.Keccak256Hash([]byte("EIP712Domain(address verifyingContract)"))
	chainIDDomainConstraint = func() *semver.Constraints {
		c, _ := semver.NewConstraint(">= 1.3.0")
		return c
	}()
)

// Contract mimics the view functions of a deployed Safe
type Contract struct {
	Address   common.Address
	ChainID   uint64
	Version   string
	Nonce     *big.Int
	Threshold *big.Int
	Owners    []common.Address

	// Err, when set, is returned from every call
	Err   error
	Calls []string
}

// CallContract implements safe.ContractCaller
func (c *Contract) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if msg.To == nil || *msg.To != c.Address {
		return nil, fmt.Errorf("call to unknown contract %v", msg.To)
	}
	method, err := safe.SafeABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	c.Calls = append(c.Calls, method.Name)

	switch method.Name {
	case "nonce":
		return method.Outputs.Pack(c.nonce())
	case "VERSION":
		return method.Outputs.Pack(c.Version)
	case "getThreshold":
		return method.Outputs.Pack(c.Threshold)
	case "getOwners":
		return method.Outputs.Pack(c.Owners)
	case "getTransactionHash":
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		hash := c.transactionHash(args)
		return method.Outputs.Pack(hash)
	}
	return nil, fmt.Errorf("unsupported method %s", method.Name)
}

func (c *Contract) nonce() *big.Int {
	if c.Nonce == nil {
		return new(big.Int)
	}
	return c.Nonce
}

func (c *Contract) domainSeparator() common.Hash {
	addressT, _ := abi.NewType("address", "", nil)
	bytes32T, _ := abi.NewType("bytes32", "", nil)
	uintT, _ := abi.NewType("uint256", "", nil)

	v, err := semver.NewVersion(c.Version)
	if err == nil {
		core, _ := v.SetMetadata("")
		if chainIDDomainConstraint.Check(&core) {
			enc, _ := abi.Arguments{{Type: bytes32T}, {Type: uintT}, {Type: addressT}}.Pack(
				[32]byte(DomainTypeHash), new(big.Int).SetUint64(c.ChainID), c.Address)
			return crypto.Keccak256Hash(enc)
		}
	}
	enc, _ := abi.Arguments{{Type: bytes32T}, {Type: addressT}}.Pack([32]byte(LegacyDomainTypeHash), c.Address)
	return crypto.Keccak256Hash(enc)
}

// transactionHash follows GnosisSafe.encodeTransactionData
func (c *Contract) transactionHash(args []any) [32]byte {
	addressT, _ := abi.NewType("address", "", nil)
	bytes32T, _ := abi.NewType("bytes32", "", nil)
	uintT, _ := abi.NewType("uint256", "", nil)
	uint8T, _ := abi.NewType("uint8", "", nil)

	encoded, _ := abi.Arguments{
		{Type: bytes32T}, {Type: addressT}, {Type: uintT}, {Type: bytes32T}, {Type: uint8T},
		{Type: uintT}, {Type: uintT}, {Type: uintT}, {Type: addressT}, {Type: addressT}, {Type: uintT},
	}.Pack(
		[32]byte(SafeTxTypeHash),
		args[0].(common.Address),
		args[1].(*big.Int),
		[32]byte(crypto.Keccak256Hash(args[2].([]byte))),
		args[3].(uint8),
		args[4].(*big.Int),
		args[5].(*big.Int),
		args[6].(*big.Int),
		args[7].(common.Address),
		args[8].(common.Address),
		args[9].(*big.Int),
	)
	structHash := crypto.Keccak256(encoded)

	var buf bytes.Buffer
	buf.Write([]byte{0x19, 0x01})
	buf.Write(c.domainSeparator().Bytes())
	buf.Write(structHash)
	return crypto.Keccak256Hash(buf.Bytes())
}
