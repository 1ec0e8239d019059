package safe

import (
	"fmt"
	"math/big"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/trebuchet-org/payrail/internal/domain/models"
)

// DomainShape selects the EIP-712 domain layout a Safe version expects
type DomainShape int

const (
	// DomainVerifyingContract is used by Safes before 1.3.0
	DomainVerifyingContract DomainShape = iota
	// DomainChainIDVerifyingContract is used by Safes 1.3.0 and later
	DomainChainIDVerifyingContract
)

func (s DomainShape) String() string {
	if s == DomainChainIDVerifyingContract {
		return "chainId+verifyingContract"
	}
	return "verifyingContract"
}

var chainIDConstraint = mustConstraint(">= 1.3.0")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// ResolveDomainShape parses a Safe version ("1.3.0", "1.1.1+L2") into its domain shape
func ResolveDomainShape(version string) (DomainShape, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return 0, fmt.Errorf("invalid safe version %q: %w", version, err)
	}
	// Build metadata such as +L2 must not affect the comparison
	core, _ := v.SetMetadata("")
	if chainIDConstraint.Check(&core) {
		return DomainChainIDVerifyingContract, nil
	}
	return DomainVerifyingContract, nil
}

// Domain is the resolved EIP-712 domain of one Safe
type Domain struct {
	Shape   DomainShape
	ChainID uint64
	Safe    common.Address
}

// NewDomain resolves the domain of safe on chainID for the given version
func NewDomain(safe common.Address, chainID uint64, version string) (Domain, error) {
	shape, err := ResolveDomainShape(version)
	if err != nil {
		return Domain{}, err
	}
	return Domain{Shape: shape, ChainID: chainID, Safe: safe}, nil
}

func (d Domain) types() []apitypes.Type {
	if d.Shape == DomainChainIDVerifyingContract {
		return []apitypes.Type{
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		}
	}
	return []apitypes.Type{
		{Name: "verifyingContract", Type: "address"},
	}
}

func (d Domain) typedDataDomain() apitypes.TypedDataDomain {
	domain := apitypes.TypedDataDomain{
		VerifyingContract: d.Safe.Hex(),
	}
	if d.Shape == DomainChainIDVerifyingContract {
		domain.ChainId = math.NewHexOrDecimal256(int64(d.ChainID))
	}
	return domain
}

var safeTxType = []apitypes.Type{
	{Name: "to", Type: "address"},
	{Name: "value", Type: "uint256"},
	{Name: "data", Type: "bytes"},
	{Name: "operation", Type: "uint8"},
	{Name: "safeTxGas", Type: "uint256"},
	{Name: "baseGas", Type: "uint256"},
	{Name: "gasPrice", Type: "uint256"},
	{Name: "gasToken", Type: "address"},
	{Name: "refundReceiver", Type: "address"},
	{Name: "nonce", Type: "uint256"},
}

func bigOrZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}

// TypedData builds the SafeTx typed data for tx under domain d
func (d Domain) TypedData(tx *models.SafeTransaction) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": d.types(),
			"SafeTx":       safeTxType,
		},
		PrimaryType: "SafeTx",
		Domain:      d.typedDataDomain(),
		Message: apitypes.TypedDataMessage{
			"to":             tx.To.Hex(),
			"value":          bigOrZero(tx.Value).String(),
			"data":           hexutil.Encode(tx.Data),
			"operation":      fmt.Sprintf("%d", tx.Operation),
			"safeTxGas":      bigOrZero(tx.SafeTxGas).String(),
			"baseGas":        bigOrZero(tx.BaseGas).String(),
			"gasPrice":       bigOrZero(tx.GasPrice).String(),
			"gasToken":       tx.GasToken.Hex(),
			"refundReceiver": tx.RefundReceiver.Hex(),
			"nonce":          bigOrZero(tx.Nonce).String(),
		},
	}
}

// TransactionHash computes the EIP-712 hash of tx, the value owners sign
func (d Domain) TransactionHash(tx *models.SafeTransaction) (common.Hash, error) {
	hash, _, err := apitypes.TypedDataAndHash(d.TypedData(tx))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash safe transaction: %w", err)
	}
	return common.BytesToHash(hash), nil
}

// NewSafeTransaction returns a SafeTransaction with zero gas parameters,
// the sponsored execution model used for proposals.
func NewSafeTransaction(to common.Address, value *big.Int, data []byte, op models.SafeOperation, nonce *big.Int) *models.SafeTransaction {
	return &models.SafeTransaction{
		To:             to,
		Value:          bigOrZero(value),
		Data:           data,
		Operation:      op,
		SafeTxGas:      new(big.Int),
		BaseGas:        new(big.Int),
		GasPrice:       new(big.Int),
		GasToken:       common.Address{},
		RefundReceiver: common.Address{},
		Nonce:          bigOrZero(nonce),
	}
}
