package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SafeOperation is the Safe call type
type SafeOperation uint8

const (
	SafeOperationCall         SafeOperation = 0
	SafeOperationDelegateCall SafeOperation = 1
)

// SafeTransaction is the tuple hashed into the EIP-712 SafeTx structure
type SafeTransaction struct {
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      SafeOperation
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
	Nonce          *big.Int
}

// MultiSendCall is one sub-call of a MultiSend envelope
type MultiSendCall struct {
	Operation SafeOperation
	To        common.Address
	Value     *big.Int
	Data      []byte
}

// SafeWithdrawal describes a Safe transaction to build, sign and propose
type SafeWithdrawal struct {
	Safe      common.Address
	Version   string
	ChainID   uint64
	To        common.Address
	Value     *big.Int
	Data      []byte
	Operation SafeOperation
	// Reference is stored as the proposal origin note
	Reference string
}

// SafeSubmission is the result of proposing a Safe transaction to the relay
type SafeSubmission struct {
	Safe                    common.Address
	Nonce                   *big.Int
	ContractTransactionHash common.Hash
	Signature               []byte
	Sender                  common.Address
	SignMethod              string
}

// SafeInfo is what the relay or contract reports about a Safe
type SafeInfo struct {
	Address   string   `json:"address"`
	Version   string   `json:"version"`
	Nonce     uint64   `json:"nonce"`
	Threshold int      `json:"threshold,omitempty"`
	Owners    []string `json:"owners,omitempty"`
}
