// Package aragon encodes Aragon EVM call scripts and the forward calls that
// carry a Finance withdrawal through the Token Manager and Voting apps.
package aragon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/payrail/internal/domain"
)

const (
	// CallScriptSpecID identifies the EVM call script executor
	CallScriptSpecID uint32 = 1

	wordSize = 32

	// referenceOffset is the offset of the string argument in newImmediatePayment
	referenceOffset = 4 * wordSize
	// forwardOffset is the offset of the bytes argument in forward
	forwardOffset = wordSize
)

var (
	WithdrawalSignature = "newImmediatePayment(address,address,uint256,string)"
	ForwardSignature    = "forward(bytes)"

	withdrawalSelector = selector(WithdrawalSignature)
	forwardSelector    = selector(ForwardSignature)
)

// Action is a single call inside a call script
type Action struct {
	Target common.Address
	Data   []byte
}

// Apps holds the proxy addresses of the apps a withdrawal is routed through
type Apps struct {
	TokenManager common.Address
	Voting       common.Address
	Finance      common.Address
}

func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

func word(n uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(n).Bytes(), wordSize)
}

func rightPad(b []byte) []byte {
	if rem := len(b) % wordSize; rem != 0 {
		return append(append([]byte{}, b...), make([]byte, wordSize-rem)...)
	}
	return append([]byte{}, b...)
}

// EncodeWithdrawal encodes a Finance newImmediatePayment call.
// The reference length is the UTF-8 byte length of reference.
func EncodeWithdrawal(token, recipient common.Address, amount *big.Int, reference string) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 256 {
		return nil, fmt.Errorf("%w: amount %v does not fit uint256", domain.ErrEncodingInvariant, amount)
	}
	ref := []byte(reference)

	var buf bytes.Buffer
	buf.Write(withdrawalSelector)
	buf.Write(common.LeftPadBytes(token.Bytes(), wordSize))
	buf.Write(common.LeftPadBytes(recipient.Bytes(), wordSize))
	buf.Write(common.LeftPadBytes(amount.Bytes(), wordSize))
	buf.Write(word(referenceOffset))
	buf.Write(word(uint64(len(ref))))
	if len(ref) > 0 {
		buf.Write(rightPad(ref))
	}
	return buf.Bytes(), nil
}

// EncodeCallScript encodes actions as an EVM call script: the spec id
// followed by target, 4-byte length and data for every action.
func EncodeCallScript(actions ...Action) ([]byte, error) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, CallScriptSpecID)
	for _, a := range actions {
		if uint64(len(a.Data)) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: call data of %d bytes exceeds script length field", domain.ErrEncodingInvariant, len(a.Data))
		}
		buf.Write(a.Target.Bytes())
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(a.Data)))
		buf.Write(a.Data)
	}
	return buf.Bytes(), nil
}

// DecodeCallScript parses a call script back into its actions
func DecodeCallScript(script []byte) ([]Action, error) {
	if len(script) < 4 {
		return nil, fmt.Errorf("%w: script shorter than spec id", domain.ErrEncodingInvariant)
	}
	if id := binary.BigEndian.Uint32(script[:4]); id != CallScriptSpecID {
		return nil, fmt.Errorf("%w: unexpected spec id %d", domain.ErrEncodingInvariant, id)
	}

	var actions []Action
	rest := script[4:]
	for len(rest) > 0 {
		if len(rest) < common.AddressLength+4 {
			return nil, fmt.Errorf("%w: truncated action header", domain.ErrEncodingInvariant)
		}
		target := common.BytesToAddress(rest[:common.AddressLength])
		size := binary.BigEndian.Uint32(rest[common.AddressLength : common.AddressLength+4])
		rest = rest[common.AddressLength+4:]
		if uint64(len(rest)) < uint64(size) {
			return nil, fmt.Errorf("%w: action declares %d bytes, %d left", domain.ErrEncodingInvariant, size, len(rest))
		}
		actions = append(actions, Action{Target: target, Data: append([]byte{}, rest[:size]...)})
		rest = rest[size:]
	}
	return actions, nil
}

// EncodeForward encodes a forward(bytes) call carrying script
func EncodeForward(script []byte) []byte {
	var buf bytes.Buffer
	buf.Write(forwardSelector)
	buf.Write(word(forwardOffset))
	buf.Write(word(uint64(len(script))))
	buf.Write(script)
	return buf.Bytes()
}

// DecodeForward extracts the script from forward(bytes) call data
func DecodeForward(data []byte) ([]byte, error) {
	if len(data) < 4+2*wordSize || !bytes.Equal(data[:4], forwardSelector) {
		return nil, fmt.Errorf("%w: not a forward call", domain.ErrEncodingInvariant)
	}
	offset := new(big.Int).SetBytes(data[4 : 4+wordSize])
	if offset.Cmp(big.NewInt(forwardOffset)) != 0 {
		return nil, fmt.Errorf("%w: unexpected bytes offset %s", domain.ErrEncodingInvariant, offset)
	}
	size := new(big.Int).SetBytes(data[4+wordSize : 4+2*wordSize])
	payload := data[4+2*wordSize:]
	if !size.IsUint64() || size.Uint64() > uint64(len(payload)) {
		return nil, fmt.Errorf("%w: forward declares %s bytes, %d present", domain.ErrEncodingInvariant, size, len(payload))
	}
	return append([]byte{}, payload[:size.Uint64()]...), nil
}

// BuildWithdrawalScript builds the script handed to the Token Manager:
// a call script targeting Voting whose data forwards a call script targeting
// Finance, which in turn executes the withdrawal.
func BuildWithdrawalScript(apps Apps, token, recipient common.Address, amount *big.Int, reference string) ([]byte, error) {
	withdrawal, err := EncodeWithdrawal(token, recipient, amount, reference)
	if err != nil {
		return nil, err
	}
	financeScript, err := EncodeCallScript(Action{Target: apps.Finance, Data: withdrawal})
	if err != nil {
		return nil, err
	}
	return EncodeCallScript(Action{Target: apps.Voting, Data: EncodeForward(financeScript)})
}
