package safe

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
)

// MultiSendCallOnlyAddress is the canonical MultiSendCallOnly v1.3.0 deployment
var MultiSendCallOnlyAddress = common.HexToAddress("0x40A2aCCbd92BCA938b02010E17A5b8929b49130D")

// MultiSendOverrides pins chains whose MultiSend lives outside the deployment registry
var MultiSendOverrides = map[uint64]common.Address{
	domain.ChainHarmony:        common.HexToAddress("0xDEff67e9A02b4Ce60ff62F3CB5FFB41d48856285"),
	domain.ChainHarmonyTestnet: common.HexToAddress("0xDEff67e9A02b4Ce60ff62F3CB5FFB41d48856285"),
}

// MultiSendDeployments is the MultiSendCallOnly deployment registry by chain
var MultiSendDeployments = map[uint64]common.Address{
	domain.ChainEthereum: MultiSendCallOnlyAddress,
	domain.ChainRinkeby:  MultiSendCallOnlyAddress,
	domain.ChainGoerli:   MultiSendCallOnlyAddress,
	10:                   MultiSendCallOnlyAddress,
	56:                   MultiSendCallOnlyAddress,
	100:                  MultiSendCallOnlyAddress,
	137:                  MultiSendCallOnlyAddress,
	42161:                MultiSendCallOnlyAddress,
	43114:                MultiSendCallOnlyAddress,
}

// MultiSendAddress returns the MultiSend contract used on chainID
func MultiSendAddress(chainID uint64) common.Address {
	if addr, ok := MultiSendOverrides[chainID]; ok {
		return addr
	}
	if addr, ok := MultiSendDeployments[chainID]; ok {
		return addr
	}
	return MultiSendCallOnlyAddress
}

const multiSendABIJSON = `[{"type":"function","name":"multiSend","stateMutability":"payable","inputs":[{"name":"transactions","type":"bytes"}],"outputs":[]}]`

var MultiSendABI = mustParseABI(multiSendABIJSON)

// packedCallHeader is operation (1) + to (20) + value (32) + data length (32)
const packedCallHeader = 1 + common.AddressLength + 32 + 32

// PackMultiSend serializes calls in order into the MultiSend transactions buffer
func PackMultiSend(calls []models.MultiSendCall) ([]byte, error) {
	var buf bytes.Buffer
	for i, c := range calls {
		value := c.Value
		if value == nil {
			value = new(big.Int)
		}
		if value.Sign() < 0 || value.BitLen() > 256 {
			return nil, fmt.Errorf("%w: call %d value %s does not fit uint256", domain.ErrEncodingInvariant, i, value)
		}
		buf.WriteByte(byte(c.Operation))
		buf.Write(c.To.Bytes())
		buf.Write(common.LeftPadBytes(value.Bytes(), 32))
		buf.Write(common.LeftPadBytes(big.NewInt(int64(len(c.Data))).Bytes(), 32))
		buf.Write(c.Data)
	}
	return buf.Bytes(), nil
}

// PackedLength returns the exact length PackMultiSend produces for calls
func PackedLength(calls []models.MultiSendCall) int {
	n := 0
	for _, c := range calls {
		n += packedCallHeader + len(c.Data)
	}
	return n
}

// EncodeMultiSend packs calls and encodes them as a multiSend(bytes) call
func EncodeMultiSend(calls []models.MultiSendCall) ([]byte, error) {
	packed, err := PackMultiSend(calls)
	if err != nil {
		return nil, err
	}
	if len(packed) != PackedLength(calls) {
		return nil, fmt.Errorf("%w: packed %d bytes, expected %d", domain.ErrEncodingInvariant, len(packed), PackedLength(calls))
	}
	return MultiSendABI.Pack("multiSend", packed)
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
