package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Notification is the name of a lifecycle event emitted on the event bus
type Notification string

const (
	NotificationPayoutInitiated       Notification = "payout_initiated"
	NotificationPayoutCompleted       Notification = "payout_completed"
	NotificationPayoutFailed          Notification = "payout_failed"
	NotificationCreateWalletInitiated Notification = "create_wallet_initiated"
	NotificationCreateWalletCompleted Notification = "create_wallet_completed"
	NotificationCreateWalletFailed    Notification = "create_wallet_failed"
)

// PayoutEvent is the JSON payload carried by payout notifications
type PayoutEvent struct {
	Hash             string `json:"hash"`
	ChainID          uint64 `json:"chain"`
	PaymentMethod    string `json:"paymentMethod"`
	DelegatedAddress string `json:"delegatedAddress,omitempty"`
	Confirmations    int    `json:"confirmations,omitempty"`
	Message          string `json:"message,omitempty"`
}

// WalletEvent is the JSON payload carried by wallet creation notifications
type WalletEvent struct {
	Hash    string `json:"hash,omitempty"`
	ChainID uint64 `json:"chain"`
	Owner   string `json:"owner"`
	Address string `json:"address,omitempty"`
	Message string `json:"message,omitempty"`
}

type EventType string

// BatchTransferSignature is emitted by batch contracts once they paid out
const BatchTransferSignature = "BatchTransfer(address,address[],uint256[],address[])"

// BatchTransferTopic is the log topic of BatchTransferSignature
var BatchTransferTopic = crypto.Keccak256Hash([]byte(BatchTransferSignature))

const (
	EventTypeBatchTransfer          EventType = "BatchTransfer"
	EventTypeBatchTransferRequested EventType = "BatchTransferRequested"
	EventTypeReceived               EventType = "Received"
	EventTypeUnknown                EventType = "Unknown"
)

// ParsedEvent is the interface for decoded batch contract events
type ParsedEvent interface {
	ContractEventName() string
	String() string
}

// BatchTransferEvent is emitted by a delegated batch contract once it paid out
type BatchTransferEvent struct {
	Contract       common.Address
	Sender         common.Address
	Recipients     []common.Address
	Values         []*big.Int
	TokenAddresses []common.Address
	TransactionID  common.Hash
}

func (BatchTransferEvent) ContractEventName() string {
	return string(EventTypeBatchTransfer)
}

func (e *BatchTransferEvent) String() string {
	return fmt.Sprintf("%s: contract=%s, recipients=%d, tx=%s",
		e.ContractEventName(),
		TruncateAddress(e.Contract.Hex()),
		len(e.Recipients),
		TruncateAddress(e.TransactionID.Hex()),
	)
}

// BatchTransferRequestedEvent is emitted when a batch contract is asked to pay out
type BatchTransferRequestedEvent struct {
	BatchTransferEvent
}

func (BatchTransferRequestedEvent) ContractEventName() string {
	return string(EventTypeBatchTransferRequested)
}

// ReceivedEvent is emitted when a batch contract is funded
type ReceivedEvent struct {
	Contract      common.Address
	From          common.Address
	Amount        *big.Int
	TransactionID common.Hash
}

func (ReceivedEvent) ContractEventName() string {
	return string(EventTypeReceived)
}

func (e *ReceivedEvent) String() string {
	return fmt.Sprintf("%s: contract=%s, from=%s, amount=%s",
		e.ContractEventName(),
		TruncateAddress(e.Contract.Hex()),
		TruncateAddress(e.From.Hex()),
		e.Amount.String(),
	)
}
