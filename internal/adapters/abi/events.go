package abi

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/trebuchet-org/payrail/internal/adapters/repository/contracts"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// ErrUnknownEvent is returned for logs whose topic matches no payout event
var ErrUnknownEvent = errors.New("unknown event signature")

// EventParser decodes the events emitted by batch and smart wallet contracts
type EventParser struct {
	events map[common.Hash]abi.Event
	log    *slog.Logger
}

// NewEventParser collects the events declared by the registered payout contracts
func NewEventParser(repo *contracts.Repository, log *slog.Logger) (*EventParser, error) {
	p := &EventParser{
		events: make(map[common.Hash]abi.Event),
		log:    log.With("component", "EventParser"),
	}
	for _, key := range []string{contracts.KeyBatch, contracts.KeyDelegatedBatch, contracts.KeyWallet} {
		artifact, err := repo.Artifact(key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		p.register(artifact.ABI)
	}
	return p, nil
}

func newEventParserFromABI(log *slog.Logger, abis ...abi.ABI) *EventParser {
	p := &EventParser{
		events: make(map[common.Hash]abi.Event),
		log:    log,
	}
	for _, a := range abis {
		p.register(a)
	}
	return p
}

func (p *EventParser) register(contract abi.ABI) {
	for _, event := range contract.Events {
		if event.Anonymous {
			continue
		}
		p.events[event.ID] = event
	}
}

// ParseReceipt decodes every recognised log of a receipt. Unknown logs are skipped.
func (p *EventParser) ParseReceipt(receipt *types.Receipt) []domain.ParsedEvent {
	if receipt == nil {
		return nil
	}
	var parsed []domain.ParsedEvent
	for _, l := range receipt.Logs {
		event, err := p.ParseEvent(l)
		if err != nil {
			if !errors.Is(err, ErrUnknownEvent) {
				p.log.Warn("failed to parse event", "topic", l.Topics[0].Hex(), "error", err)
			}
			continue
		}
		p.log.Debug("parsed event", "event", event)
		parsed = append(parsed, event)
	}
	return parsed
}

// ParseEvent decodes a single log
func (p *EventParser) ParseEvent(l *types.Log) (domain.ParsedEvent, error) {
	if len(l.Topics) == 0 {
		return nil, fmt.Errorf("%w: log has no topics", ErrUnknownEvent)
	}
	event, ok := p.events[l.Topics[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, l.Topics[0].Hex())
	}

	values, err := decodeLog(event, l)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", event.Name, err)
	}

	switch domain.EventType(event.Name) {
	case domain.EventTypeBatchTransfer:
		transfer := batchTransfer(values, l)
		return &transfer, nil
	case domain.EventTypeBatchTransferRequested:
		return &domain.BatchTransferRequestedEvent{BatchTransferEvent: batchTransfer(values, l)}, nil
	case domain.EventTypeReceived:
		return &domain.ReceivedEvent{
			Contract:      l.Address,
			From:          addressValue(values, "from"),
			Amount:        bigValue(values, "amount"),
			TransactionID: l.TxHash,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, event.Name)
	}
}

// decodeLog merges indexed topics and unpacked data into one map keyed by input name
func decodeLog(event abi.Event, l *types.Log) (map[string]any, error) {
	values := make(map[string]any)

	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if len(indexed) > 0 {
		if len(l.Topics) < len(indexed)+1 {
			return nil, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(l.Topics))
		}
		if err := abi.ParseTopicsIntoMap(values, indexed, l.Topics[1:]); err != nil {
			return nil, fmt.Errorf("failed to parse topics: %w", err)
		}
	}

	if len(l.Data) > 0 {
		if err := event.Inputs.NonIndexed().UnpackIntoMap(values, l.Data); err != nil {
			return nil, fmt.Errorf("failed to unpack data: %w", err)
		}
	}
	return values, nil
}

func batchTransfer(values map[string]any, l *types.Log) domain.BatchTransferEvent {
	return domain.BatchTransferEvent{
		Contract:       l.Address,
		Sender:         addressValue(values, "sender"),
		Recipients:     addressesValue(values, "recipients"),
		Values:         bigsValue(values, "values"),
		TokenAddresses: addressesValue(values, "tokenAddresses"),
		TransactionID:  l.TxHash,
	}
}

func addressValue(values map[string]any, key string) common.Address {
	addr, _ := values[key].(common.Address)
	return addr
}

func addressesValue(values map[string]any, key string) []common.Address {
	addrs, _ := values[key].([]common.Address)
	return addrs
}

func bigValue(values map[string]any, key string) *big.Int {
	if v, ok := values[key].(*big.Int); ok {
		return v
	}
	return new(big.Int)
}

func bigsValue(values map[string]any, key string) []*big.Int {
	v, _ := values[key].([]*big.Int)
	return v
}

var _ usecase.EventParser = (*EventParser)(nil)
