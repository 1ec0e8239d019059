package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

const (
	defaultPollInterval = 4 * time.Second
	// maxConsecutiveErrors stops a watch after this many failed polls in a row
	maxConsecutiveErrors = 5
)

// ReceiptSource is the subset of ChainClient the watcher polls
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// ReceiptWatcher polls for a receipt and reports one update per block of depth
type ReceiptWatcher struct {
	source   ReceiptSource
	interval time.Duration
	log      *slog.Logger
}

// NewReceiptWatcher creates a new polling receipt watcher
func NewReceiptWatcher(cfg *config.RuntimeConfig, chain usecase.ChainClient, log *slog.Logger) *ReceiptWatcher {
	return newReceiptWatcher(chain, cfg.PollInterval, log)
}

func newReceiptWatcher(source ReceiptSource, interval time.Duration, log *slog.Logger) *ReceiptWatcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &ReceiptWatcher{source: source, interval: interval, log: log.With("component", "watcher")}
}

// Watch emits an update for every confirmation up to confirmations. A
// reverted receipt is reported once and ends the watch.
func (w *ReceiptWatcher) Watch(ctx context.Context, hash common.Hash, confirmations int) <-chan usecase.ReceiptUpdate {
	if confirmations < 1 {
		confirmations = 1
	}
	out := make(chan usecase.ReceiptUpdate, confirmations)

	go func() {
		defer close(out)
		send := func(u usecase.ReceiptUpdate) bool {
			select {
			case out <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		delivered := 0
		failures := 0

		for {
			done, err := w.poll(ctx, hash, confirmations, &delivered, send)
			if done {
				return
			}
			if err != nil {
				failures++
				w.log.Debug("receipt poll failed", "hash", hash.Hex(), "attempt", failures, "error", err)
				if failures >= maxConsecutiveErrors {
					send(usecase.ReceiptUpdate{Err: err})
					return
				}
			} else {
				failures = 0
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

// poll reports whether the watch is complete
func (w *ReceiptWatcher) poll(ctx context.Context, hash common.Hash, confirmations int, delivered *int, send func(usecase.ReceiptUpdate) bool) (bool, error) {
	receipt, err := w.source.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		return false, err
	}

	if receipt.Status == types.ReceiptStatusFailed {
		send(usecase.ReceiptUpdate{Receipt: receipt, Confirmations: 1})
		return true, nil
	}
	if receipt.BlockNumber == nil {
		return false, nil
	}

	head, err := w.source.BlockNumber(ctx)
	if err != nil {
		return false, err
	}
	mined := receipt.BlockNumber.Uint64()
	if head < mined {
		return false, fmt.Errorf("head %d behind receipt block %d", head, mined)
	}
	depth := int(head-mined) + 1

	for *delivered < depth && *delivered < confirmations {
		*delivered++
		if !send(usecase.ReceiptUpdate{Receipt: receipt, Confirmations: *delivered}) {
			return true, nil
		}
	}
	return *delivered >= confirmations, nil
}

var _ usecase.ReceiptWatcher = (*ReceiptWatcher)(nil)
