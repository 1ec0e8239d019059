package blockchain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// fakeChain mines the watched transaction after minedAfter polls and
// advances the head by one block per poll.
type fakeChain struct {
	mu         sync.Mutex
	polls      int
	minedAfter int
	minedAt    uint64
	status     uint64
	receiptErr error
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.polls <= f.minedAfter {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{TxHash: hash, Status: f.status, BlockNumber: new(big.Int).SetUint64(f.minedAt)}, nil
}

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minedAt + uint64(f.polls-f.minedAfter-1), nil
}

func collect(t *testing.T, ch <-chan usecase.ReceiptUpdate) []usecase.ReceiptUpdate {
	t.Helper()
	var updates []usecase.ReceiptUpdate
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return updates
			}
			updates = append(updates, u)
		case <-timeout:
			t.Fatal("watch did not finish")
			return nil
		}
	}
}

func testWatcher(chain ReceiptSource) *ReceiptWatcher {
	return newReceiptWatcher(chain, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWatchReportsEachConfirmation(t *testing.T) {
	chain := &fakeChain{minedAfter: 2, minedAt: 100, status: types.ReceiptStatusSuccessful}
	updates := collect(t, testWatcher(chain).Watch(context.Background(), common.HexToHash("0x01"), 3))

	require.Len(t, updates, 3)
	for i, u := range updates {
		require.NoError(t, u.Err)
		assert.Equal(t, i+1, u.Confirmations)
	}
}

func TestWatchStopsAtRevert(t *testing.T) {
	chain := &fakeChain{minedAt: 100, status: types.ReceiptStatusFailed}
	updates := collect(t, testWatcher(chain).Watch(context.Background(), common.HexToHash("0x01"), 2))

	require.Len(t, updates, 1)
	assert.Equal(t, types.ReceiptStatusFailed, updates[0].Receipt.Status)
}

func TestWatchGivesUpAfterRepeatedErrors(t *testing.T) {
	chain := &fakeChain{receiptErr: errors.New("connection refused")}
	updates := collect(t, testWatcher(chain).Watch(context.Background(), common.HexToHash("0x01"), 2))

	require.Len(t, updates, 1)
	assert.Error(t, updates[0].Err)
	assert.Equal(t, maxConsecutiveErrors, chain.polls)
}

func TestWatchEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	chain := &fakeChain{minedAfter: 1 << 30}
	ch := testWatcher(chain).Watch(ctx, common.HexToHash("0x01"), 2)
	cancel()

	assert.Empty(t, collect(t, ch))
}
