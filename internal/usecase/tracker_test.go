package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

const (
	txHash      = "0xAB00000000000000000000000000000000000000000000000000000000000001"
	txHashLower = "0xab00000000000000000000000000000000000000000000000000000000000001"
)

func resolvedPayout(t *testing.T, method models.PaymentMethod) *usecase.ResolvedPayout {
	t.Helper()
	batch := twoPayments(method)
	if method == models.PaymentMethodAragon {
		batch.Aragon = &models.AragonTarget{Name: "acme"}
	}
	resolved, err := usecase.NewPayoutResolver(testContracts(t, batchABI), NewMemoryStore()).Resolve(context.Background(), batch)
	require.NoError(t, err)
	return resolved
}

func newTracker(confirmations int, visible bool) (*usecase.PayoutTracker, *MemoryStore, *RecordingBus) {
	store := NewMemoryStore()
	bus := &RecordingBus{}
	cfg := &config.RuntimeConfig{Confirmations: confirmations}
	return usecase.NewPayoutTracker(cfg, store, bus, staticPresence(visible), discardLogger), store, bus
}

func TestTrackerDirectPayout(t *testing.T) {
	ctx := context.Background()
	tracker, store, bus := newTracker(0, true)
	payout := resolvedPayout(t, models.PaymentMethodDefault)
	paidAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	transition, err := tracker.Handle(ctx, usecase.HashEvent{Hash: txHash, Payout: payout, PaidAt: paidAt})
	require.NoError(t, err)
	assert.Equal(t, txHashLower, transition.Record.Hash)

	record, err := store.Get(ctx, txHashLower)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSent, record.Status)
	assert.False(t, record.IsConfirmed())
	assert.NotNil(t, record.Confirmed)
	assert.Equal(t, paidAt, record.PaidAt)

	transition, err = tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash})
	require.NoError(t, err)
	assert.True(t, transition.Completed)
	assert.Equal(t, models.TransactionStatusConfirmed, transition.Record.Status)
	assert.True(t, transition.Record.IsConfirmed())

	transition, err = tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash})
	require.NoError(t, err)
	assert.False(t, transition.Completed)
	assert.Equal(t, models.TransactionStatusFinal, transition.Record.Status)
	assert.Equal(t, 2, transition.Record.Confirmations)

	assert.Equal(t, []domain.Notification{
		domain.NotificationPayoutInitiated,
		domain.NotificationPayoutCompleted,
	}, bus.Names())

	inspector, err := store.GetInspector(ctx, txHashLower)
	require.NoError(t, err)
	assert.Equal(t, txHashLower, inspector.TransactionHash)
	assert.Equal(t, paidAt, inspector.CreatedAt)
	assert.Len(t, inspector.Payments, 2)
}

func TestTrackerIgnoresConfirmationsBeyondCap(t *testing.T) {
	ctx := context.Background()

	for _, extra := range []int{1, 3, 10} {
		tracker, store, bus := newTracker(2, true)
		_, err := tracker.Handle(ctx, usecase.HashEvent{Hash: txHash, Payout: resolvedPayout(t, models.PaymentMethodDefault)})
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			_, err := tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash})
			require.NoError(t, err)
		}
		final, err := store.Get(ctx, txHashLower)
		require.NoError(t, err)
		updates := store.updates

		for i := 0; i < extra; i++ {
			transition, err := tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash})
			require.NoError(t, err)
			assert.True(t, transition.Ignored)
		}

		after, err := store.Get(ctx, txHashLower)
		require.NoError(t, err)
		assert.Equal(t, final, after)
		assert.Equal(t, updates, store.updates)
		assert.Len(t, bus.Names(), 2)
	}
}

func TestTrackerCapOfOneStaysConfirmed(t *testing.T) {
	ctx := context.Background()
	tracker, store, _ := newTracker(1, true)
	_, err := tracker.Handle(ctx, usecase.HashEvent{Hash: txHash, Payout: resolvedPayout(t, models.PaymentMethodDefault)})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash})
		require.NoError(t, err)
	}
	record, err := store.Get(ctx, txHashLower)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusConfirmed, record.Status)
	assert.Equal(t, 1, record.Confirmations)
	assert.True(t, record.PendingDirect(), "sync finalizes records left at confirmed")
}

func TestTrackerReplayedHashKeepsRecord(t *testing.T) {
	ctx := context.Background()
	tracker, store, bus := newTracker(2, true)
	payout := resolvedPayout(t, models.PaymentMethodDefault)

	_, err := tracker.Handle(ctx, usecase.HashEvent{Hash: txHash, Payout: payout})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash})
		require.NoError(t, err)
	}

	transition, err := tracker.Handle(ctx, usecase.HashEvent{Hash: txHash, Payout: payout})
	require.NoError(t, err)
	assert.True(t, transition.Ignored)
	assert.Equal(t, models.TransactionStatusFinal, transition.Record.Status)

	transition, err = tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash})
	require.NoError(t, err)
	assert.True(t, transition.Ignored)

	record, err := store.Get(ctx, txHashLower)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFinal, record.Status)
	assert.True(t, record.IsConfirmed())
	assert.Equal(t, 2, record.Confirmations)
	assert.Equal(t, []domain.Notification{
		domain.NotificationPayoutInitiated,
		domain.NotificationPayoutCompleted,
	}, bus.Names())
}

func TestTrackerConfirmationAfterSweep(t *testing.T) {
	ctx := context.Background()
	tracker, store, _ := newTracker(2, true)
	_, err := tracker.Handle(ctx, usecase.HashEvent{Hash: txHash, Payout: resolvedPayout(t, models.PaymentMethodDefault)})
	require.NoError(t, err)

	final := models.TransactionStatusFinal
	_, err = store.Update(ctx, txHashLower, models.RecordUpdate{Status: &final, Confirmed: lo.ToPtr(true)})
	require.NoError(t, err)

	transition, err := tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFinal, transition.Record.Status)

	record, err := store.Get(ctx, txHashLower)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFinal, record.Status)
	assert.Equal(t, 1, record.Confirmations)
	assert.False(t, record.PendingDirect())
}

func TestTrackerDelegatedAddress(t *testing.T) {
	ctx := context.Background()
	tracker, store, bus := newTracker(0, true)
	_, err := tracker.Handle(ctx, usecase.HashEvent{Hash: txHash, Payout: resolvedPayout(t, models.PaymentMethodDelegatedTransfer)})
	require.NoError(t, err)

	_, err = tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash, ContractAddress: batchAddr.Hex()})
	require.NoError(t, err)

	record, err := store.Get(ctx, txHashLower)
	require.NoError(t, err)
	assert.Equal(t, batchAddr.Hex(), record.DelegatedAddress)
	assert.True(t, record.PendingDelegated())

	completed := bus.events[1].Payload.(domain.PayoutEvent)
	assert.Equal(t, batchAddr.Hex(), completed.DelegatedAddress)

	inspector, err := store.GetInspector(ctx, txHashLower)
	require.NoError(t, err)
	assert.Equal(t, batchAddr.Hex(), inspector.BatchAddress)
}

func TestTrackerFailure(t *testing.T) {
	ctx := context.Background()
	tracker, store, bus := newTracker(0, true)
	_, err := tracker.Handle(ctx, usecase.HashEvent{Hash: txHash, Payout: resolvedPayout(t, models.PaymentMethodDefault)})
	require.NoError(t, err)

	_, err = tracker.Handle(ctx, usecase.FailureEvent{Hash: txHash, Err: errors.New("execution reverted")})
	require.NoError(t, err)

	record, err := store.Get(ctx, txHashLower)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, record.Status)
	assert.Equal(t, "execution reverted", record.Error)
	assert.False(t, record.PendingDirect())

	transition, err := tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash})
	require.NoError(t, err)
	assert.True(t, transition.Ignored)
	assert.Equal(t, []domain.Notification{domain.NotificationPayoutInitiated, domain.NotificationPayoutFailed}, bus.Names())
}

func TestTrackerFailureAfterConfirmation(t *testing.T) {
	ctx := context.Background()

	for _, confirmations := range []int{1, 2} {
		tracker, store, bus := newTracker(2, true)
		_, err := tracker.Handle(ctx, usecase.HashEvent{Hash: txHash, Payout: resolvedPayout(t, models.PaymentMethodDefault)})
		require.NoError(t, err)
		for i := 0; i < confirmations; i++ {
			_, err := tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash})
			require.NoError(t, err)
		}
		before, err := store.Get(ctx, txHashLower)
		require.NoError(t, err)

		transition, err := tracker.Handle(ctx, usecase.FailureEvent{Hash: txHash, Err: errors.New("provider error")})
		require.NoError(t, err)
		assert.True(t, transition.Ignored)

		after, err := store.Get(ctx, txHashLower)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.True(t, after.IsConfirmed())
		assert.NotContains(t, bus.Names(), domain.NotificationPayoutFailed)
	}
}

func TestTrackerSnapshots(t *testing.T) {
	ctx := context.Background()

	t.Run("no snapshot while visible", func(t *testing.T) {
		tracker, _, _ := newTracker(0, true)
		_, err := tracker.Handle(ctx, usecase.HashEvent{Hash: txHash, Payout: resolvedPayout(t, models.PaymentMethodDefault)})
		require.NoError(t, err)

		snapshot, err := tracker.ConsumeSnapshot(ctx)
		require.NoError(t, err)
		assert.Nil(t, snapshot)
	})

	t.Run("hidden payout leaves the latest state once", func(t *testing.T) {
		tracker, _, _ := newTracker(0, false)
		_, err := tracker.Handle(ctx, usecase.HashEvent{Hash: txHash, Payout: resolvedPayout(t, models.PaymentMethodDefault)})
		require.NoError(t, err)

		snapshot, err := tracker.ConsumeSnapshot(ctx)
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, usecase.SnapshotScreenPayments, snapshot.Screen)
		assert.Equal(t, usecase.SnapshotDialogPayout, snapshot.Dialog)
		assert.True(t, snapshot.State.Processing)
		assert.True(t, snapshot.State.Sent)

		_, err = tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash})
		require.NoError(t, err)
		snapshot, err = tracker.ConsumeSnapshot(ctx)
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.True(t, snapshot.State.Paid)
		assert.False(t, snapshot.State.Processing)

		snapshot, err = tracker.ConsumeSnapshot(ctx)
		require.NoError(t, err)
		assert.Nil(t, snapshot)
	})

	t.Run("failure snapshot carries the generic message", func(t *testing.T) {
		tracker, _, _ := newTracker(0, false)
		_, err := tracker.Handle(ctx, usecase.HashEvent{Hash: txHash, Payout: resolvedPayout(t, models.PaymentMethodDefault)})
		require.NoError(t, err)
		_, err = tracker.Handle(ctx, usecase.FailureEvent{Hash: txHash, Err: errors.New("boom")})
		require.NoError(t, err)

		snapshot, err := tracker.ConsumeSnapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Failed to make payment", snapshot.State.Error)
	})
}

func TestTrackerResumesStoredRecords(t *testing.T) {
	ctx := context.Background()
	confirmed := false
	store := NewMemoryStore(&models.TransactionRecord{
		Hash:          txHashLower,
		ChainID:       testChainID,
		PaymentMethod: models.PaymentMethodDefault,
		Status:        models.TransactionStatusSent,
		Confirmed:     &confirmed,
	})
	tracker := usecase.NewPayoutTracker(&config.RuntimeConfig{}, store, &RecordingBus{}, staticPresence(true), discardLogger)

	transition, err := tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: txHash})
	require.NoError(t, err)
	assert.True(t, transition.Completed)

	_, err = tracker.Handle(ctx, usecase.ConfirmationEvent{Hash: "0xdead"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
