package usecase_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
	"github.com/trebuchet-org/payrail/pkg/safe"
	"github.com/trebuchet-org/payrail/pkg/safe/safetest"
)

func TestShowDAOInfo(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		allowed bool
	}{
		{name: "sender holds tokens", allowed: true},
		{name: "sender cannot forward", allowed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			daos := new(MockDAOResolver)
			daos.On("ResolveDAO", ctx, "acme").Return(daoAddr, nil)
			daos.On("DiscoverApps", ctx, daoAddr).Return(daoApps(), nil)

			chain := new(MockChainClient)
			chain.On("CallContract", ctx, mock.MatchedBy(isCanForward), (*big.Int)(nil)).Return(canForwardResult(t, tt.allowed), nil)

			wallet := &MockWallet{address: sender}
			aragonUC := usecase.NewRequestAragonWithdrawal(daos, chain, wallet, discardLogger)
			info, err := usecase.NewShowDAOInfo(aragonUC, wallet).Run(ctx, "acme")
			require.NoError(t, err)
			assert.Equal(t, daoAddr, info.DAO.Address)
			assert.Equal(t, sender.Hex(), info.Sender)
			assert.Equal(t, tt.allowed, info.CanForward)
			wallet.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
		})
	}

	t.Run("unknown DAO", func(t *testing.T) {
		daos := new(MockDAOResolver)
		daos.On("ResolveDAO", ctx, "nobody").Return(common.Address{}, domain.ErrDaoNotFound)

		wallet := &MockWallet{address: sender}
		aragonUC := usecase.NewRequestAragonWithdrawal(daos, new(MockChainClient), wallet, discardLogger)
		_, err := usecase.NewShowDAOInfo(aragonUC, wallet).Run(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrDaoNotFound)
	})
}

func TestShowSafeInfo(t *testing.T) {
	ctx := context.Background()
	cfg := &config.RuntimeConfig{}

	t.Run("from relay", func(t *testing.T) {
		relay := new(MockSafeRelay)
		relay.On("SafeInfo", ctx, safeAddr).Return(&models.SafeInfo{
			Address:   safeAddr.Hex(),
			Version:   "1.3.0+L2",
			Nonce:     7,
			Threshold: 2,
			Owners:    []string{sender.Hex()},
		}, nil)
		relay.On("GetPendingTransactions", ctx, safeAddr).Return([]*safe.MultisigTransaction{{Nonce: 7}}, nil)

		details, err := usecase.NewShowSafeInfo(cfg, relay, new(MockChainClient)).Run(ctx, safeAddr)
		require.NoError(t, err)
		assert.Equal(t, "relay", details.Source)
		assert.Equal(t, safe.DomainChainIDVerifyingContract, details.Shape)
		assert.Equal(t, uint64(7), details.Info.Nonce)
		assert.Len(t, details.Pending, 1)
		assert.NoError(t, details.RelayError)
	})

	t.Run("falls back to the contract", func(t *testing.T) {
		relay := new(MockSafeRelay)
		relay.On("SafeInfo", ctx, safeAddr).Return(nil, errors.New("relay unavailable"))

		contract := &safetest.Contract{
			Address:   safeAddr,
			ChainID:   testChainID,
			Version:   "1.1.1",
			Nonce:     big.NewInt(3),
			Threshold: big.NewInt(1),
			Owners:    []common.Address{sender},
		}
		chain := &MockChainClient{caller: contract}

		details, err := usecase.NewShowSafeInfo(cfg, relay, chain).Run(ctx, safeAddr)
		require.NoError(t, err)
		assert.Equal(t, "contract", details.Source)
		assert.Error(t, details.RelayError)
		assert.Equal(t, safe.DomainVerifyingContract, details.Shape)
		assert.Equal(t, uint64(3), details.Info.Nonce)
		assert.Equal(t, 1, details.Info.Threshold)
		assert.Equal(t, []string{sender.Hex()}, details.Info.Owners)
		relay.AssertNotCalled(t, "GetPendingTransactions", mock.Anything, mock.Anything)
	})

	t.Run("not a safe", func(t *testing.T) {
		relay := new(MockSafeRelay)
		relay.On("SafeInfo", ctx, safeAddr).Return(nil, errors.New("not found"))
		chain := &MockChainClient{caller: &safetest.Contract{Address: safeAddr, Err: errors.New("execution reverted")}}

		_, err := usecase.NewShowSafeInfo(cfg, relay, chain).Run(ctx, safeAddr)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
