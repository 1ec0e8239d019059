package usecase_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

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

func testSignature() []byte {
	sig := make([]byte, 65)
	sig[0] = 0x11
	sig[64] = 28
	return sig
}

func testWithdrawal(version string) models.SafeWithdrawal {
	return models.SafeWithdrawal{
		Safe:      safeAddr,
		Version:   version,
		ChainID:   testChainID,
		To:        recipientA,
		Value:     big.NewInt(1000),
		Operation: models.SafeOperationCall,
	}
}

type safeFixture struct {
	contract *safetest.Contract
	relay    *MockSafeRelay
	wallet   *MockWallet
	uc       *usecase.ProposeSafeWithdrawal
}

func newSafeFixture(version string) *safeFixture {
	contract := &safetest.Contract{
		Address: safeAddr,
		ChainID: testChainID,
		Version: version,
		Nonce:   big.NewInt(7),
	}
	relay := new(MockSafeRelay)
	wallet := &MockWallet{address: sender}
	chain := &MockChainClient{caller: contract}
	return &safeFixture{
		contract: contract,
		relay:    relay,
		wallet:   wallet,
		uc:       usecase.NewProposeSafeWithdrawal(&config.RuntimeConfig{}, relay, chain, wallet, discardLogger),
	}
}

func TestSubmitSafeWithdrawal(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		version    string
		relayNonce uint64
		relayFound bool
		relayErr   error
		wantNonce  int64
	}{
		{name: "relay nonce plus one", version: "1.3.0", relayNonce: 11, relayFound: true, wantNonce: 12},
		{name: "empty relay falls back to contract", version: "1.3.0", wantNonce: 7},
		{name: "relay error falls back to contract", version: "1.1.1", relayErr: errors.New("503"), wantNonce: 7},
		{name: "legacy domain", version: "1.2.0", relayNonce: 0, relayFound: true, wantNonce: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSafeFixture(tt.version)
			f.relay.On("LatestNonce", ctx, safeAddr).Return(tt.relayNonce, tt.relayFound, tt.relayErr)
			f.relay.On("Propose", ctx, safeAddr, mock.Anything).Return(nil)
			f.wallet.On("SignTypedData", ctx, safe.SignMethodV3, mock.Anything).Return(testSignature(), nil)

			submission, err := f.uc.Submit(ctx, testWithdrawal(tt.version))
			require.NoError(t, err)
			assert.Equal(t, big.NewInt(tt.wantNonce), submission.Nonce)
			assert.Equal(t, string(safe.SignMethodV3), submission.SignMethod)
			assert.Equal(t, sender, submission.Sender)

			proposal := f.relay.Calls[1].Arguments.Get(2).(*safe.Proposal)
			assert.Equal(t, submission.ContractTransactionHash.Hex(), proposal.ContractTransactionHash)
			assert.Equal(t, usecase.DefaultOrigin, proposal.Origin)
			assert.Contains(t, f.contract.Calls, "getTransactionHash")
		})
	}
}

func TestSubmitSafeWithdrawalLooksUpVersion(t *testing.T) {
	ctx := context.Background()
	f := newSafeFixture("1.3.0")
	f.relay.On("LatestNonce", ctx, safeAddr).Return(uint64(0), false, nil)
	f.relay.On("SafeInfo", ctx, safeAddr).Return(nil, domain.ErrNotFound)
	f.relay.On("Propose", ctx, safeAddr, mock.Anything).Return(nil)
	f.wallet.On("SignTypedData", ctx, safe.SignMethodV3, mock.Anything).Return(testSignature(), nil)

	_, err := f.uc.Submit(ctx, testWithdrawal(""))
	require.NoError(t, err)
	assert.Contains(t, f.contract.Calls, "VERSION")
}

func TestSubmitSafeWithdrawalHashMismatch(t *testing.T) {
	ctx := context.Background()
	// The contract hashes with the chainId domain, the caller claims a legacy Safe
	f := newSafeFixture("1.3.0")
	f.relay.On("LatestNonce", ctx, safeAddr).Return(uint64(0), false, nil)
	f.wallet.On("SignTypedData", ctx, safe.SignMethodV3, mock.Anything).Return(testSignature(), nil)

	_, err := f.uc.Submit(ctx, testWithdrawal("1.1.1"))
	assert.ErrorIs(t, err, domain.ErrEncodingInvariant)
	f.relay.AssertNotCalled(t, "Propose", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitSafeWithdrawalSigningRejected(t *testing.T) {
	ctx := context.Background()
	f := newSafeFixture("1.3.0")
	f.relay.On("LatestNonce", ctx, safeAddr).Return(uint64(0), false, nil)
	rejected := &domain.SignerError{Code: safe.UserRejectedCode, Message: "User denied message signature"}
	f.wallet.On("SignTypedData", ctx, safe.SignMethodV3, mock.Anything).Return(nil, rejected)

	_, err := f.uc.Submit(ctx, testWithdrawal("1.3.0"))
	assert.ErrorIs(t, err, rejected)
	f.wallet.AssertNumberOfCalls(t, "SignTypedData", 1)
	f.relay.AssertNotCalled(t, "Propose", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitSafeWithdrawalRelayFailure(t *testing.T) {
	ctx := context.Background()
	f := newSafeFixture("1.3.0")
	f.relay.On("LatestNonce", ctx, safeAddr).Return(uint64(3), true, nil)
	f.relay.On("Propose", ctx, safeAddr, mock.Anything).Return(errors.New("422 Unprocessable Entity")).Once()
	f.wallet.On("SignTypedData", ctx, safe.SignMethodV3, mock.Anything).Return(testSignature(), nil)

	_, err := f.uc.Submit(ctx, testWithdrawal("1.3.0"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRelaySubmissionFailed)
	assert.Equal(t, "Failed to create Gnosis Safe withdrawal.", domain.UserMessage(err))

	var failed *usecase.RelaySubmissionError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, safeAddr, failed.Safe)

	f.relay.On("Propose", ctx, safeAddr, failed.Proposal).Return(nil).Once()
	require.NoError(t, f.uc.Retry(ctx, failed))
	f.wallet.AssertNumberOfCalls(t, "SignTypedData", 1)
}
