package render

import (
	"bytes"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/internal/usecase"
	"github.com/trebuchet-org/payrail/pkg/safe"
)

func init() {
	color.NoColor = true
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   *big.Int
		decimals int
		want     string
	}{
		{nil, 18, "0"},
		{big.NewInt(350), 0, "350"},
		{big.NewInt(1500000), 6, "1.5"},
		{big.NewInt(1), 6, "0.000001"},
		{big.NewInt(2000000), 6, "2"},
		{big.NewInt(-250), 2, "-2.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.amount, tt.decimals))
	}
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "❌ Boom", FormatError("wrapped: context: boom"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Token Manager", Title("token-manager"))
}

func listRecords() []*models.TransactionRecord {
	return []*models.TransactionRecord{
		{
			Hash:             "0xaaaa000000000000000000000000000000000000000000000000000000000001",
			ChainID:          100,
			From:             "0x5E00000000000000000000000000000000000001",
			Value:            "1500000",
			Currency:         "USDC",
			Recipients:       []string{"0x01", "0x02"},
			PaymentMethod:    models.PaymentMethodDelegatedTransfer,
			Status:           models.TransactionStatusFinal,
			Confirmed:        lo.ToPtr(true),
			Delegated:        true,
			DelegatedAddress: "0xD000000000000000000000000000000000000001",
			PaidAt:           time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			Hash:          "0xbbbb000000000000000000000000000000000000000000000000000000000002",
			ChainID:       1,
			From:          "0x5E00000000000000000000000000000000000001",
			Value:         "7",
			PaymentMethod: models.PaymentMethodDefault,
			Status:        models.TransactionStatusFailed,
			Error:         "Failed to make payment",
			PaidAt:        time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestRenderTransactionList(t *testing.T) {
	var out bytes.Buffer
	result := &usecase.TransactionListResult{
		Transactions: listRecords(),
		Summary: usecase.TransactionSummary{
			Total:    2,
			ByStatus: map[models.TransactionStatus]int{models.TransactionStatusFailed: 1, models.TransactionStatusFinal: 1},
		},
	}

	require.NoError(t, NewTransactionsRenderer(&out, 6).RenderTransactionList(result))
	output := out.String()

	assert.Contains(t, output, domain.ChainName(1))
	assert.Contains(t, output, domain.ChainName(100))
	assert.Less(t, bytes.Index(out.Bytes(), []byte(domain.ChainName(1))), bytes.Index(out.Bytes(), []byte(domain.ChainName(100))))
	assert.Contains(t, output, "Smart Contract Address")
	assert.Contains(t, output, "1.5 USDC")
	assert.Contains(t, output, "awaiting batch")
	assert.Contains(t, output, "2 payouts")
	assert.Contains(t, output, "1 failed")
}

func TestRenderTransactionList_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewTransactionsRenderer(&out, 0).RenderTransactionList(&usecase.TransactionListResult{}))
	assert.Equal(t, "No payouts found\n", out.String())
}

func TestRenderTransactionDetails(t *testing.T) {
	record := listRecords()[0]
	record.DelegatedConfirmed = true
	record.Values = []string{"1000000", "500000"}

	t.Run("with receipt and events", func(t *testing.T) {
		var out bytes.Buffer
		details := &usecase.TransactionDetails{
			Record: record,
			Inspector: &models.InspectorMetadata{Payments: []models.InspectorPayment{
				{RecipientAddress: "0x01", RecipientName: "Alice"},
			}},
			Receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(42), GasUsed: 21000},
			Events: []domain.ParsedEvent{&domain.ReceivedEvent{
				Contract: common.HexToAddress("0xD000000000000000000000000000000000000001"),
				From:     common.HexToAddress("0x5E00000000000000000000000000000000000001"),
				Amount:   big.NewInt(1500000),
			}},
		}
		require.NoError(t, NewTransactionsRenderer(&out, 6).RenderTransactionDetails(details))
		output := out.String()
		assert.Contains(t, output, record.Hash)
		assert.Contains(t, output, "0xD000000000000000000000000000000000000001")
		assert.Contains(t, output, "Alice")
		assert.Contains(t, output, "0.5")
		assert.Contains(t, output, "success")
		assert.Contains(t, output, "Received")
	})

	t.Run("pending", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, NewTransactionsRenderer(&out, 6).RenderTransactionDetails(&usecase.TransactionDetails{Record: record}))
		assert.Contains(t, out.String(), "no receipt yet")
	})

	t.Run("chain error", func(t *testing.T) {
		var out bytes.Buffer
		details := &usecase.TransactionDetails{Record: record, ChainError: errors.New("dial tcp: refused")}
		require.NoError(t, NewTransactionsRenderer(&out, 6).RenderTransactionDetails(details))
		assert.Contains(t, out.String(), "receipt unavailable")
	})
}

func TestRenderBatch(t *testing.T) {
	var out bytes.Buffer
	alice := common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob := common.HexToAddress("0xb0b0000000000000000000000000000000000002")
	batch := &models.PayoutBatch{
		ChainID: 4,
		Payments: []models.PaymentRequest{
			{Recipient: alice, Amount: big.NewInt(1500000), Name: "Alice", Details: "March"},
			{Recipient: bob, Amount: big.NewInt(500000), Name: "Bob"},
		},
	}

	NewPayoutRenderer(&out, 6).RenderBatch(batch)

	output := out.String()
	assert.Contains(t, output, "2 payment(s)")
	assert.Contains(t, output, alice.Hex())
	assert.Contains(t, output, bob.Hex())
	assert.Contains(t, output, "1.5")
	assert.Contains(t, output, "March")
}

func TestRenderNotification(t *testing.T) {
	var out bytes.Buffer
	r := NewPayoutRenderer(&out, 0)

	r.RenderNotification(usecase.Event{Name: domain.NotificationPayoutInitiated, Payload: domain.PayoutEvent{Hash: "0xabc", PaymentMethod: "wallet"}})
	r.RenderNotification(usecase.Event{Name: domain.NotificationPayoutCompleted, Payload: domain.PayoutEvent{Hash: "0xabc", Confirmations: 2, DelegatedAddress: "0xd1"}})
	r.RenderNotification(usecase.Event{Name: domain.NotificationCreateWalletCompleted, Payload: domain.WalletEvent{Address: "0x3a11"}})
	r.RenderNotification(usecase.Event{Name: domain.NotificationPayoutFailed, Payload: "ignored"})

	output := out.String()
	assert.Contains(t, output, "Sent wallet payout 0xabc")
	assert.Contains(t, output, "2 confirmations")
	assert.Contains(t, output, "batch contract: 0xd1")
	assert.Contains(t, output, "Smart wallet deployed at 0x3a11")
}

func TestRenderResume(t *testing.T) {
	var out bytes.Buffer
	r := NewPayoutRenderer(&out, 0)

	r.RenderResume(nil)
	assert.Equal(t, "Nothing to resume\n", out.String())

	out.Reset()
	r.RenderResume(&usecase.ResumeResult{
		Snapshot: &models.Snapshot{Screen: "payments", Dialog: "payout", State: models.SnapshotState{Hash: "0xabc", Paid: true}},
		Record:   &models.TransactionRecord{Status: models.TransactionStatusFinal},
	})
	assert.Contains(t, out.String(), "was paid")
	assert.Contains(t, out.String(), "current status: final")
}

func TestRenderSyncResult(t *testing.T) {
	var out bytes.Buffer
	result := &usecase.ReconcileResult{
		ChainID:            100,
		DirectChecked:      3,
		Confirmed:          1,
		Failed:             1,
		StillPending:       1,
		DelegatedChecked:   2,
		DelegatedConfirmed: 1,
		Errors:             []string{"0xabc: timeout"},
	}
	require.NoError(t, NewSyncRenderer(&out).RenderSyncResult(result))
	output := out.String()
	assert.Contains(t, output, "Checked 3 pending transaction(s)")
	assert.Contains(t, output, "1 still pending")
	assert.Contains(t, output, "Scanned 2 batch contract(s), 1 paid out")
	assert.Contains(t, output, "0xabc: timeout")
	assert.Contains(t, output, "Updated 3 record(s)")
}

func TestRenderGovernance(t *testing.T) {
	t.Run("dao", func(t *testing.T) {
		var out bytes.Buffer
		info := &usecase.DAOInfo{
			DAO: &usecase.DAO{
				Name:    "payroll",
				Address: common.HexToAddress("0xda0"),
				Apps:    map[string]common.Address{"finance": common.HexToAddress("0xf1"), "token-manager": common.HexToAddress("0x7a")},
			},
			Sender: "0x5E00000000000000000000000000000000000001",
		}
		require.NoError(t, NewGovernanceRenderer(&out).RenderDAOInfo(info))
		assert.Contains(t, out.String(), "Token Manager")
		assert.Contains(t, out.String(), "cannot forward")
	})

	t.Run("safe", func(t *testing.T) {
		var out bytes.Buffer
		details := &usecase.SafeDetails{
			Info:   &models.SafeInfo{Address: "0x5afe", Version: "1.3.0", Nonce: 7, Threshold: 2, Owners: []string{"0x01", "0x02", "0x03"}},
			Shape:  safe.DomainChainIDVerifyingContract,
			Source: "relay",
			Pending: []*safe.MultisigTransaction{
				{Nonce: 7, SafeTxHash: "0xfeed", To: "0xd1", ConfirmationsRequired: 2, Confirmations: []safe.Confirmation{{}}, Origin: "payrail"},
			},
		}
		require.NoError(t, NewGovernanceRenderer(&out).RenderSafeInfo(details))
		output := out.String()
		assert.Contains(t, output, "2 of 3")
		assert.Contains(t, output, "chainId+verifyingContract")
		assert.Contains(t, output, "1/2")
		assert.Contains(t, output, "payrail")
	})
}
