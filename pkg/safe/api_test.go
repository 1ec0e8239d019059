package safe_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/pkg/safe"
)

const testServiceURL = "https://relay.test/api/v1"

func newMockedClient(t *testing.T, chainID uint64) *safe.Client {
	t.Helper()
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	client, err := safe.NewClient(chainID, safe.WithServiceURL(testServiceURL+"/"), safe.WithHTTPClient(httpClient))
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	client, err := safe.NewClient(1)
	require.NoError(t, err)
	assert.Equal(t, "https://safe-transaction-mainnet.safe.global/api/v1", client.ServiceURL())

	_, err = safe.NewClient(999999)
	assert.ErrorIs(t, err, domain.ErrUnsupportedNetwork)

	client, err = safe.NewClient(999999, safe.WithServiceURL("https://custom/api/v1"))
	require.NoError(t, err)
	assert.Equal(t, "https://custom/api/v1", client.ServiceURL())
}

func TestLatestNonce(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantNonce uint64
		wantFound bool
		wantErr   bool
	}{
		{name: "history", status: 200, body: `{"count":3,"results":[{"nonce":7,"safeTxHash":"0x01"}]}`, wantNonce: 7, wantFound: true},
		{name: "no history", status: 200, body: `{"count":0,"results":[]}`},
		{name: "server error", status: 500, body: `oops`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockedClient(t, domain.ChainEthereum)
			httpmock.RegisterResponder(http.MethodGet,
				testServiceURL+"/safes/"+testSafe.Hex()+"/multisig-transactions/",
				httpmock.NewStringResponder(tt.status, tt.body))

			nonce, found, err := client.LatestNonce(context.Background(), testSafe)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantNonce, nonce)
		})
	}
}

func TestLatestNonceQuery(t *testing.T) {
	client := newMockedClient(t, domain.ChainEthereum)

	var query map[string][]string
	httpmock.RegisterResponder(http.MethodGet,
		testServiceURL+"/safes/"+testSafe.Hex()+"/multisig-transactions/",
		func(req *http.Request) (*http.Response, error) {
			query = req.URL.Query()
			return httpmock.NewStringResponse(200, `{"results":[]}`), nil
		})

	_, _, err := client.LatestNonce(context.Background(), testSafe)
	require.NoError(t, err)
	assert.Equal(t, []string{"True"}, query["has_confirmations"])
	assert.Equal(t, []string{"1"}, query["limit"])
}

func TestHarmonyUsesLegacyPath(t *testing.T) {
	client := newMockedClient(t, domain.ChainHarmony)
	httpmock.RegisterResponder(http.MethodGet,
		testServiceURL+"/safes/"+testSafe.Hex()+"/transactions/",
		httpmock.NewStringResponder(200, `{"results":[{"nonce":2}]}`))

	nonce, found, err := client.LatestNonce(context.Background(), testSafe)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(2), nonce)
}

func TestSafeInfo(t *testing.T) {
	client := newMockedClient(t, domain.ChainEthereum)
	httpmock.RegisterResponder(http.MethodGet,
		testServiceURL+"/safes/"+testSafe.Hex()+"/",
		httpmock.NewStringResponder(200, `{
			"address": "`+testSafe.Hex()+`",
			"nonce": 12,
			"threshold": 2,
			"owners": ["0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222"],
			"version": "1.3.0+L2"
		}`))

	info, err := client.SafeInfo(context.Background(), testSafe)
	require.NoError(t, err)
	assert.Equal(t, "1.3.0+L2", info.Version)
	assert.Equal(t, uint64(12), info.Nonce)
	assert.Equal(t, 2, info.Threshold)
	assert.Len(t, info.Owners, 2)
}

func TestSafeInfoNotFound(t *testing.T) {
	client := newMockedClient(t, domain.ChainEthereum)
	httpmock.RegisterResponder(http.MethodGet,
		testServiceURL+"/safes/"+testSafe.Hex()+"/",
		httpmock.NewStringResponder(404, `{"detail":"Not found."}`))

	_, err := client.SafeInfo(context.Background(), testSafe)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPropose(t *testing.T) {
	client := newMockedClient(t, domain.ChainEthereum)

	var posted map[string]any
	httpmock.RegisterResponder(http.MethodPost,
		testServiceURL+"/safes/"+testSafe.Hex()+"/multisig-transactions/",
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&posted); err != nil {
				return httpmock.NewStringResponse(400, err.Error()), nil
			}
			return httpmock.NewStringResponse(201, ""), nil
		})

	tx := safe.NewSafeTransaction(common.HexToAddress("0x3333333333333333333333333333333333333333"), big.NewInt(500), []byte{0xab}, models.SafeOperationDelegateCall, big.NewInt(8))
	sender := common.HexToAddress("0x4444444444444444444444444444444444444444")
	hash := common.HexToHash("0xfeed")
	proposal := safe.NewProposal(tx, hash, []byte{0x01, 0x02}, sender, "payrail")

	require.NoError(t, client.Propose(context.Background(), testSafe, proposal))
	require.NotNil(t, posted)

	assert.Equal(t, tx.To.Hex(), posted["to"])
	assert.Equal(t, "500", posted["value"])
	assert.Equal(t, "0xab", posted["data"])
	assert.Equal(t, float64(1), posted["operation"])
	assert.Equal(t, "0", posted["safeTxGas"])
	assert.Equal(t, "0", posted["baseGas"])
	assert.Equal(t, "0", posted["gasPrice"])
	assert.Equal(t, common.Address{}.Hex(), posted["gasToken"])
	assert.Equal(t, "8", posted["nonce"])
	assert.Equal(t, hash.Hex(), posted["contractTransactionHash"])
	assert.Equal(t, sender.Hex(), posted["sender"])
	assert.Equal(t, "0x0102", posted["signature"])
	assert.Equal(t, "payrail", posted["origin"])
}

func TestProposeRejected(t *testing.T) {
	client := newMockedClient(t, domain.ChainEthereum)
	httpmock.RegisterResponder(http.MethodPost,
		testServiceURL+"/safes/"+testSafe.Hex()+"/multisig-transactions/",
		httpmock.NewStringResponder(422, `{"nonce":["Nonce too low"]}`))

	tx := safe.NewSafeTransaction(testSafe, nil, nil, models.SafeOperationCall, big.NewInt(0))
	err := client.Propose(context.Background(), testSafe, safe.NewProposal(tx, common.Hash{}, nil, common.Address{}, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "Nonce too low")
}
