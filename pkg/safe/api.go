package safe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tidwall/gjson"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
)

// MultisigTransaction represents a Safe multisig transaction
type MultisigTransaction struct {
	Safe                  string         `json:"safe"`
	To                    string         `json:"to"`
	Value                 string         `json:"value"`
	Data                  *string        `json:"data"`
	Operation             int            `json:"operation"`
	GasToken              string         `json:"gasToken"`
	RefundReceiver        string         `json:"refundReceiver"`
	Nonce                 int            `json:"nonce"`
	ExecutionDate         *time.Time     `json:"executionDate"`
	SubmissionDate        time.Time      `json:"submissionDate"`
	TransactionHash       *string        `json:"transactionHash"`
	SafeTxHash            string         `json:"safeTxHash"`
	IsExecuted            bool           `json:"isExecuted"`
	IsSuccessful          *bool          `json:"isSuccessful"`
	Origin                string         `json:"origin"`
	ConfirmationsRequired int            `json:"confirmationsRequired"`
	Confirmations         []Confirmation `json:"confirmations"`
}

// Confirmation represents a confirmation on a Safe transaction
type Confirmation struct {
	Owner          string    `json:"owner"`
	SubmissionDate time.Time `json:"submissionDate"`
	Signature      string    `json:"signature"`
	SignatureType  string    `json:"signatureType"`
}

// Proposal is the signed transaction package posted to the service
type Proposal struct {
	To                      string `json:"to"`
	Value                   string `json:"value"`
	Data                    string `json:"data"`
	Operation               uint8  `json:"operation"`
	SafeTxGas               string `json:"safeTxGas"`
	BaseGas                 string `json:"baseGas"`
	GasPrice                string `json:"gasPrice"`
	GasToken                string `json:"gasToken"`
	RefundReceiver          string `json:"refundReceiver"`
	Nonce                   string `json:"nonce"`
	ContractTransactionHash string `json:"contractTransactionHash"`
	Sender                  string `json:"sender"`
	Signature               string `json:"signature"`
	Origin                  string `json:"origin,omitempty"`
}

// NewProposal packages a signed Safe transaction for submission
func NewProposal(tx *models.SafeTransaction, contractHash common.Hash, signature []byte, sender common.Address, origin string) *Proposal {
	return &Proposal{
		To:                      tx.To.Hex(),
		Value:                   bigOrZero(tx.Value).String(),
		Data:                    hexutil.Encode(tx.Data),
		Operation:               uint8(tx.Operation),
		SafeTxGas:               bigOrZero(tx.SafeTxGas).String(),
		BaseGas:                 bigOrZero(tx.BaseGas).String(),
		GasPrice:                bigOrZero(tx.GasPrice).String(),
		GasToken:                tx.GasToken.Hex(),
		RefundReceiver:          tx.RefundReceiver.Hex(),
		Nonce:                   bigOrZero(tx.Nonce).String(),
		ContractTransactionHash: contractHash.Hex(),
		Sender:                  sender.Hex(),
		Signature:               hexutil.Encode(signature),
		Origin:                  origin,
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", endpoint, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

func (c *Client) safeURL(safeAddress common.Address, path string) string {
	return fmt.Sprintf("%s/safes/%s%s/", c.serviceURL, safeAddress.Hex(), path)
}

// GetTransaction retrieves a Safe transaction by its hash
func (c *Client) GetTransaction(ctx context.Context, safeTxHash common.Hash) (*MultisigTransaction, error) {
	endpoint := fmt.Sprintf("%s%s/%s/", c.serviceURL, TransactionsPath(c.chainID), safeTxHash.Hex())
	data, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var tx MultisigTransaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &tx, nil
}

// GetPendingTransactions retrieves pending transactions for a Safe
func (c *Client) GetPendingTransactions(ctx context.Context, safeAddress common.Address) ([]*MultisigTransaction, error) {
	query := url.Values{}
	query.Set("executed", "false")
	query.Set("ordering", "-nonce")
	endpoint := c.safeURL(safeAddress, TransactionsPath(c.chainID)) + "?" + query.Encode()

	data, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Results []*MultisigTransaction `json:"results"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Results, nil
}

// SafeInfo retrieves the Safe's version, nonce and owners as the service knows them
func (c *Client) SafeInfo(ctx context.Context, safeAddress common.Address) (*models.SafeInfo, error) {
	data, err := c.do(ctx, http.MethodGet, c.safeURL(safeAddress, ""), nil)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(data)
	info := &models.SafeInfo{
		Address:   safeAddress.Hex(),
		Version:   parsed.Get("version").String(),
		Nonce:     parsed.Get("nonce").Uint(),
		Threshold: int(parsed.Get("threshold").Int()),
	}
	for _, owner := range parsed.Get("owners").Array() {
		info.Owners = append(info.Owners, owner.String())
	}
	return info, nil
}

// LatestNonce returns the nonce of the Safe's most recent confirmed transaction.
// found is false when the service has no history for the Safe.
func (c *Client) LatestNonce(ctx context.Context, safeAddress common.Address) (nonce uint64, found bool, err error) {
	query := url.Values{}
	query.Set("has_confirmations", "True")
	query.Set("limit", "1")
	endpoint := c.safeURL(safeAddress, TransactionsPath(c.chainID)) + "?" + query.Encode()

	data, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, false, err
	}

	last := gjson.GetBytes(data, "results.0.nonce")
	if !last.Exists() {
		return 0, false, nil
	}
	return last.Uint(), true, nil
}

// Propose posts a signed transaction to the service
func (c *Client) Propose(ctx context.Context, safeAddress common.Address, proposal *Proposal) error {
	if _, err := c.do(ctx, http.MethodPost, c.safeURL(safeAddress, TransactionsPath(c.chainID)), proposal); err != nil {
		return fmt.Errorf("failed to propose transaction: %w", err)
	}
	return nil
}
