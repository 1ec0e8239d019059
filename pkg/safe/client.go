package safe

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/trebuchet-org/payrail/internal/domain"
)

// TransactionServiceURLs contains the Safe Transaction Service URLs for different networks
var TransactionServiceURLs = map[uint64]string{
	1:        "https://safe-transaction-mainnet.safe.global",
	5:        "https://safe-transaction-goerli.safe.global",
	10:       "https://safe-transaction-optimism.safe.global",
	100:      "https://safe-transaction-gnosis-chain.safe.global",
	137:      "https://safe-transaction-polygon.safe.global",
	42161:    "https://safe-transaction-arbitrum.safe.global",
	11155111: "https://safe-transaction-sepolia.safe.global",
	8453:     "https://safe-transaction-base.safe.global",
	56:       "https://safe-transaction-bsc.safe.global",
	43114:    "https://safe-transaction-avalanche.safe.global",
}

const apiVersionPath = "/api/v1"

// Client talks to a Safe Transaction Service
type Client struct {
	chainID    uint64
	serviceURL string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithServiceURL overrides the service root. The URL must include the API version path.
func WithServiceURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.serviceURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for the service of chainID
func NewClient(chainID uint64, opts ...Option) (*Client, error) {
	c := &Client{
		chainID: chainID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	if base, ok := TransactionServiceURLs[chainID]; ok {
		c.serviceURL = base + apiVersionPath
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.serviceURL == "" {
		return nil, fmt.Errorf("%w: no Safe transaction service for chain ID %d", domain.ErrUnsupportedNetwork, chainID)
	}
	return c, nil
}

// ChainID returns the chain the client serves
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// ServiceURL returns the service root
func (c *Client) ServiceURL() string {
	return c.serviceURL
}

// TransactionsPath returns the multisig transactions collection path.
// Harmony's service predates the multisig-transactions rename.
func TransactionsPath(chainID uint64) string {
	if domain.IsHarmony(chainID) {
		return "/transactions"
	}
	return "/multisig-transactions"
}
