package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/config"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/pkg/safe"
)

// DefaultOrigin is attached to every proposal unless configured otherwise
const DefaultOrigin = "payrail"

// RelaySubmissionError is returned when the relay rejected a signed proposal.
// The proposal can be posted again without signing it again.
type RelaySubmissionError struct {
	Safe     common.Address
	Proposal *safe.Proposal
	Err      error
}

func (e *RelaySubmissionError) Error() string {
	return fmt.Sprintf("failed to propose transaction to safe %s: %v", e.Safe.Hex(), e.Err)
}

func (e *RelaySubmissionError) Unwrap() []error {
	return []error{domain.ErrRelaySubmissionFailed, e.Err}
}

// ProposeSafeWithdrawal builds, signs and proposes Safe transactions
type ProposeSafeWithdrawal struct {
	relay  SafeRelay
	chain  ChainClient
	wallet Wallet
	origin string
	log    *slog.Logger
}

// NewProposeSafeWithdrawal creates a new Safe withdrawal use case
func NewProposeSafeWithdrawal(cfg *config.RuntimeConfig, relay SafeRelay, chain ChainClient, wallet Wallet, log *slog.Logger) *ProposeSafeWithdrawal {
	origin := cfg.Origin
	if origin == "" {
		origin = DefaultOrigin
	}
	return &ProposeSafeWithdrawal{
		relay:  relay,
		chain:  chain,
		wallet: wallet,
		origin: origin,
		log:    log.With("component", "safe"),
	}
}

// Submit runs nonce, hash, sign and post in that order
func (p *ProposeSafeWithdrawal) Submit(ctx context.Context, w models.SafeWithdrawal) (*models.SafeSubmission, error) {
	contract := safe.NewContract(w.Safe, p.chain)

	nonce, err := p.nextNonce(ctx, contract)
	if err != nil {
		return nil, err
	}
	version := w.Version
	if version == "" {
		if version, err = p.Version(ctx, contract); err != nil {
			return nil, err
		}
	}
	safeDomain, err := safe.NewDomain(w.Safe, w.ChainID, version)
	if err != nil {
		return nil, err
	}

	tx := safe.NewSafeTransaction(w.To, w.Value, w.Data, w.Operation, nonce)
	localHash, err := safeDomain.TransactionHash(tx)
	if err != nil {
		return nil, err
	}
	p.log.Debug("safe transaction hashed", "safe", w.Safe.Hex(), "nonce", nonce.String(), "domain", safeDomain.Shape.String(), "hash", localHash.Hex())

	signature, method, err := safe.SignTypedData(ctx, p.wallet, safeDomain.TypedData(tx))
	if err != nil {
		return nil, err
	}

	contractHash, err := contract.TransactionHash(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrChainCallFailed, err)
	}
	if contractHash != localHash {
		return nil, fmt.Errorf("%w: safe transaction hash %s does not match contract hash %s", domain.ErrEncodingInvariant, localHash.Hex(), contractHash.Hex())
	}

	sender := p.wallet.Address()
	proposal := safe.NewProposal(tx, contractHash, signature, sender, p.origin)
	if err := p.relay.Propose(ctx, w.Safe, proposal); err != nil {
		return nil, &RelaySubmissionError{Safe: w.Safe, Proposal: proposal, Err: err}
	}

	p.log.Info("safe transaction proposed", "safe", w.Safe.Hex(), "hash", contractHash.Hex(), "method", method)
	return &models.SafeSubmission{
		Safe:                    w.Safe,
		Nonce:                   nonce,
		ContractTransactionHash: contractHash,
		Signature:               signature,
		Sender:                  sender,
		SignMethod:              string(method),
	}, nil
}

// Retry posts a previously rejected proposal again
func (p *ProposeSafeWithdrawal) Retry(ctx context.Context, failed *RelaySubmissionError) error {
	if err := p.relay.Propose(ctx, failed.Safe, failed.Proposal); err != nil {
		return &RelaySubmissionError{Safe: failed.Safe, Proposal: failed.Proposal, Err: err}
	}
	return nil
}

// nextNonce is the relay's last nonce + 1, else the Safe's on-chain nonce
func (p *ProposeSafeWithdrawal) nextNonce(ctx context.Context, contract *safe.Contract) (*big.Int, error) {
	last, found, err := p.relay.LatestNonce(ctx, contract.Address())
	if err == nil && found {
		return new(big.Int).SetUint64(last + 1), nil
	}
	if err != nil {
		p.log.Debug("relay nonce unavailable, reading contract", "safe", contract.Address().Hex(), "error", err)
	}
	nonce, err := contract.Nonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrChainCallFailed, err)
	}
	return nonce, nil
}

// Version looks up the Safe version on the relay, else on the contract
func (p *ProposeSafeWithdrawal) Version(ctx context.Context, contract *safe.Contract) (string, error) {
	info, err := p.relay.SafeInfo(ctx, contract.Address())
	if err == nil && info.Version != "" {
		return info.Version, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		p.log.Debug("relay safe info unavailable, reading contract", "safe", contract.Address().Hex(), "error", err)
	}
	version, err := contract.Version(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read safe version: %v", domain.ErrChainCallFailed, err)
	}
	return version, nil
}
