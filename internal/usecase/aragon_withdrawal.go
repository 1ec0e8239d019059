package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/pkg/aragon"
)

// RequestAragonWithdrawal submits Finance withdrawals through a DAO's
// Token Manager and Voting apps
type RequestAragonWithdrawal struct {
	daos   DAOResolver
	chain  ChainClient
	wallet Wallet
	log    *slog.Logger
}

// NewRequestAragonWithdrawal creates a new Aragon withdrawal use case
func NewRequestAragonWithdrawal(daos DAOResolver, chain ChainClient, wallet Wallet, log *slog.Logger) *RequestAragonWithdrawal {
	return &RequestAragonWithdrawal{
		daos:   daos,
		chain:  chain,
		wallet: wallet,
		log:    log.With("component", "aragon"),
	}
}

// AragonWithdrawalRequest describes a withdrawal from a DAO's Finance app
type AragonWithdrawalRequest struct {
	DAO       *DAO
	Token     common.Address // zero address withdraws the native coin
	Recipient common.Address
	Amount    *big.Int
	Reference string
}

// Prepare resolves the DAO and checks the sender may forward scripts through
// its Token Manager. It runs before anything is sent for a payout.
func (a *RequestAragonWithdrawal) Prepare(ctx context.Context, name string) (*DAO, error) {
	dao, err := a.Discover(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := a.authorize(ctx, dao, []byte{}); err != nil {
		return nil, err
	}
	return dao, nil
}

// Discover resolves a DAO name or address and discovers its apps. Every
// required app must be installed.
func (a *RequestAragonWithdrawal) Discover(ctx context.Context, name string) (*DAO, error) {
	address, err := a.daos.ResolveDAO(ctx, name)
	if err != nil {
		return nil, err
	}

	apps, err := a.daos.DiscoverApps(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrDaoInitializationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrDaoInitializationFailed, err)
	}

	missing := lo.Filter(aragon.RequiredApps, func(app string, _ int) bool {
		addr, ok := apps[app]
		return !ok || addr == (common.Address{})
	})
	if len(missing) > 0 {
		return nil, &domain.MissingAppsError{DAO: name, Missing: missing}
	}

	a.log.Debug("resolved DAO", "name", name, "address", address.Hex(), "apps", len(apps))
	return &DAO{Name: name, Address: address, Apps: apps}, nil
}

// CanForward asks the Token Manager whether sender may forward script
func (a *RequestAragonWithdrawal) CanForward(ctx context.Context, dao *DAO, sender common.Address, script []byte) (bool, error) {
	tokenManager := dao.Apps[aragon.AppTokenManager]
	data, err := aragon.TokenManagerABI.Pack("canForward", sender, script)
	if err != nil {
		return false, fmt.Errorf("%w: failed to pack canForward: %v", domain.ErrEncodingInvariant, err)
	}
	out, err := a.chain.CallContract(ctx, ethereum.CallMsg{From: sender, To: &tokenManager, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("%w: canForward: %v", domain.ErrChainCallFailed, err)
	}
	values, err := aragon.TokenManagerABI.Unpack("canForward", out)
	if err != nil || len(values) == 0 {
		return false, fmt.Errorf("%w: unexpected canForward result", domain.ErrChainCallFailed)
	}
	allowed, _ := values[0].(bool)
	return allowed, nil
}

func (a *RequestAragonWithdrawal) authorize(ctx context.Context, dao *DAO, script []byte) error {
	sender := a.wallet.Address()
	allowed, err := a.CanForward(ctx, dao, sender, script)
	if err != nil {
		return err
	}
	if !allowed {
		return &domain.PermissionError{Sender: sender.Hex(), DAO: lo.CoalesceOrEmpty(dao.Name, dao.Address.Hex())}
	}
	return nil
}

// Withdraw builds the forwarding script, checks the sender may forward it
// and sends it to the Token Manager. Nothing is sent when the check fails.
func (a *RequestAragonWithdrawal) Withdraw(ctx context.Context, req AragonWithdrawalRequest) (common.Hash, error) {
	dao := req.DAO
	apps := aragon.Apps{
		TokenManager: dao.Apps[aragon.AppTokenManager],
		Voting:       dao.Apps[aragon.AppVoting],
		Finance:      dao.Apps[aragon.AppFinance],
	}
	script, err := aragon.BuildWithdrawalScript(apps, req.Token, req.Recipient, req.Amount, req.Reference)
	if err != nil {
		return common.Hash{}, err
	}

	if err := a.authorize(ctx, dao, script); err != nil {
		return common.Hash{}, err
	}

	data, err := aragon.TokenManagerABI.Pack("forward", script)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: failed to pack forward: %v", domain.ErrEncodingInvariant, err)
	}
	to := apps.TokenManager
	hash, err := a.wallet.SendTransaction(ctx, CallRequest{To: &to, Value: new(big.Int), Data: data})
	if err != nil {
		return common.Hash{}, err
	}
	a.log.Info("DAO withdrawal requested", "dao", dao.Address.Hex(), "hash", hash.Hex(), "amount", req.Amount.String())
	return hash, nil
}
