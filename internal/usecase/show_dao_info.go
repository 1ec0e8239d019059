package usecase

import "context"

// ShowDAOInfo resolves a DAO, lists its apps and checks the sender's permission
type ShowDAOInfo struct {
	aragon *RequestAragonWithdrawal
	wallet Wallet
}

// NewShowDAOInfo creates a new ShowDAOInfo use case
func NewShowDAOInfo(aragon *RequestAragonWithdrawal, wallet Wallet) *ShowDAOInfo {
	return &ShowDAOInfo{aragon: aragon, wallet: wallet}
}

// DAOInfo is a resolved DAO with the sender's forwarding permission
type DAOInfo struct {
	DAO        *DAO
	Sender     string
	CanForward bool
}

// Run resolves name and checks whether the configured sender may forward
func (uc *ShowDAOInfo) Run(ctx context.Context, name string) (*DAOInfo, error) {
	dao, err := uc.aragon.Discover(ctx, name)
	if err != nil {
		return nil, err
	}
	sender := uc.wallet.Address()

	// An empty script: the Token Manager only checks the sender's balance
	allowed, err := uc.aragon.CanForward(ctx, dao, sender, []byte{})
	if err != nil {
		return nil, err
	}
	return &DAOInfo{DAO: dao, Sender: sender.Hex(), CanForward: allowed}, nil
}
