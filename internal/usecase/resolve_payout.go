package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/domain/models"
	"github.com/trebuchet-org/payrail/pkg/safe"
)

// Batch contract argument names inspected to pick the multi-token form
const (
	argTokenAddresses      = "tokenAddresses"
	argTokenAddressIndices = "tokenAddressIndices"
	argTokenPointers       = "tokenPointers" // legacy name of tokenAddressIndices
)

// ResolvedPayout is a payout batch turned into exactly one submission:
// an on-chain Call or an off-chain Safe withdrawal.
type ResolvedPayout struct {
	Batch  *models.PayoutBatch
	Method models.PaymentMethod

	Call *CallRequest
	Safe *models.SafeWithdrawal

	// Record is the record template saved once a hash is known
	Record models.TransactionRecord
	// Inspector is the descriptive metadata stored with the record
	Inspector models.InspectorMetadata
}

// PayoutResolver chooses and builds the call payload of a payout batch
type PayoutResolver struct {
	contracts ContractsRegistry
	store     TransactionStore
}

// NewPayoutResolver creates a new payout resolver
func NewPayoutResolver(contracts ContractsRegistry, store TransactionStore) *PayoutResolver {
	return &PayoutResolver{
		contracts: contracts,
		store:     store,
	}
}

// Resolve validates batch and builds its submission. Nothing is sent.
func (r *PayoutResolver) Resolve(ctx context.Context, batch *models.PayoutBatch) (*ResolvedPayout, error) {
	method, err := models.ParsePaymentMethod(string(batch.Method))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedPaymentMethod, err)
	}
	if err := validateBatch(batch); err != nil {
		return nil, err
	}

	contracts, err := r.contracts.ChainContracts(ctx, batch.ChainID)
	if err != nil && !errors.Is(err, domain.ErrUnsupportedNetwork) {
		return nil, err
	}

	resolved := &ResolvedPayout{Batch: batch, Method: method}

	switch method {
	case models.PaymentMethodDefault:
		err = r.resolveDefault(resolved, contracts)
	case models.PaymentMethodSmartWallet:
		err = r.resolveSmartWallet(ctx, resolved, contracts)
	case models.PaymentMethodDelegatedTransfer:
		err = r.resolveDelegated(resolved, contracts)
	case models.PaymentMethodAragon:
		if batch.Aragon == nil || batch.Aragon.Name == "" {
			return nil, fmt.Errorf("%w: aragon payout without DAO", domain.ErrMissingContractMetadata)
		}
		err = r.resolveDelegated(resolved, contracts)
	case models.PaymentMethodGnosis:
		if batch.Safe == nil || batch.Safe.Address == (common.Address{}) {
			return nil, fmt.Errorf("%w: gnosis payout without safe", domain.ErrMissingContractMetadata)
		}
		if batch.Safe.ViaContract {
			err = r.resolveDelegated(resolved, contracts)
		} else {
			resolved.Safe, err = MultiSendWithdrawal(batch)
		}
	default:
		err = fmt.Errorf("%w: %s", domain.ErrUnsupportedPaymentMethod, method)
	}
	if err != nil {
		return nil, err
	}

	r.describe(resolved)
	return resolved, nil
}

// AvailableMethods lists the payment methods batch can be sent with on its
// chain, in display order. Targets set on the batch enable Aragon and Gnosis.
func (r *PayoutResolver) AvailableMethods(ctx context.Context, batch *models.PayoutBatch) ([]models.PaymentMethod, error) {
	contracts, err := r.contracts.ChainContracts(ctx, batch.ChainID)
	if err != nil && !errors.Is(err, domain.ErrUnsupportedNetwork) {
		return nil, err
	}
	hasDelegated := contracts != nil && contracts.DelegatedBatch != nil && len(contracts.DelegatedBatch.Bytecode) > 0

	var methods []models.PaymentMethod
	for _, method := range models.PaymentMethods {
		switch method {
		case models.PaymentMethodDefault:
			if len(batch.Payments) == 1 || (contracts != nil && contracts.Batch.HasAddress()) {
				methods = append(methods, method)
			}
		case models.PaymentMethodDelegatedTransfer:
			if hasDelegated {
				methods = append(methods, method)
			}
		case models.PaymentMethodAragon:
			if hasDelegated && batch.Aragon != nil && batch.Aragon.Name != "" {
				methods = append(methods, method)
			}
		case models.PaymentMethodGnosis:
			if batch.Safe != nil && batch.Safe.Address != (common.Address{}) && (!batch.Safe.ViaContract || hasDelegated) {
				methods = append(methods, method)
			}
		case models.PaymentMethodSmartWallet:
			if contracts == nil || contracts.Wallet == nil {
				continue
			}
			if _, ok := contracts.Token(batch.TokenSymbol); !ok {
				continue
			}
			_, err := r.store.GetWallet(ctx, batch.ChainID, batch.Sender.Hex())
			switch {
			case err == nil:
				methods = append(methods, method)
			case !errors.Is(err, domain.ErrNotFound):
				return nil, fmt.Errorf("failed to load smart wallet: %w", err)
			}
		}
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: no payment method available on %s", domain.ErrUnsupportedNetwork, domain.ChainName(batch.ChainID))
	}
	return methods, nil
}

func validateBatch(batch *models.PayoutBatch) error {
	if batch.Sender == (common.Address{}) {
		return domain.ErrAuthRequired
	}
	if len(batch.Payments) == 0 {
		return fmt.Errorf("%w: no payments in batch", domain.ErrInvalidPayment)
	}
	for i, p := range batch.Payments {
		if p.Recipient == (common.Address{}) {
			return fmt.Errorf("%w: payment %d has no recipient", domain.ErrInvalidPayment, i+1)
		}
		if p.Amount == nil || p.Amount.Sign() <= 0 {
			return fmt.Errorf("%w: payment %d to %s has a non-positive amount", domain.ErrInvalidPayment, i+1, p.Recipient.Hex())
		}
	}
	return nil
}

func (r *PayoutResolver) resolveDefault(resolved *ResolvedPayout, contracts *models.ChainContracts) error {
	batch := resolved.Batch
	if len(batch.Payments) == 1 {
		to := batch.Payments[0].Recipient
		resolved.Call = &CallRequest{To: &to, Value: new(big.Int).Set(batch.Payments[0].Amount)}
		return nil
	}

	if contracts == nil || contracts.Batch == nil || !contracts.Batch.HasAddress() {
		return fmt.Errorf("%w: no batch contract on chain %d", domain.ErrUnsupportedNetwork, batch.ChainID)
	}
	data, err := packBatchTransfer(contracts.Batch, batch, false, common.Address{})
	if err != nil {
		return err
	}
	to := contracts.Batch.Address
	resolved.Call = &CallRequest{To: &to, Value: batch.Total(), Data: data}
	return nil
}

func (r *PayoutResolver) resolveSmartWallet(ctx context.Context, resolved *ResolvedPayout, contracts *models.ChainContracts) error {
	batch := resolved.Batch
	if contracts == nil || contracts.Wallet == nil {
		return fmt.Errorf("%w: no smart wallet contract on chain %d", domain.ErrUnsupportedNetwork, batch.ChainID)
	}
	token, ok := contracts.Token(batch.TokenSymbol)
	if !ok || token.Address == (common.Address{}) {
		return fmt.Errorf("%w: stable coin %q is not available on chain %d", domain.ErrMissingContractMetadata, batch.TokenSymbol, batch.ChainID)
	}
	wallet, err := r.store.GetWallet(ctx, batch.ChainID, batch.Sender.Hex())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: no smart wallet for %s on chain %d", domain.ErrMissingContractMetadata, batch.Sender.Hex(), batch.ChainID)
		}
		return fmt.Errorf("failed to load smart wallet: %w", err)
	}

	walletContract := *contracts.Wallet
	walletContract.Address = common.HexToAddress(wallet.Address)
	data, err := packBatchTransfer(&walletContract, batch, true, token.Address)
	if err != nil {
		return err
	}
	to := walletContract.Address
	resolved.Call = &CallRequest{To: &to, Value: new(big.Int), Data: data}
	return nil
}

func (r *PayoutResolver) resolveDelegated(resolved *ResolvedPayout, contracts *models.ChainContracts) error {
	batch := resolved.Batch
	if contracts == nil {
		return fmt.Errorf("%w: no contracts registered for %s", domain.ErrUnsupportedNetwork, domain.ChainName(batch.ChainID))
	}
	if contracts.DelegatedBatch == nil || len(contracts.DelegatedBatch.Bytecode) == 0 {
		return fmt.Errorf("%w: no delegated batch bytecode on chain %d", domain.ErrMissingContractMetadata, batch.ChainID)
	}
	delegated := contracts.DelegatedBatch

	args, err := batchArguments(delegated.ABI.Constructor.Inputs, batch, false, common.Address{})
	if err != nil {
		return err
	}
	packed, err := delegated.ABI.Pack("", args...)
	if err != nil {
		return fmt.Errorf("%w: failed to pack delegated batch constructor: %v", domain.ErrEncodingInvariant, err)
	}
	data := append(append([]byte{}, delegated.Bytecode...), packed...)
	resolved.Call = &CallRequest{Value: new(big.Int), Data: data}
	return nil
}

// MultiSendWithdrawal builds the direct Gnosis payout: a delegate call into
// the chain's MultiSend executing one value transfer per payment.
func MultiSendWithdrawal(batch *models.PayoutBatch) (*models.SafeWithdrawal, error) {
	calls := lo.Map(batch.Payments, func(p models.PaymentRequest, _ int) models.MultiSendCall {
		return models.MultiSendCall{
			Operation: models.SafeOperationCall,
			To:        p.Recipient,
			Value:     new(big.Int).Set(p.Amount),
		}
	})
	data, err := safe.EncodeMultiSend(calls)
	if err != nil {
		return nil, err
	}
	return &models.SafeWithdrawal{
		Safe:      batch.Safe.Address,
		Version:   batch.Safe.Version,
		ChainID:   batch.ChainID,
		To:        safe.MultiSendAddress(batch.ChainID),
		Value:     new(big.Int),
		Data:      data,
		Operation: models.SafeOperationDelegateCall,
		Reference: batch.Summary(""),
	}, nil
}

// ContractWithdrawal builds the Safe withdrawal funding a deployed delegated
// batch contract with the batch total.
func ContractWithdrawal(batch *models.PayoutBatch, delegated common.Address) *models.SafeWithdrawal {
	return &models.SafeWithdrawal{
		Safe:      batch.Safe.Address,
		Version:   batch.Safe.Version,
		ChainID:   batch.ChainID,
		To:        delegated,
		Value:     batch.Total(),
		Operation: models.SafeOperationCall,
		Reference: batch.Summary(delegated.Hex()),
	}
}

// batchMethod returns batchTransfer, or payout on older contracts
func batchMethod(contract *models.ContractArtifact) (abi.Method, bool) {
	if m, ok := contract.ABI.Methods["batchTransfer"]; ok {
		return m, true
	}
	m, ok := contract.ABI.Methods["payout"]
	return m, ok
}

func packBatchTransfer(contract *models.ContractArtifact, batch *models.PayoutBatch, smartWallet bool, stableCoin common.Address) ([]byte, error) {
	method, ok := batchMethod(contract)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no batchTransfer or payout method", domain.ErrMissingContractMetadata, contract.Name)
	}
	args, err := batchArguments(method.Inputs, batch, smartWallet, stableCoin)
	if err != nil {
		return nil, err
	}
	data, err := contract.ABI.Pack(method.Name, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to pack %s: %v", domain.ErrEncodingInvariant, method.Name, err)
	}
	return data, nil
}

// batchArguments builds [recipients, values], plus token pointers and token
// addresses when the inputs declare the multi-token forms.
func batchArguments(inputs abi.Arguments, batch *models.PayoutBatch, smartWallet bool, stableCoin common.Address) ([]any, error) {
	names := lo.Map(inputs, func(a abi.Argument, _ int) string { return a.Name })
	multiToken := lo.Contains(names, argTokenAddresses)
	pointerForm := multiToken && (lo.Contains(names, argTokenAddressIndices) || lo.Contains(names, argTokenPointers))

	args := []any{batch.Recipients(), batch.Amounts()}
	if !multiToken {
		return args, nil
	}

	if pointerForm {
		pointerArg, _ := lo.Find(inputs, func(a abi.Argument) bool {
			return a.Name == argTokenAddressIndices || a.Name == argTokenPointers
		})
		pointer := int64(0)
		if smartWallet {
			pointer = 1
		}
		pointers, err := uintSlice(pointerArg.Type, len(batch.Payments), pointer)
		if err != nil {
			return nil, err
		}
		addresses := []common.Address{}
		if smartWallet {
			addresses = append(addresses, stableCoin)
		}
		return append(args, pointers, addresses), nil
	}

	token := common.Address{}
	if smartWallet {
		token = stableCoin
	}
	return append(args, lo.Times(len(batch.Payments), func(int) common.Address { return token })), nil
}

// uintSlice builds a slice of n copies of v typed for the ABI slice type t
func uintSlice(t abi.Type, n int, v int64) (any, error) {
	if t.T != abi.SliceTy || t.Elem == nil || t.Elem.T != abi.UintTy {
		return nil, fmt.Errorf("%w: token pointer argument must be uint[], got %s", domain.ErrMissingContractMetadata, t.String())
	}
	elemType := t.Elem.GetType()
	out := reflect.MakeSlice(reflect.SliceOf(elemType), n, n)
	for i := 0; i < n; i++ {
		if elemType.Kind() == reflect.Ptr {
			out.Index(i).Set(reflect.ValueOf(big.NewInt(v)))
		} else {
			out.Index(i).Set(reflect.ValueOf(v).Convert(elemType))
		}
	}
	return out.Interface(), nil
}

// describe fills the record template and inspector metadata
func (r *PayoutResolver) describe(resolved *ResolvedPayout) {
	batch := resolved.Batch
	method := resolved.Method

	record := models.TransactionRecord{
		ChainID:       batch.ChainID,
		From:          batch.Sender.Hex(),
		Value:         batch.Total().String(),
		Currency:      batch.Currency,
		Recipients:    lo.Map(batch.Payments, func(p models.PaymentRequest, _ int) string { return p.Recipient.Hex() }),
		Values:        lo.Map(batch.Payments, func(p models.PaymentRequest, _ int) string { return p.Amount.String() }),
		Payments:      batch.Payments,
		PaymentMethod: method,
		Delegated:     method.IsDelegated(),
	}
	if resolved.Call != nil && resolved.Call.To != nil {
		record.To = resolved.Call.To.Hex()
	}
	if resolved.Safe != nil {
		record.To = resolved.Safe.Safe.Hex()
	}

	inspector := models.InspectorMetadata{
		PaymentMethod: method.InspectorLabel(),
		Creator:       batch.Sender.Hex(),
		Payments: lo.Map(batch.Payments, func(p models.PaymentRequest, _ int) models.InspectorPayment {
			return models.InspectorPayment{
				RecipientAddress: p.Recipient.Hex(),
				RecipientName:    p.Name,
				Value:            p.Amount.String(),
				Currency:         lo.CoalesceOrEmpty(p.Currency, batch.Currency),
				Note:             p.Details,
				DueDate:          p.DueDate,
			}
		}),
	}

	switch method {
	case models.PaymentMethodAragon:
		record.Aragon = &models.AragonInfo{DaoName: batch.Aragon.Name}
		inspector.PaymentMethodInfo = map[string]string{"daoName": batch.Aragon.Name}
	case models.PaymentMethodGnosis:
		record.Gnosis = &models.GnosisInfo{SafeAddress: batch.Safe.Address.Hex(), Version: batch.Safe.Version}
		inspector.PaymentMethodInfo = map[string]string{
			"safeAddress": batch.Safe.Address.Hex(),
			"version":     batch.Safe.Version,
		}
	}

	resolved.Record = record
	resolved.Inspector = inspector
}
