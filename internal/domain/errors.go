package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for payout operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedNetwork is returned when the selected method has no deployment on the chain
	ErrUnsupportedNetwork = errors.New("unsupported network")

	// ErrMissingContractMetadata is returned when ABI, bytecode or addresses are missing
	ErrMissingContractMetadata = errors.New("missing contract metadata")

	// ErrAuthRequired is returned when no sender account is available
	ErrAuthRequired = errors.New("authentication required")

	// ErrInvalidPayment is returned for empty batches, bad addresses or non-positive amounts
	ErrInvalidPayment = errors.New("invalid payment")

	// ErrUnsupportedPaymentMethod is returned for unknown payment methods
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")

	ErrInsufficientDaoPermissions = errors.New("insufficient DAO permissions")
	ErrDaoNotFound                = errors.New("DAO not found")
	ErrDaoInitializationFailed    = errors.New("DAO initialization failed")

	ErrSigningFailed         = errors.New("signing failed")
	ErrRelaySubmissionFailed = errors.New("relay submission failed")

	// ErrEncodingInvariant signals a length or offset mismatch in generated call data.
	// It indicates a programming defect, never a runtime condition.
	ErrEncodingInvariant = errors.New("encoding invariant violation")

	// ErrChainCallFailed wraps RPC failures. Retryable.
	ErrChainCallFailed = errors.New("chain call failed")

	// ErrTransactionFailed is returned when a transaction reverted on-chain
	ErrTransactionFailed = errors.New("transaction failed")
)

// PermissionError is returned when the sender cannot forward a DAO script
type PermissionError struct {
	Sender string
	DAO    string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("account %s cannot forward scripts in DAO %s", e.Sender, e.DAO)
}

func (e *PermissionError) Unwrap() error {
	return ErrInsufficientDaoPermissions
}

// MissingAppsError lists the Aragon apps that could not be discovered
type MissingAppsError struct {
	DAO     string
	Missing []string
}

func (e *MissingAppsError) Error() string {
	return fmt.Sprintf("DAO %s is missing required apps: %s", e.DAO, strings.Join(e.Missing, ", "))
}

func (e *MissingAppsError) Unwrap() error {
	return ErrDaoInitializationFailed
}

// SignerError carries the raw error returned by an external signer.
// Rejections (code 4001) and hardware signer errors abort signing immediately.
type SignerError struct {
	Code    int
	Message string
}

func (e *SignerError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("signer error %d: %s", e.Code, e.Message)
	}
	return "signer error: " + e.Message
}

// userMessages maps sentinel errors to the messages shown to users
var userMessages = []struct {
	err error
	msg string
}{
	{ErrAuthRequired, "Please configure a signer account."},
	{ErrUnsupportedNetwork, "Batch payments are not supported on the current network."},
	{ErrMissingContractMetadata, "Contract information for this payment method is missing on the current network."},
	{ErrInvalidPayment, "Invalid payment details."},
	{ErrUnsupportedPaymentMethod, "Unknown payment method."},
	{ErrDaoNotFound, "Failed to retrieve the DAO address."},
	{ErrDaoInitializationFailed, "Failed to initialize the DAO."},
	{ErrSigningFailed, "Failed to sign the Gnosis Safe transaction."},
	{ErrRelaySubmissionFailed, "Failed to create Gnosis Safe withdrawal."},
	{ErrTransactionFailed, "Payment failed."},
	{ErrChainCallFailed, "Network request failed, please try again."},
	{ErrEncodingInvariant, "Something went wrong, please try again or contact support."},
}

// UserMessage returns a human readable message for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var perm *PermissionError
	if errors.As(err, &perm) {
		return fmt.Sprintf("Your current account (%s) may not have the required permissions to execute actions in this DAO.", TruncateAddress(perm.Sender))
	}
	var signerErr *SignerError
	if errors.As(err, &signerErr) {
		return signerErr.Message
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Something went wrong, please try again or contact support."
}

// TruncateAddress shortens an address to 0x1234...abcd
func TruncateAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
