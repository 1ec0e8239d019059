package safe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/trebuchet-org/payrail/internal/domain"
)

// SignMethod is an eth_signTypedData flavour
type SignMethod string

const (
	SignMethodV3 SignMethod = "eth_signTypedData_v3"
	SignMethodV4 SignMethod = "eth_signTypedData_v4"
	SignMethodV1 SignMethod = "eth_signTypedData"
)

// SignMethodOrder is the order signing methods are attempted in
var SignMethodOrder = []SignMethod{SignMethodV3, SignMethodV4, SignMethodV1}

const (
	// UserRejectedCode is the provider error code for a user rejection
	UserRejectedCode = 4001
	// keystoneErrorPrefix marks errors raised by Keystone hardware signers
	keystoneErrorPrefix = "#ktek_error"
)

// TypedDataSigner signs EIP-712 typed data with a given method
type TypedDataSigner interface {
	SignTypedData(ctx context.Context, method SignMethod, data apitypes.TypedData) ([]byte, error)
}

// IsAbortError reports whether err must stop the signing fallback chain
func IsAbortError(err error) bool {
	var signerErr *domain.SignerError
	if errors.As(err, &signerErr) {
		if signerErr.Code == UserRejectedCode || strings.HasPrefix(signerErr.Message, keystoneErrorPrefix) {
			return true
		}
	}
	return strings.HasPrefix(err.Error(), keystoneErrorPrefix)
}

// SignTypedData tries every method in SignMethodOrder and returns the first
// signature. User rejections and hardware signer errors are returned as is.
func SignTypedData(ctx context.Context, signer TypedDataSigner, data apitypes.TypedData) ([]byte, SignMethod, error) {
	var errs []error
	for _, method := range SignMethodOrder {
		sig, err := signer.SignTypedData(ctx, method, data)
		if err == nil && len(sig) > 0 {
			return normalizeSignature(sig), method, nil
		}
		if err == nil {
			err = fmt.Errorf("%s returned an empty signature", method)
		}
		if IsAbortError(err) {
			return nil, method, err
		}
		if ctx.Err() != nil {
			return nil, method, ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", method, err))
	}
	return nil, "", fmt.Errorf("%w: %w", domain.ErrSigningFailed, errors.Join(errs...))
}

// normalizeSignature moves a 0/1 recovery id to the 27/28 form Safes verify
func normalizeSignature(sig []byte) []byte {
	out := append([]byte{}, sig...)
	if len(out) == 65 && out[64] < 27 {
		out[64] += 27
	}
	return out
}
