package verifier

import "errors"

var (
	// ErrMissingHeader is returned when no Authorization header was supplied
	ErrMissingHeader = errors.New("missing authorization header")

	// ErrMalformedHeader is returned when the header is not "Bearer <token>"
	// or the token header segment cannot be decoded
	ErrMalformedHeader = errors.New("malformed authorization header")

	// ErrUnknownSigningKey is returned when the key set has no usable key for the token's kid
	ErrUnknownSigningKey = errors.New("unknown signing key")

	// ErrSignatureInvalid is returned when signature or standard claim verification fails
	ErrSignatureInvalid = errors.New("invalid token signature")

	// ErrKeySetFetch is returned when the signing key set cannot be fetched or does not match its schema
	ErrKeySetFetch = errors.New("failed to fetch signing key set")
)

// Reason returns a short, stable label for a verification error. It is meant
// for logs and metrics, never for responses to the caller.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingHeader):
		return "missing_header"
	case errors.Is(err, ErrMalformedHeader):
		return "malformed_header"
	case errors.Is(err, ErrUnknownSigningKey):
		return "unknown_signing_key"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrKeySetFetch):
		return "key_set_fetch"
	default:
		return "other"
	}
}
