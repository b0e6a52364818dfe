package verifier

import (
	"fmt"
	"strings"
)

const bearerScheme = "bearer"

// ExtractBearerToken returns the raw token from an Authorization header of the
// form "Bearer <token>". The scheme is matched case-insensitively.
func ExtractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingHeader
	}

	fields := strings.Fields(header)
	if len(fields) != 2 {
		return "", fmt.Errorf("%w: expected \"Bearer <token>\"", ErrMalformedHeader)
	}
	if !strings.EqualFold(fields[0], bearerScheme) {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrMalformedHeader, fields[0])
	}

	return fields[1], nil
}
