package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upb/todo-app/internal/observability"
	"go.uber.org/zap"
)

// maxKeySetBytes bounds the key set document read from the endpoint
const maxKeySetBytes = 1 << 20

// KeySet represents the JSON Web Key Set document
type KeySet struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key record as published by the identity provider
type JWK struct {
	Kid string   `json:"kid"`
	Kty string   `json:"kty"`
	Alg string   `json:"alg,omitempty"`
	Use string   `json:"use"`
	N   string   `json:"n,omitempty"`
	E   string   `json:"e,omitempty"`
	X5c []string `json:"x5c,omitempty"`
	Nbf *int64   `json:"nbf,omitempty"`
}

// SigningKey is a key set entry usable for signature verification
type SigningKey struct {
	Kid          string
	Nbf          *int64
	PublicKeyPEM string
}

// SigningKeys returns the keys that declare use "sig", type RSA, a kid and at
// least one x5c certificate. Each result carries the first certificate as PEM.
func SigningKeys(set *KeySet) []SigningKey {
	if set == nil {
		return nil
	}

	keys := make([]SigningKey, 0, len(set.Keys))
	for _, k := range set.Keys {
		if k.Use != "sig" || k.Kty != "RSA" || k.Kid == "" || len(k.X5c) == 0 || k.X5c[0] == "" {
			continue
		}
		keys = append(keys, SigningKey{
			Kid:          k.Kid,
			Nbf:          k.Nbf,
			PublicKeyPEM: CertToPEM(k.X5c[0]),
		})
	}
	return keys
}

// FindSigningKey returns the signing key whose kid matches
func FindSigningKey(keys []SigningKey, kid string) (SigningKey, bool) {
	for _, k := range keys {
		if k.Kid == kid {
			return k, true
		}
	}
	return SigningKey{}, false
}

// FetchKeySet fetches the signing key set from the configured endpoint.
// Transport failures, non-200 responses and documents without a "keys"
// array all fail with ErrKeySetFetch.
func (v *Verifier) FetchKeySet(ctx context.Context) (*KeySet, error) {
	start := time.Now()
	set, err := v.fetchKeySet(ctx)

	status := "OK"
	if err != nil {
		status = "error"
	}
	observability.KeySetFetchDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	return set, err
}

func (v *Verifier) fetchKeySet(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrKeySetFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	v.logger.Debug("fetching signing key set", zap.String("url", v.jwksURL))

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrKeySetFetch, resp.StatusCode)
	}

	var doc struct {
		Keys *[]JWK `json:"keys"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxKeySetBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode key set: %v", ErrKeySetFetch, err)
	}
	if doc.Keys == nil {
		return nil, fmt.Errorf("%w: key set has no \"keys\" array", ErrKeySetFetch)
	}

	return &KeySet{Keys: *doc.Keys}, nil
}
