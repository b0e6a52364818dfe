package verifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNew(t *testing.T) {
	t.Run("requires JWKS URL", func(t *testing.T) {
		v, err := New(Config{})
		assert.Error(t, err)
		assert.Nil(t, v)
	})

	t.Run("rejects non-http scheme", func(t *testing.T) {
		v, err := New(Config{JWKSURL: "ftp://example.com/jwks.json"})
		assert.Error(t, err)
		assert.Nil(t, v)
	})

	t.Run("defaults", func(t *testing.T) {
		v, err := New(Config{JWKSURL: "https://tenant.example.com/.well-known/jwks.json"})
		require.NoError(t, err)
		assert.Equal(t, 10*time.Second, v.httpClient.Timeout)
		assert.Nil(t, v.cache, "zero TTL must disable caching")
	})

	t.Run("positive TTL creates instance cache", func(t *testing.T) {
		v, err := New(Config{JWKSURL: "https://tenant.example.com/.well-known/jwks.json", CacheTTL: time.Minute})
		require.NoError(t, err)
		assert.IsType(t, &MemoryKeyCache{}, v.cache)

		other, err := New(Config{JWKSURL: "https://tenant.example.com/.well-known/jwks.json", CacheTTL: time.Minute})
		require.NoError(t, err)
		assert.NotSame(t, v.cache, other.cache)
	})
}

func TestAuthorize_Success(t *testing.T) {
	privateKey, cert := generateTestKey(t)
	server := newJWKSServer(t, []JWK{signingJWK("K1", cert)})
	v := newTestVerifier(t, server.URL, WithLogger(zaptest.NewLogger(t)))

	token := createTestToken(t, jwt.SigningMethodRS256, privateKey, "K1", validClaims("auth0|user-123"))

	claims, err := v.Authorize(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "auth0|user-123", claims.Subject)
	assert.Equal(t, "auth0|user-123", claims.UserID())
	assert.Equal(t, int32(1), server.hits.Load())
}

func TestAuthorize_ProfileClaims(t *testing.T) {
	privateKey, cert := generateTestKey(t)
	server := newJWKSServer(t, []JWK{signingJWK("K1", cert)})
	v := newTestVerifier(t, server.URL)

	claims := &Claims{
		RegisteredClaims: validClaims("auth0|user-123"),
		Email:            "jane@example.com",
		EmailVerified:    true,
		Nickname:         "jane",
	}
	token := createTestToken(t, jwt.SigningMethodRS256, privateKey, "K1", claims)

	got, err := v.Authorize(context.Background(), "bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.True(t, got.EmailVerified)
	assert.Equal(t, "jane", got.Nickname)
}

func TestAuthorize_HeaderErrors(t *testing.T) {
	server := newJWKSServer(t, nil)
	v := newTestVerifier(t, server.URL)

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{name: "missing header", header: "", wantErr: ErrMissingHeader},
		{name: "basic scheme", header: "Basic abc123", wantErr: ErrMalformedHeader},
		{name: "not a jwt", header: "Bearer not-a-jwt", wantErr: ErrMalformedHeader},
		{name: "undecodable header segment", header: "Bearer !!!.eyJzdWIiOiJ4In0.c2ln", wantErr: ErrMalformedHeader},
		{name: "header segment not json", header: "Bearer " + base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".e30.c2ln", wantErr: ErrMalformedHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Authorize(context.Background(), tt.header)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, claims)
		})
	}

	assert.Equal(t, int32(0), server.hits.Load(), "header errors must not reach the key set endpoint")
}

func TestAuthorize_UnknownSigningKey(t *testing.T) {
	privateKey, cert := generateTestKey(t)

	tests := []struct {
		name string
		keys []JWK
		kid  string
	}{
		{name: "kid absent from key set", keys: []JWK{signingJWK("K2", cert)}, kid: "K1"},
		{name: "empty key set", keys: []JWK{}, kid: "K1"},
		{name: "token without kid", keys: []JWK{signingJWK("K1", cert)}, kid: ""},
		{name: "encryption key", keys: []JWK{{Kid: "K1", Kty: "RSA", Use: "enc", X5c: []string{cert}}}, kid: "K1"},
		{name: "non-RSA key", keys: []JWK{{Kid: "K1", Kty: "EC", Use: "sig", X5c: []string{cert}}}, kid: "K1"},
		{name: "key without certificate chain", keys: []JWK{{Kid: "K1", Kty: "RSA", Use: "sig", N: "abc", E: "AQAB"}}, kid: "K1"},
		{name: "unparseable certificate", keys: []JWK{signingJWK("K1", "bm90LWEtY2VydGlmaWNhdGU=")}, kid: "K1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newJWKSServer(t, tt.keys)
			v := newTestVerifier(t, server.URL)
			token := createTestToken(t, jwt.SigningMethodRS256, privateKey, tt.kid, validClaims("user-1"))

			claims, err := v.Authorize(context.Background(), "Bearer "+token)
			assert.ErrorIs(t, err, ErrUnknownSigningKey)
			assert.Nil(t, claims)
		})
	}
}

func TestAuthorize_SignatureInvalid(t *testing.T) {
	privateKey, cert := generateTestKey(t)
	otherKey, _ := generateTestKey(t)
	server := newJWKSServer(t, []JWK{signingJWK("K1", cert)})
	v := newTestVerifier(t, server.URL)

	expired := validClaims("user-1")
	expired.IssuedAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour))
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	notYetValid := validClaims("user-1")
	notYetValid.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))

	valid := createTestToken(t, jwt.SigningMethodRS256, privateKey, "K1", validClaims("user-1"))
	parts := strings.Split(valid, ".")
	forged, err := json.Marshal(validClaims("admin"))
	require.NoError(t, err)
	tampered := parts[0] + "." + base64.RawURLEncoding.EncodeToString(forged) + "." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{name: "HS256 with matching kid", token: createTestToken(t, jwt.SigningMethodHS256, []byte("shared-secret"), "K1", validClaims("user-1"))},
		{name: "RS512 with matching key", token: createTestToken(t, jwt.SigningMethodRS512, privateKey, "K1", validClaims("user-1"))},
		{name: "signed by another key", token: createTestToken(t, jwt.SigningMethodRS256, otherKey, "K1", validClaims("user-1"))},
		{name: "tampered payload", token: tampered},
		{name: "expired", token: createTestToken(t, jwt.SigningMethodRS256, privateKey, "K1", expired)},
		{name: "not yet valid", token: createTestToken(t, jwt.SigningMethodRS256, privateKey, "K1", notYetValid)},
		{name: "missing subject", token: createTestToken(t, jwt.SigningMethodRS256, privateKey, "K1", validClaims(""))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Authorize(context.Background(), "Bearer "+tt.token)
			assert.ErrorIs(t, err, ErrSignatureInvalid)
			assert.Nil(t, claims)
		})
	}
}

func TestAuthorize_IssuerAndAudience(t *testing.T) {
	privateKey, cert := generateTestKey(t)
	server := newJWKSServer(t, []JWK{signingJWK("K1", cert)})
	token := createTestToken(t, jwt.SigningMethodRS256, privateKey, "K1", validClaims("user-1"))

	t.Run("matching issuer and audience", func(t *testing.T) {
		v, err := New(Config{JWKSURL: server.URL, Issuer: "https://test-tenant.example.com/", Audience: "todo-api"})
		require.NoError(t, err)

		_, err = v.Authorize(context.Background(), "Bearer "+token)
		assert.NoError(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		v, err := New(Config{JWKSURL: server.URL, Issuer: "https://evil.example.com/"})
		require.NoError(t, err)

		_, err = v.Authorize(context.Background(), "Bearer "+token)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("wrong audience", func(t *testing.T) {
		v, err := New(Config{JWKSURL: server.URL, Audience: "another-api"})
		require.NoError(t, err)

		_, err = v.Authorize(context.Background(), "Bearer "+token)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})
}

func TestAuthorize_TimeFunc(t *testing.T) {
	privateKey, cert := generateTestKey(t)
	server := newJWKSServer(t, []JWK{signingJWK("K1", cert)})
	token := createTestToken(t, jwt.SigningMethodRS256, privateKey, "K1", validClaims("user-1"))

	v := newTestVerifier(t, server.URL, WithTimeFunc(func() time.Time {
		return time.Now().Add(2 * time.Hour)
	}))

	_, err := v.Authorize(context.Background(), "Bearer "+token)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestFetchKeySet_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"keys": [`))
			},
		},
		{
			name: "missing keys array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"foo": []}`))
			},
		},
		{
			name: "keys is not an array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"keys": "K1"}`))
			},
		},
		{
			name: "x5c is not a list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"keys": [{"kid": "K1", "kty": "RSA", "use": "sig", "x5c": "abc"}]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			v := newTestVerifier(t, server.URL)
			set, err := v.FetchKeySet(context.Background())
			assert.ErrorIs(t, err, ErrKeySetFetch)
			assert.Nil(t, set)

			_, err = v.Authorize(context.Background(), "Bearer eyJhbGciOiJSUzI1NiIsImtpZCI6IksxIn0.e30.c2ln")
			assert.ErrorIs(t, err, ErrKeySetFetch)
		})
	}
}

func TestFetchKeySet_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	v := newTestVerifier(t, url)
	_, err := v.FetchKeySet(context.Background())
	assert.ErrorIs(t, err, ErrKeySetFetch)
}

func TestFetchKeySet_ContextCanceled(t *testing.T) {
	server := newJWKSServer(t, nil)
	v := newTestVerifier(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.FetchKeySet(ctx)
	assert.ErrorIs(t, err, ErrKeySetFetch)
}

func TestSigningKeys(t *testing.T) {
	nbf := int64(1700000000)
	set := &KeySet{Keys: []JWK{
		{Kid: "K1", Kty: "RSA", Use: "sig", X5c: []string{"AAAA", "BBBB"}, Nbf: &nbf},
		{Kid: "K2", Kty: "RSA", Use: "enc", X5c: []string{"AAAA"}},
		{Kid: "", Kty: "RSA", Use: "sig", X5c: []string{"AAAA"}},
		{Kid: "K3", Kty: "RSA", Use: "sig"},
		{Kid: "K4", Kty: "RSA", Use: "sig", X5c: []string{"CCCC"}},
	}}

	keys := SigningKeys(set)
	require.Len(t, keys, 2)
	assert.Equal(t, "K1", keys[0].Kid)
	assert.Equal(t, &nbf, keys[0].Nbf)
	assert.Equal(t, CertToPEM("AAAA"), keys[0].PublicKeyPEM)
	assert.Equal(t, "K4", keys[1].Kid)

	key, ok := FindSigningKey(keys, "K4")
	assert.True(t, ok)
	assert.Equal(t, CertToPEM("CCCC"), key.PublicKeyPEM)

	_, ok = FindSigningKey(keys, "K2")
	assert.False(t, ok)

	assert.Nil(t, SigningKeys(nil))
}

func TestKeyCaching(t *testing.T) {
	privateKey, cert := generateTestKey(t)
	token := createTestToken(t, jwt.SigningMethodRS256, privateKey, "K1", validClaims("user-1"))

	t.Run("positive TTL reuses the key", func(t *testing.T) {
		server := newJWKSServer(t, []JWK{signingJWK("K1", cert)})
		v, err := New(Config{JWKSURL: server.URL, CacheTTL: time.Hour})
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := v.Authorize(context.Background(), "Bearer "+token)
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), server.hits.Load())
	})

	t.Run("zero TTL fetches every call", func(t *testing.T) {
		server := newJWKSServer(t, []JWK{signingJWK("K1", cert)})
		v := newTestVerifier(t, server.URL, WithKeyCache(NewMemoryKeyCache()))

		for i := 0; i < 3; i++ {
			_, err := v.Authorize(context.Background(), "Bearer "+token)
			require.NoError(t, err)
		}
		assert.Equal(t, int32(3), server.hits.Load())
	})

	t.Run("unknown kids are not cached", func(t *testing.T) {
		server := newJWKSServer(t, []JWK{signingJWK("K2", cert)})
		v, err := New(Config{JWKSURL: server.URL, CacheTTL: time.Hour})
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			_, err := v.Authorize(context.Background(), "Bearer "+token)
			assert.ErrorIs(t, err, ErrUnknownSigningKey)
		}
		assert.Equal(t, int32(2), server.hits.Load())
	})

	t.Run("cache errors fall back to fetching", func(t *testing.T) {
		server := newJWKSServer(t, []JWK{signingJWK("K1", cert)})
		v, err := New(Config{JWKSURL: server.URL, CacheTTL: time.Hour}, WithKeyCache(failingCache{}))
		require.NoError(t, err)

		claims, err := v.Authorize(context.Background(), "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.Subject)
		assert.Equal(t, int32(1), server.hits.Load())
	})
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("cache unavailable")
}

func (failingCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("cache unavailable")
}

func TestReason(t *testing.T) {
	assert.Equal(t, "ok", Reason(nil))
	assert.Equal(t, "missing_header", Reason(ErrMissingHeader))
	assert.Equal(t, "malformed_header", Reason(ErrMalformedHeader))
	assert.Equal(t, "unknown_signing_key", Reason(ErrUnknownSigningKey))
	assert.Equal(t, "signature_invalid", Reason(ErrSignatureInvalid))
	assert.Equal(t, "key_set_fetch", Reason(ErrKeySetFetch))
	assert.Equal(t, "other", Reason(errors.New("boom")))
}
