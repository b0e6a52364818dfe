package verifier

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// Test helper to generate an RSA key and a self-signed certificate (base64 DER, as in x5c)
func generateTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test-tenant.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	return privateKey, base64.StdEncoding.EncodeToString(der)
}

// jwksServer serves a fixed key set and counts requests
type jwksServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newJWKSServer(t *testing.T, keys []JWK) *jwksServer {
	t.Helper()
	s := &jwksServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(KeySet{Keys: keys})
	}))
	t.Cleanup(s.Close)
	return s
}

func signingJWK(kid, cert string) JWK {
	return JWK{Kid: kid, Kty: "RSA", Use: "sig", Alg: "RS256", X5c: []string{cert}}
}

// Test helper to create a signed token
func createTestToken(t *testing.T, method jwt.SigningMethod, key interface{}, kid string, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	tokenString, err := token.SignedString(key)
	require.NoError(t, err)
	return tokenString
}

func validClaims(sub string) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    "https://test-tenant.example.com/",
		Audience:  jwt.ClaimStrings{"todo-api"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

func newTestVerifier(t *testing.T, url string, opts ...Option) *Verifier {
	t.Helper()
	v, err := New(Config{JWKSURL: url, HTTPTimeout: 5 * time.Second}, opts...)
	require.NoError(t, err)
	return v
}
