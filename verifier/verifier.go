package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/todo-app/internal/observability"
	"go.uber.org/zap"
)

// expectedAlgorithm is the only signing algorithm accepted
const expectedAlgorithm = "RS256"

// Config holds configuration for a Verifier
type Config struct {
	// JWKSURL is the signing key set endpoint (required)
	JWKSURL string
	// Issuer and Audience are checked only when non-empty
	Issuer   string
	Audience string
	// CacheTTL is how long a fetched signing key is reused. Zero disables caching.
	CacheTTL    time.Duration
	HTTPTimeout time.Duration
}

// Option customizes a Verifier
type Option func(*Verifier)

// WithKeyCache sets the signing key cache. It is only consulted when CacheTTL > 0.
func WithKeyCache(cache KeyCache) Option {
	return func(v *Verifier) { v.cache = cache }
}

// WithHTTPClient replaces the HTTP client used to fetch the key set
func WithHTTPClient(client *http.Client) Option {
	return func(v *Verifier) { v.httpClient = client }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(v *Verifier) { v.logger = logger }
}

// WithTimeFunc overrides the clock used for exp/nbf/iat checks
func WithTimeFunc(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// Verifier validates bearer tokens against a remote signing key set
type Verifier struct {
	jwksURL    string
	issuer     string
	audience   string
	httpClient *http.Client
	cache      KeyCache
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a Verifier. When cfg.CacheTTL is positive and no cache was
// supplied, an in-memory cache is created for this instance.
func New(cfg Config, opts ...Option) (*Verifier, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("JWKS URL is required")
	}
	u, err := url.Parse(cfg.JWKSURL)
	if err != nil {
		return nil, fmt.Errorf("invalid JWKS URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("JWKS URL must use http or https scheme, got: %q", u.Scheme)
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	v := &Verifier{
		jwksURL:    cfg.JWKSURL,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		cacheTTL:   cfg.CacheTTL,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.cacheTTL > 0 && v.cache == nil {
		v.cache = NewMemoryKeyCache()
	}
	if v.cacheTTL <= 0 {
		v.cache = nil
	}

	return v, nil
}

// Authorize extracts the bearer token from an Authorization header value and
// verifies it. The returned claims always carry a non-empty subject.
func (v *Verifier) Authorize(ctx context.Context, authorizationHeader string) (*Claims, error) {
	token, err := ExtractBearerToken(authorizationHeader)
	if err != nil {
		return nil, err
	}
	return v.Verify(ctx, token)
}

// Verify verifies a raw token: it routes to the signing key named by the
// unverified header, then checks the RS256 signature and standard claims.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	header, err := decodeHeader(tokenString)
	if err != nil {
		return nil, err
	}
	if header.Kid == "" {
		return nil, fmt.Errorf("%w: token header has no kid", ErrUnknownSigningKey)
	}

	pem, err := v.signingKeyPEM(ctx, header.Kid)
	if err != nil {
		return nil, err
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("%w: unusable certificate for kid %s: %v", ErrUnknownSigningKey, header.Kid, err)
	}

	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{expectedAlgorithm})}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}
	if v.now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(v.now))
	}

	claims := &Claims{}
	token, err := jwt.NewParser(parserOpts...).ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if !token.Valid {
		return nil, ErrSignatureInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrSignatureInvalid)
	}

	return claims, nil
}

type tokenHeader struct {
	Kid string `json:"kid"`
	Alg string `json:"alg"`
}

// decodeHeader decodes the first token segment without trusting it
func decodeHeader(tokenString string) (*tokenHeader, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: token must have three segments", ErrMalformedHeader)
	}

	raw, err := jwt.NewParser().DecodeSegment(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode token header: %v", ErrMalformedHeader, err)
	}

	var header tokenHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("%w: failed to parse token header: %v", ErrMalformedHeader, err)
	}
	return &header, nil
}

// signingKeyPEM returns the PEM public key for kid, from the cache when enabled
func (v *Verifier) signingKeyPEM(ctx context.Context, kid string) (string, error) {
	if v.cache != nil {
		pem, ok, err := v.cache.Get(ctx, kid)
		switch {
		case err != nil:
			observability.KeyCacheLookupsTotal.WithLabelValues("error").Inc()
			v.logger.Warn("signing key cache lookup failed", zap.String("kid", kid), zap.Error(err))
		case ok:
			observability.KeyCacheLookupsTotal.WithLabelValues("hit").Inc()
			return pem, nil
		default:
			observability.KeyCacheLookupsTotal.WithLabelValues("miss").Inc()
		}
	}

	set, err := v.FetchKeySet(ctx)
	if err != nil {
		return "", err
	}

	key, ok := FindSigningKey(SigningKeys(set), kid)
	if !ok {
		return "", fmt.Errorf("%w: no signing key with kid %s", ErrUnknownSigningKey, kid)
	}
	v.logger.Debug("signing key resolved", zap.String("kid", kid))

	if v.cache != nil {
		if err := v.cache.Set(ctx, kid, key.PublicKeyPEM, v.cacheTTL); err != nil {
			v.logger.Warn("failed to cache signing key", zap.String("kid", kid), zap.Error(err))
		}
	}

	return key.PublicKeyPEM, nil
}
