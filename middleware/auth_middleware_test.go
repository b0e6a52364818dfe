package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/todo-app/utils"
	"github.com/upb/todo-app/verifier"
	"go.uber.org/zap"
)

// MockTokenVerifier is a mock implementation of TokenVerifier
type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Authorize(ctx context.Context, header string) (*verifier.Claims, error) {
	args := m.Called(ctx, header)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verifier.Claims), args.Error(1)
}

func TestRequireAuth(t *testing.T) {
	logger := zap.NewNop()

	t.Run("valid token allows request", func(t *testing.T) {
		mockVerifier := new(MockTokenVerifier)
		middleware := NewAuthMiddleware(mockVerifier, logger)

		claims := &verifier.Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "auth0|user-123"},
			Email:            "user@example.com",
		}
		mockVerifier.On("Authorize", mock.Anything, "Bearer valid-token").Return(claims, nil)

		called := false
		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			ctx := r.Context()
			assert.Equal(t, "auth0|user-123", GetUserIDFromContext(ctx))
			extracted := GetClaimsFromContext(ctx)
			require.NotNil(t, extracted)
			assert.Equal(t, "user@example.com", extracted.Email)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/todos", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, w.Code)
		mockVerifier.AssertExpectations(t)
	})

	failures := []struct {
		name   string
		header string
		err    error
	}{
		{name: "missing header", header: "", err: verifier.ErrMissingHeader},
		{name: "malformed header", header: "Basic abc", err: verifier.ErrMalformedHeader},
		{name: "unknown signing key", header: "Bearer a.b.c", err: fmt.Errorf("%w: no signing key with kid K9", verifier.ErrUnknownSigningKey)},
		{name: "bad signature", header: "Bearer a.b.c", err: fmt.Errorf("%w: token is expired", verifier.ErrSignatureInvalid)},
		{name: "key set unreachable", header: "Bearer a.b.c", err: fmt.Errorf("%w: connection refused", verifier.ErrKeySetFetch)},
	}

	for _, tt := range failures {
		t.Run(tt.name+" is rejected", func(t *testing.T) {
			mockVerifier := new(MockTokenVerifier)
			middleware := NewAuthMiddleware(mockVerifier, logger)
			mockVerifier.On("Authorize", mock.Anything, tt.header).Return(nil, tt.err)

			handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/todos", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, "unauthorized", response.Error)
			assert.Equal(t, "Invalid or missing authorization", response.Message)
			mockVerifier.AssertExpectations(t)
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRequestIDFromContext(ctx))
	assert.Empty(t, GetUserIDFromContext(ctx))
	assert.Nil(t, GetClaimsFromContext(ctx))

	claims := &verifier.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUserID(ctx, "user-1")
	ctx = WithClaims(ctx, claims)

	assert.Equal(t, "req-1", GetRequestIDFromContext(ctx))
	assert.Equal(t, "user-1", GetUserIDFromContext(ctx))
	assert.Same(t, claims, GetClaimsFromContext(ctx))

	// Values of the wrong type are ignored
	ctx = context.WithValue(context.Background(), UserIDKey, 42)
	assert.Empty(t, GetUserIDFromContext(ctx))
}
