package middleware

import (
	"context"
	"net/http"

	"github.com/upb/todo-app/utils"
	"github.com/upb/todo-app/verifier"
	"go.uber.org/zap"
)

// TokenVerifier verifies the raw Authorization header value
type TokenVerifier interface {
	Authorize(ctx context.Context, authorizationHeader string) (*verifier.Claims, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(v TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: v,
		logger:   logger,
	}
}

// RequireAuth rejects requests without a valid bearer token. On success the
// claims and the user ID are added to the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		claims, err := m.verifier.Authorize(ctx, r.Header.Get("Authorization"))
		if err != nil {
			m.logger.Warn("token verification failed",
				zap.String("request_id", requestID),
				zap.String("reason", verifier.Reason(err)),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or missing authorization")
			return
		}

		ctx = WithClaims(ctx, claims)
		ctx = WithUserID(ctx, claims.UserID())

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", claims.UserID()))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
