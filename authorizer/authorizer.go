// Package authorizer turns a bearer token into an allow or deny decision for
// the API gateway.
package authorizer

import (
	"context"

	"github.com/upb/todo-app/internal/observability"
	"github.com/upb/todo-app/verifier"
	"go.uber.org/zap"
)

// TokenVerifier verifies an Authorization header value
type TokenVerifier interface {
	Authorize(ctx context.Context, authorizationHeader string) (*verifier.Claims, error)
}

// Authorizer produces gateway decisions
type Authorizer struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

// New creates an Authorizer
func New(v TokenVerifier, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authorizer{verifier: v, logger: logger}
}

// Decide verifies the header and returns Allow for the token subject, or
// Deny for any verification failure. It never returns nil.
func (a *Authorizer) Decide(ctx context.Context, authorizationHeader string) *Decision {
	claims, err := a.verifier.Authorize(ctx, authorizationHeader)
	if err != nil {
		reason := verifier.Reason(err)
		a.logger.Info("user not authorized",
			zap.String("reason", reason),
			zap.Error(err))
		observability.AuthorizationDecisionsTotal.WithLabelValues(string(EffectDeny), reason).Inc()
		return Deny()
	}

	a.logger.Info("user was authorized", zap.String("user_id", claims.UserID()))
	observability.AuthorizationDecisionsTotal.WithLabelValues(string(EffectAllow), verifier.Reason(nil)).Inc()
	return Allow(claims.UserID())
}
