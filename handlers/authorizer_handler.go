package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/upb/todo-app/authorizer"
	"github.com/upb/todo-app/middleware"
	"github.com/upb/todo-app/utils"
	"go.uber.org/zap"
)

// DecisionMaker turns an Authorization header value into a gateway decision
type DecisionMaker interface {
	Decide(ctx context.Context, authorizationHeader string) *authorizer.Decision
}

// AuthorizerHandler serves the gateway token authorizer
type AuthorizerHandler struct {
	authorizer DecisionMaker
	logger     *zap.Logger
}

// NewAuthorizerHandler creates a new AuthorizerHandler
func NewAuthorizerHandler(a DecisionMaker, logger *zap.Logger) *AuthorizerHandler {
	return &AuthorizerHandler{authorizer: a, logger: logger}
}

// HandleAuthorize handles POST /authorize. The decision is written with 200
// whatever its effect; only an unreadable event is a client error.
func (h *AuthorizerHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	var event authorizer.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		HandleValidationError(w, errInvalidJSON, h.logger)
		return
	}

	decision := h.authorizer.Decide(r.Context(), event.AuthorizationToken)

	h.logger.Debug("authorization decision",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("method_arn", event.MethodArn),
		zap.String("effect", string(decision.Effect())))

	if err := utils.WriteJSON(w, http.StatusOK, decision); err != nil {
		h.logger.Error("failed to write authorization decision", zap.Error(err))
	}
}
