package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/todo-app/services"
	"github.com/upb/todo-app/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses:
// not_found 404, validation 400, unauthorized 401, forbidden 403,
// external 502 and everything else 500.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	message := err.Error()
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}
	details := services.GetErrorDetails(err)
	if len(details) == 0 {
		details = nil
	}

	var writeErr error
	switch services.GetErrorType(err) {
	case services.ErrorTypeNotFound:
		writeErr = utils.WriteNotFound(w, message)

	case services.ErrorTypeValidation:
		writeErr = utils.WriteBadRequest(w, message, details)

	case services.ErrorTypeUnauthorized:
		writeErr = utils.WriteUnauthorized(w, message)

	case services.ErrorTypeForbidden:
		writeErr = utils.WriteForbidden(w, message)

	case services.ErrorTypeExternal:
		logger.Error("upstream dependency error", zap.Error(err))
		writeErr = utils.WriteBadGateway(w, message)

	case services.ErrorTypeInternal:
		// Internal causes are logged, never returned
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error("unhandled error type", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError writes a 400 for request parsing or validation failures
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var details map[string]interface{}
	message := err.Error()
	if fields := utils.GetValidationFields(err); fields != nil {
		message = "Validation failed"
		details = make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
	}

	if err := utils.WriteBadRequest(w, message, details); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
