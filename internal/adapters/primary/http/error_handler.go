package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	mw "github.com/lorrc/ticket-broker/internal/adapters/primary/http/middleware"
	apperrors "github.com/lorrc/ticket-broker/internal/core/errors"
)

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	return mw.GetRequestID(ctx)
}

// ErrorResponse is the standard JSON error response format
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationErrorResponse includes field-level validation errors
type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler with the given logger
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle processes an error and writes the appropriate HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	requestID := GetRequestID(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.logError(r, appErr.StatusCode, appErr.Err, requestID)
		h.writeErrorResponse(w, appErr.StatusCode, ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})
		return
	}

	var validationErrs *apperrors.ValidationErrors
	if errors.As(err, &validationErrs) {
		h.logError(r, http.StatusUnprocessableEntity, err, requestID)
		h.writeValidationErrorResponse(w, validationErrs)
		return
	}

	statusCode, response := h.mapDomainError(err)
	h.logError(r, statusCode, err, requestID)
	h.writeErrorResponse(w, statusCode, response)
}

// mapDomainError converts domain errors to HTTP status codes and responses
func (h *ErrorHandler) mapDomainError(err error) (int, ErrorResponse) {
	var dup *apperrors.DuplicateTicketError

	switch {
	// Lifecycle conflicts
	case errors.As(err, &dup):
		details := map[string]interface{}{"state": dup.State}
		if dup.ResourceID != "" {
			details["resourceId"] = dup.ResourceID
		}
		return http.StatusConflict, ErrorResponse{
			Error:   "You already have an active ticket",
			Code:    "DUPLICATE_TICKET",
			Details: details,
		}
	case errors.Is(err, apperrors.ErrStateConflict):
		return http.StatusConflict, ErrorResponse{
			Error: "Ticket is not in a state that allows this operation",
			Code:  "STATE_CONFLICT",
		}

	// Authorization
	case errors.Is(err, apperrors.ErrAuthorizationFailure):
		return http.StatusForbidden, ErrorResponse{
			Error: "Managing tickets requires the Manage Channels permission",
			Code:  "NOT_AUTHORIZED",
		}
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{
			Error: "You do not have permission to perform this action",
			Code:  "FORBIDDEN",
		}

	// Gateway failures. Creation failures wrap the gateway's own error, so
	// they are matched first.
	case errors.Is(err, apperrors.ErrResourceCreationFailed):
		return http.StatusBadGateway, ErrorResponse{
			Error: "Failed to create ticket channel",
			Code:  "CREATION_FAILED",
		}
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusBadGateway, ErrorResponse{
			Error: "The bot is missing permissions in this server",
			Code:  "GATEWAY_PERMISSION_DENIED",
		}
	case errors.Is(err, apperrors.ErrInvalidTarget):
		return http.StatusBadGateway, ErrorResponse{
			Error: "The target channel is invalid",
			Code:  "GATEWAY_INVALID_TARGET",
		}
	case errors.Is(err, apperrors.ErrTransientFailure):
		return http.StatusBadGateway, ErrorResponse{
			Error: "Discord is temporarily unavailable",
			Code:  "GATEWAY_UNAVAILABLE",
		}

	// Not Found
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Ticket not found",
			Code:  "TICKET_NOT_FOUND",
		}

	case errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "BAD_REQUEST",
		}

	case errors.Is(err, apperrors.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: "This feature is not configured",
			Code:  "UNAVAILABLE",
		}

	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorResponse{
			Error: "Too many requests. Please try again later.",
			Code:  "RATE_LIMITED",
		}

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: "An unexpected error occurred",
			Code:  "INTERNAL_ERROR",
		}
	}
}

// logError logs the error with appropriate context
func (h *ErrorHandler) logError(r *http.Request, statusCode int, err error, requestID string) {
	logAttrs := []any{
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", statusCode,
		"error", err.Error(),
	}

	switch {
	case statusCode >= 500:
		h.logger.Error("server error", logAttrs...)
	case statusCode >= 400:
		h.logger.Warn("client error", logAttrs...)
	default:
		h.logger.Info("request error", logAttrs...)
	}
}

func (h *ErrorHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func (h *ErrorHandler) writeValidationErrorResponse(w http.ResponseWriter, errs *apperrors.ValidationErrors) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	_ = json.NewEncoder(w).Encode(ValidationErrorResponse{
		Error:  "Validation failed",
		Code:   "VALIDATION_ERROR",
		Fields: errs.Errors,
	})
}
