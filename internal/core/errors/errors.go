package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent lifecycle rule violations
var (
	// Lifecycle
	ErrDuplicateTicket        = errors.New("caller already has an active ticket")
	ErrResourceCreationFailed = errors.New("ticket channel could not be created")
	ErrStateConflict          = errors.New("ticket is not in a state that allows this operation")
	ErrReservationNotFound    = errors.New("reservation not found")
	ErrAuthorizationFailure   = errors.New("caller is not allowed to manage tickets")
	ErrResourceInUse          = errors.New("resource is bound to another ticket")

	// Gateway
	ErrPermissionDenied           = errors.New("gateway permission denied")
	ErrInvalidTarget              = errors.New("gateway target is invalid")
	ErrTransientFailure           = errors.New("gateway transient failure")
	ErrNotificationDeliveryFailed = errors.New("notice could not be delivered")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("resource conflict")
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrUnavailable = errors.New("feature unavailable")
	ErrForbidden   = errors.New("action forbidden")
)

// DuplicateTicketError is returned when an owner already holds an active
// ticket in the scope. ResourceID is empty while that ticket is still
// being created.
type DuplicateTicketError struct {
	ScopeID    string
	OwnerID    string
	ResourceID string
	State      string
}

func (e *DuplicateTicketError) Error() string {
	if e.ResourceID == "" {
		return fmt.Sprintf("%s (creation in progress)", ErrDuplicateTicket.Error())
	}
	return fmt.Sprintf("%s: %s", ErrDuplicateTicket.Error(), e.ResourceID)
}

func (e *DuplicateTicketError) Unwrap() error {
	return ErrDuplicateTicket
}

// CreationFailed wraps a gateway error so callers can match both the
// lifecycle failure and the gateway's own classification.
func CreationFailed(cause error) error {
	if cause == nil {
		return ErrResourceCreationFailed
	}
	return fmt.Errorf("%w: %w", ErrResourceCreationFailed, cause)
}

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewUnavailableError(message string) *AppError {
	return &AppError{
		Err:        ErrUnavailable,
		Message:    message,
		Code:       "UNAVAILABLE",
		StatusCode: 503,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
