package validation

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/lorrc/ticket-broker/internal/core/errors"
)

// Discord ids are unsigned 64-bit snowflakes rendered in decimal.
var snowflakeRegex = regexp.MustCompile(`^[0-9]{1,20}$`)

// Validator validates request data
type Validator struct {
	errors *apperrors.ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: apperrors.NewValidationErrors(),
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return v.errors.HasErrors()
}

// Errors returns the validation errors
func (v *Validator) Errors() *apperrors.ValidationErrors {
	return v.errors
}

// Err returns the validation errors, or nil when there are none
func (v *Validator) Err() error {
	if v.HasErrors() {
		return v.errors
	}
	return nil
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors.Add(field, "This field is required")
	}
	return v
}

// MaxLength validates maximum string length
func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if len(value) > max {
		v.errors.Add(field, "Must be at most "+strconv.Itoa(max)+" characters")
	}
	return v
}

// Snowflake validates that a non-empty value is a Discord id
func (v *Validator) Snowflake(field, value string) *Validator {
	if value != "" && !snowflakeRegex.MatchString(value) {
		v.errors.Add(field, "Must be a Discord id")
	}
	return v
}

// Custom adds a custom validation
func (v *Validator) Custom(field string, valid bool, message string) *Validator {
	if !valid {
		v.errors.Add(field, message)
	}
	return v
}

// DecodeAndValidate decodes JSON request body and runs basic validation
func DecodeAndValidate[T any](r *http.Request) (*T, error) {
	var req T

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.NewBadRequestError(err, "Invalid request body")
	}

	return &req, nil
}

// CursorParams holds cursor pagination parameters
type CursorParams struct {
	AfterID int64
	Limit   int
}

// ParseCursor reads the after and limit query parameters. A zero limit
// means the caller did not ask for one.
func ParseCursor(r *http.Request, maxLimit int) (CursorParams, error) {
	v := NewValidator()
	var params CursorParams

	if afterStr := r.URL.Query().Get("after"); afterStr != "" {
		parsed, err := strconv.ParseInt(afterStr, 10, 64)
		if err != nil || parsed < 0 {
			v.Custom("after", false, "after must be a positive integer")
		} else {
			params.AfterID = parsed
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		switch {
		case err != nil || parsed <= 0:
			v.Custom("limit", false, "limit must be a positive integer")
		case parsed > maxLimit:
			v.Custom("limit", false, "limit exceeds maximum of "+strconv.Itoa(maxLimit))
		default:
			params.Limit = parsed
		}
	}

	return params, v.Err()
}
