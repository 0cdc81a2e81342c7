package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	apperrors "github.com/lorrc/ticket-broker/internal/core/errors"
)

// classify maps a discordgo failure onto the gateway error taxonomy while
// keeping the original error in the chain.
func classify(err error) error {
	return fmt.Errorf("%w: %w", sentinelFor(err), err)
}

func sentinelFor(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.ErrTransientFailure
	}

	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return apperrors.ErrTransientFailure
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return apperrors.ErrPermissionDenied
		case discordgo.ErrCodeUnknownChannel:
			return apperrors.ErrNotFound
		}
	}

	status := 0
	if restErr.Response != nil {
		status = restErr.Response.StatusCode
	}
	switch {
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return apperrors.ErrPermissionDenied
	case status == http.StatusNotFound:
		return apperrors.ErrNotFound
	case status == http.StatusTooManyRequests || status >= 500:
		return apperrors.ErrTransientFailure
	case status >= 400:
		return apperrors.ErrInvalidTarget
	}
	return apperrors.ErrTransientFailure
}
