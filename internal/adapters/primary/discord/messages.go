package discord

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	apperrors "github.com/lorrc/ticket-broker/internal/core/errors"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

const (
	msgRestarting = "Bot is restarting. Please try again in a moment."
	msgGuildOnly  = "This can only be used in a server."
	msgSlowDown   = "You're doing that too often. Please wait a moment and try again."
	msgNoTickets  = "There are no active tickets in this server."

	maxListedTickets = 25
)

func openedMessage(result *ports.OpenResult) string {
	if result == nil {
		return ""
	}
	return fmt.Sprintf("Ticket created: <#%s>", result.Ticket.ResourceID)
}

func closingMessage(t domain.Ticket) string {
	return fmt.Sprintf("Closing ticket #%d.", t.SequenceNumber)
}

func panelMessage(p domain.PanelConfig) string {
	return fmt.Sprintf("Ticket panel posted in <#%s>.", p.NotifyChannelID)
}

func formatTicketList(tickets []domain.Ticket) string {
	if len(tickets) == 0 {
		return msgNoTickets
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Active tickets (%d)**\n", len(tickets))
	for n, t := range tickets {
		if n == maxListedTickets {
			fmt.Fprintf(&b, "…and %d more", len(tickets)-maxListedTickets)
			break
		}
		channel := "(being created)"
		if t.ResourceID != "" {
			channel = fmt.Sprintf("<#%s>", t.ResourceID)
		}
		fmt.Fprintf(&b, "%s · <@%s> · #%d · %s\n", channel, t.OwnerID, t.SequenceNumber, strings.ToLower(string(t.State)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// errorMessage turns a lifecycle error into the reply shown to the member.
func errorMessage(err error) string {
	var dup *apperrors.DuplicateTicketError
	var verr *apperrors.ValidationErrors

	switch {
	case errors.As(err, &dup):
		if dup.ResourceID == "" {
			return "Your ticket is already being created."
		}
		return fmt.Sprintf("You already have an open ticket: <#%s>", dup.ResourceID)
	case errors.Is(err, apperrors.ErrAuthorizationFailure), errors.Is(err, errNotStaff):
		return "You need the Manage Channels permission to do that."
	case errors.Is(err, apperrors.ErrResourceCreationFailed):
		return "Failed to create ticket. Please try again later."
	case errors.Is(err, apperrors.ErrStateConflict):
		return "This channel is not an active ticket."
	case errors.As(err, &verr):
		return "Invalid input: " + describeValidation(verr)
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return "I'm missing permissions to do that. Ask a server admin to check my role."
	case errors.Is(err, apperrors.ErrInvalidTarget):
		return "That channel can't be used."
	case errors.Is(err, apperrors.ErrBadRequest):
		return "This can only be used by a server member."
	default:
		return "Something went wrong. Please try again later."
	}
}

func isUserError(err error) bool {
	var verr *apperrors.ValidationErrors
	if errors.Is(err, apperrors.ErrResourceCreationFailed) {
		return false
	}
	return errors.Is(err, apperrors.ErrDuplicateTicket) ||
		errors.Is(err, apperrors.ErrAuthorizationFailure) ||
		errors.Is(err, apperrors.ErrStateConflict) ||
		errors.As(err, &verr)
}

func describeValidation(v *apperrors.ValidationErrors) string {
	parts := make([]string, 0, len(v.Errors))
	for field, msgs := range v.Errors {
		parts = append(parts, field+" "+strings.Join(msgs, ", "))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
