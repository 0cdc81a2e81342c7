package services

import (
	"fmt"
	"time"

	"github.com/lorrc/ticket-broker/internal/core/domain"
)

func panelNotice(body string) domain.Notice {
	return domain.Notice{
		Kind:    domain.NoticePanel,
		Title:   "Support Ticket System",
		Body:    body,
		Actions: []domain.Action{{ID: domain.ActionOpenTicket, Label: "Open Ticket"}},
	}
}

func welcomeNotice(t domain.Ticket, panel domain.PanelConfig, hasPanel bool) domain.Notice {
	n := domain.Notice{
		Kind:  domain.NoticeWelcome,
		Title: "Ticket " + t.ChannelName(),
		Body: "Thank you for creating a ticket. Our staff team will be with you shortly.\n\n" +
			"Please describe your issue in detail.",
		MentionUserIDs: []string{t.OwnerID},
		Fields: []domain.NoticeField{
			{Name: "Ticket Creator", UserID: t.OwnerID},
			{Name: "Created At", Value: t.CreatedAt.Format(time.RFC1123)},
		},
		Actions: []domain.Action{{ID: domain.ActionCloseTicket, Label: "Close Ticket"}},
	}
	if hasPanel && panel.HasNotifyRole() {
		n.MentionRoleIDs = []string{panel.NotifyRoleID}
	}
	return n
}

func closingNotice(t domain.Ticket, delay time.Duration) domain.Notice {
	return domain.Notice{
		Kind:  domain.NoticeClosing,
		Title: "Ticket Closing",
		Body:  fmt.Sprintf("This ticket will be closed in %s...", delay),
		Fields: []domain.NoticeField{
			{Name: "Closed By", UserID: t.ClosedBy},
			{Name: "Ticket Number", Value: fmt.Sprintf("#%d", t.SequenceNumber)},
		},
	}
}
