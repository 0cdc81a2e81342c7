package discord

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	apperrors "github.com/lorrc/ticket-broker/internal/core/errors"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

type fakeREST struct {
	created  []discordgo.GuildChannelCreateData
	deleted  []string
	sent     map[string][]*discordgo.MessageSend
	channels []*discordgo.Channel
	roles    []*discordgo.Role
	rolesErr error
	err      error
}

func (f *fakeREST) GuildChannelCreateComplex(_ string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, data)
	return &discordgo.Channel{ID: "chan-" + data.Name, Name: data.Name, Type: data.Type}, nil
}

func (f *fakeREST) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

func (f *fakeREST) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.sent == nil {
		f.sent = make(map[string][]*discordgo.MessageSend)
	}
	f.sent[channelID] = append(f.sent[channelID], data)
	return &discordgo.Message{ID: "msg-1", ChannelID: channelID}, nil
}

func (f *fakeREST) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return f.channels, f.err
}

func (f *fakeREST) GuildRoles(string, ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return f.roles, f.rolesErr
}

func newTestGateway(rest *fakeREST) *Gateway {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newGateway(rest, func() string { return "bot-1" }, logger)
}

func restError(status, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "boom"},
	}
}

func TestGateway_CreateSession(t *testing.T) {
	rest := &fakeREST{
		roles: []*discordgo.Role{
			{ID: "guild-1", Permissions: discordgo.PermissionAdministrator},
			{ID: "admins", Permissions: discordgo.PermissionAdministrator},
			{ID: "members", Permissions: discordgo.PermissionSendMessages},
		},
	}
	g := newTestGateway(rest)

	id, err := g.CreateSession(context.Background(), ports.CreateSessionParams{
		ScopeID:    "guild-1",
		OwnerID:    "user-1",
		Name:       "alice-1",
		CategoryID: "cat-1",
		Overwrites: domain.TicketOverwrites("guild-1", "user-1", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, "chan-alice-1", id)

	require.Len(t, rest.created, 1)
	data := rest.created[0]
	assert.Equal(t, discordgo.ChannelTypeGuildText, data.Type)
	assert.Equal(t, "cat-1", data.ParentID)

	byID := map[string]*discordgo.PermissionOverwrite{}
	for _, po := range data.PermissionOverwrites {
		byID[po.ID] = po
	}
	require.Len(t, byID, 4)

	everyone := byID["guild-1"]
	assert.Equal(t, discordgo.PermissionOverwriteTypeRole, everyone.Type)
	assert.Equal(t, int64(discordgo.PermissionViewChannel), everyone.Deny)

	owner := byID["user-1"]
	assert.Equal(t, discordgo.PermissionOverwriteTypeMember, owner.Type)
	assert.NotZero(t, owner.Allow&discordgo.PermissionAttachFiles)
	assert.Zero(t, owner.Allow&discordgo.PermissionManageChannels)

	self := byID["bot-1"]
	assert.Equal(t, discordgo.PermissionOverwriteTypeMember, self.Type)
	assert.NotZero(t, self.Allow&discordgo.PermissionManageChannels)

	admins := byID["admins"]
	assert.Equal(t, discordgo.PermissionOverwriteTypeRole, admins.Type)
	assert.NotZero(t, admins.Allow&discordgo.PermissionViewChannel)
}

func TestGateway_CreateSession_RoleLookupFailureIsTolerated(t *testing.T) {
	rest := &fakeREST{rolesErr: errors.New("roles unavailable")}
	g := newTestGateway(rest)

	_, err := g.CreateSession(context.Background(), ports.CreateSessionParams{
		ScopeID:    "guild-1",
		Name:       "bob-2",
		Overwrites: domain.TicketOverwrites("guild-1", "user-2", ""),
	})
	require.NoError(t, err)
	assert.Len(t, rest.created[0].PermissionOverwrites, 3)
}

func TestGateway_CreateSession_PermissionDenied(t *testing.T) {
	rest := &fakeREST{err: restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions)}
	g := newTestGateway(rest)

	_, err := g.CreateSession(context.Background(), ports.CreateSessionParams{ScopeID: "guild-1", Name: "x-1"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestGateway_DeleteSession(t *testing.T) {
	rest := &fakeREST{}
	g := newTestGateway(rest)

	require.NoError(t, g.DeleteSession(context.Background(), "chan-1", "Ticket closed"))
	assert.Equal(t, []string{"chan-1"}, rest.deleted)

	rest.err = restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)
	assert.ErrorIs(t, g.DeleteSession(context.Background(), "chan-1", "Ticket closed"), apperrors.ErrNotFound)
}

func TestGateway_ResolveCategory(t *testing.T) {
	rest := &fakeREST{channels: []*discordgo.Channel{
		{ID: "text", Name: "tickets", Type: discordgo.ChannelTypeGuildText},
		{ID: "cat", Name: "TICKETS", Type: discordgo.ChannelTypeGuildCategory},
	}}
	g := newTestGateway(rest)

	id, ok, err := g.ResolveCategory(context.Background(), "guild-1", "Tickets")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cat", id)

	_, ok, err = g.ResolveCategory(context.Background(), "guild-1", "Archive")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGateway_CreateCategory(t *testing.T) {
	rest := &fakeREST{}
	g := newTestGateway(rest)

	id, err := g.CreateCategory(context.Background(), "guild-1", "Tickets", domain.CategoryOverwrites("guild-1"))
	require.NoError(t, err)
	assert.Equal(t, "chan-Tickets", id)
	assert.Equal(t, discordgo.ChannelTypeGuildCategory, rest.created[0].Type)
	require.Len(t, rest.created[0].PermissionOverwrites, 1)
}

func TestGateway_PostNotice(t *testing.T) {
	rest := &fakeREST{}
	g := newTestGateway(rest)

	id, err := g.PostNotice(context.Background(), "chan-1", domain.Notice{
		Kind:           domain.NoticeWelcome,
		Title:          "Ticket alice-1",
		Body:           "Welcome",
		MentionUserIDs: []string{"user-1"},
		MentionRoleIDs: []string{"role-1"},
		Fields: []domain.NoticeField{
			{Name: "Ticket Creator", UserID: "user-1"},
			{Name: "Created At", Value: "today"},
		},
		Actions: []domain.Action{{ID: domain.ActionCloseTicket, Label: "Close Ticket"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	msg := rest.sent["chan-1"][0]
	assert.Equal(t, "<@user-1> | <@&role-1>", msg.Content)
	require.Len(t, msg.Embeds, 1)
	assert.Equal(t, "🎫 Ticket alice-1", msg.Embeds[0].Title)
	assert.Equal(t, colorBlurple, msg.Embeds[0].Color)
	assert.Equal(t, "<@user-1>", msg.Embeds[0].Fields[0].Value)
	assert.Equal(t, "today", msg.Embeds[0].Fields[1].Value)

	require.Len(t, msg.Components, 1)
	row := msg.Components[0].(discordgo.ActionsRow)
	button := row.Components[0].(discordgo.Button)
	assert.Equal(t, domain.ActionCloseTicket, button.CustomID)
	assert.Equal(t, discordgo.DangerButton, button.Style)
}

func TestRenderNotice_NoActions(t *testing.T) {
	msg := renderNotice(domain.Notice{Kind: domain.NoticeClosing, Title: "Closing"})
	assert.Empty(t, msg.Components)
	assert.Empty(t, msg.Content)
	assert.Equal(t, colorRed, msg.Embeds[0].Color)
}

func TestPermissionBits(t *testing.T) {
	assert.Equal(t, int64(0), permissionBits(0))
	assert.Equal(t,
		int64(discordgo.PermissionViewChannel|discordgo.PermissionSendMessages),
		permissionBits(domain.Capabilities(domain.CapView, domain.CapSend)),
	)
	assert.Equal(t,
		int64(discordgo.PermissionEmbedLinks|discordgo.PermissionReadMessageHistory),
		permissionBits(domain.Capabilities(domain.CapEmbedContent, domain.CapReadHistory)),
	)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"missing permissions", restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions), apperrors.ErrPermissionDenied},
		{"missing access", restError(http.StatusForbidden, discordgo.ErrCodeMissingAccess), apperrors.ErrPermissionDenied},
		{"unknown channel", restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel), apperrors.ErrNotFound},
		{"plain 404", restError(http.StatusNotFound, 0), apperrors.ErrNotFound},
		{"rate limited", restError(http.StatusTooManyRequests, 0), apperrors.ErrTransientFailure},
		{"server error", restError(http.StatusBadGateway, 0), apperrors.ErrTransientFailure},
		{"bad request", restError(http.StatusBadRequest, 50035), apperrors.ErrInvalidTarget},
		{"deadline", context.DeadlineExceeded, apperrors.ErrTransientFailure},
		{"network", errors.New("connection reset"), apperrors.ErrTransientFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
