// Package discord implements the resource gateway on the Discord REST API.
package discord

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

// restClient is the subset of *discordgo.Session the gateway calls.
type restClient interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
}

// Gateway is a ports.ResourceGateway backed by Discord guild channels.
type Gateway struct {
	rest   restClient
	selfID func() string
	logger *slog.Logger
}

var _ ports.ResourceGateway = (*Gateway)(nil)

// NewGateway creates a gateway on an authenticated session. The bot's own
// user id is read from the session state once the gateway is ready.
func NewGateway(session *discordgo.Session, logger *slog.Logger) *Gateway {
	return newGateway(session, func() string {
		if session.State != nil && session.State.User != nil {
			return session.State.User.ID
		}
		return ""
	}, logger)
}

func newGateway(rest restClient, selfID func() string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		rest:   rest,
		selfID: selfID,
		logger: logger.With("component", "discord_gateway"),
	}
}

// CreateSession creates the private ticket text channel. Administrator
// roles are granted staff access when the role list can be read.
func (g *Gateway) CreateSession(ctx context.Context, params ports.CreateSessionParams) (string, error) {
	overwrites := g.permissionOverwrites(params.Overwrites)
	overwrites = append(overwrites, g.adminRoleOverwrites(ctx, params.ScopeID)...)

	channel, err := g.rest.GuildChannelCreateComplex(params.ScopeID, discordgo.GuildChannelCreateData{
		Name:                 params.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             params.CategoryID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", classify(err)
	}
	return channel.ID, nil
}

func (g *Gateway) DeleteSession(ctx context.Context, resourceID, reason string) error {
	_, err := g.rest.ChannelDelete(resourceID,
		discordgo.WithContext(ctx),
		discordgo.WithAuditLogReason(reason),
	)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (g *Gateway) PostNotice(ctx context.Context, channelID string, notice domain.Notice) (string, error) {
	msg, err := g.rest.ChannelMessageSendComplex(channelID, renderNotice(notice), discordgo.WithContext(ctx))
	if err != nil {
		return "", classify(err)
	}
	return msg.ID, nil
}

// ResolveCategory finds a category by name, ignoring case.
func (g *Gateway) ResolveCategory(ctx context.Context, scopeID, name string) (string, bool, error) {
	channels, err := g.rest.GuildChannels(scopeID, discordgo.WithContext(ctx))
	if err != nil {
		return "", false, classify(err)
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory && strings.EqualFold(ch.Name, name) {
			return ch.ID, true, nil
		}
	}
	return "", false, nil
}

func (g *Gateway) CreateCategory(ctx context.Context, scopeID, name string, overwrites []domain.Overwrite) (string, error) {
	channel, err := g.rest.GuildChannelCreateComplex(scopeID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: g.permissionOverwrites(overwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", classify(err)
	}
	g.logger.InfoContext(ctx, "ticket category created", "scope_id", scopeID, "category_id", channel.ID)
	return channel.ID, nil
}

func (g *Gateway) permissionOverwrites(overwrites []domain.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(overwrites))
	for _, o := range overwrites {
		po := &discordgo.PermissionOverwrite{
			Allow: permissionBits(o.Allow),
			Deny:  permissionBits(o.Deny),
		}
		switch o.Principal.Kind {
		case domain.PrincipalEveryone, domain.PrincipalRole:
			po.Type = discordgo.PermissionOverwriteTypeRole
			po.ID = o.Principal.ID
		case domain.PrincipalMember:
			po.Type = discordgo.PermissionOverwriteTypeMember
			po.ID = o.Principal.ID
		case domain.PrincipalSelf:
			po.Type = discordgo.PermissionOverwriteTypeMember
			po.ID = g.selfID()
		}
		if po.ID == "" {
			continue
		}
		out = append(out, po)
	}
	return out
}

func (g *Gateway) adminRoleOverwrites(ctx context.Context, guildID string) []*discordgo.PermissionOverwrite {
	roles, err := g.rest.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		g.logger.WarnContext(ctx, "could not list roles for admin access", "scope_id", guildID, "error", err)
		return nil
	}

	var out []*discordgo.PermissionOverwrite
	for _, role := range roles {
		if role.ID == guildID || role.Permissions&discordgo.PermissionAdministrator == 0 {
			continue
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    role.ID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: permissionBits(domain.StaffCapabilities),
		})
	}
	return out
}

var capabilityPermissions = map[domain.Capability]int64{
	domain.CapView:           discordgo.PermissionViewChannel,
	domain.CapSend:           discordgo.PermissionSendMessages,
	domain.CapReadHistory:    discordgo.PermissionReadMessageHistory,
	domain.CapAttachFiles:    discordgo.PermissionAttachFiles,
	domain.CapEmbedContent:   discordgo.PermissionEmbedLinks,
	domain.CapManageResource: discordgo.PermissionManageChannels,
}

func permissionBits(set domain.CapabilitySet) int64 {
	var bits int64
	for _, c := range domain.AllCapabilities() {
		if set.Has(c) {
			bits |= capabilityPermissions[c]
		}
	}
	return bits
}
