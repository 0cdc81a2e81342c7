package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	"github.com/lorrc/ticket-broker/internal/core/ports"
	"github.com/lorrc/ticket-broker/internal/infrastructure/logging"
)

const (
	commandPanel   = "ticket-panel"
	commandClose   = "ticket-close"
	commandTickets = "tickets"
)

func (b *Bot) dispatch(r responder, i *discordgo.InteractionCreate, ownerID string) {
	if b.IsShuttingDown() {
		b.reply(r, i, msgRestarting)
		return
	}
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		b.reply(r, i, msgGuildOnly)
		return
	}

	caller := callerFromInteraction(i, ownerID)

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		switch i.MessageComponentData().CustomID {
		case domain.ActionOpenTicket:
			b.handleOpen(r, i, caller)
		case domain.ActionCloseTicket:
			b.handleClose(r, i, caller, "")
		}
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		opts := optionsByName(data.Options)
		switch data.Name {
		case commandPanel:
			b.handlePanel(r, i, caller, opts)
		case commandClose:
			var target string
			if opt, ok := opts["channel"]; ok {
				target = opt.ChannelValue(nil).ID
			}
			b.handleClose(r, i, caller, target)
		case commandTickets:
			b.handleList(r, i, caller)
		}
	}
}

func (b *Bot) handleOpen(r responder, i *discordgo.InteractionCreate, caller domain.Caller) {
	if !b.openLimiter.Allow(caller.ScopeID + ":" + caller.UserID) {
		b.reply(r, i, msgSlowDown)
		return
	}

	if err := deferEphemeral(r, i); err != nil {
		b.logger.Warn("failed to defer reply", "error", err)
		return
	}

	ctx, cancel := callerContext(caller)
	defer cancel()

	result, err := b.lifecycle.OpenTicket(ctx, caller)
	content := openedMessage(result)
	if err != nil {
		content = errorMessage(err)
		b.logResult("open ticket failed", caller, err)
	} else if result.NoticeErr != nil {
		b.logger.Warn("welcome notice failed",
			"scope_id", caller.ScopeID,
			"resource_id", result.Ticket.ResourceID,
			"error", result.NoticeErr,
		)
	}

	b.edit(r, i, content)
}

func (b *Bot) handleClose(r responder, i *discordgo.InteractionCreate, caller domain.Caller, resourceID string) {
	if err := deferEphemeral(r, i); err != nil {
		b.logger.Warn("failed to defer reply", "error", err)
		return
	}

	ctx, cancel := callerContext(caller)
	defer cancel()

	ticket, err := b.lifecycle.CloseTicket(ctx, ports.CloseParams{Caller: caller, ResourceID: resourceID})
	if err != nil {
		b.logResult("close ticket failed", caller, err)
		b.edit(r, i, errorMessage(err))
		return
	}
	b.edit(r, i, closingMessage(ticket))
}

func (b *Bot) handlePanel(r responder, i *discordgo.InteractionCreate, caller domain.Caller, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	params := ports.ConfigurePanelParams{Caller: caller}
	if opt, ok := opts["channel"]; ok {
		params.NotifyChannelID = opt.ChannelValue(nil).ID
	}
	if opt, ok := opts["body"]; ok {
		params.BodyText = opt.StringValue()
	}
	if opt, ok := opts["role"]; ok {
		params.NotifyRoleID = opt.RoleValue(nil, i.GuildID).ID
	}

	if err := deferEphemeral(r, i); err != nil {
		b.logger.Warn("failed to defer reply", "error", err)
		return
	}

	ctx, cancel := callerContext(caller)
	defer cancel()

	panel, err := b.lifecycle.ConfigurePanel(ctx, params)
	if err != nil {
		b.logResult("configure panel failed", caller, err)
		b.edit(r, i, errorMessage(err))
		return
	}
	b.edit(r, i, panelMessage(panel))
}

func (b *Bot) handleList(r responder, i *discordgo.InteractionCreate, caller domain.Caller) {
	if !caller.CanManageTickets() {
		b.reply(r, i, errorMessage(errNotStaff))
		return
	}
	b.reply(r, i, formatTicketList(b.lifecycle.ListTickets(caller.ScopeID)))
}

// edit replaces a deferred reply.
func (b *Bot) edit(r responder, i *discordgo.InteractionCreate, content string) {
	if err := editInteractionResponse(r, i, content); err != nil {
		b.logger.Warn("failed to edit interaction response", "error", err)
	}
}

func (b *Bot) reply(r responder, i *discordgo.InteractionCreate, content string) {
	if err := respondEphemeral(r, i, content); err != nil {
		b.logger.Warn("failed to send ephemeral response", "error", err)
	}
}

func (b *Bot) logResult(msg string, caller domain.Caller, err error) {
	if isUserError(err) {
		b.logger.Debug(msg, "scope_id", caller.ScopeID, "user_id", caller.UserID, "error", err)
		return
	}
	b.logger.Error(msg, "scope_id", caller.ScopeID, "user_id", caller.UserID, "error", err)
}

// callerFromInteraction builds the caller from the member's resolved
// permissions. ownerID is the guild owner when the guild is cached.
func callerFromInteraction(i *discordgo.InteractionCreate, ownerID string) domain.Caller {
	member := i.Member
	return domain.Caller{
		UserID:            member.User.ID,
		ScopeID:           i.GuildID,
		DisplayName:       member.User.Username,
		ScopeOwnerID:      ownerID,
		CanManageChannels: member.Permissions&discordgo.PermissionManageChannels != 0,
		IsAdministrator:   member.Permissions&discordgo.PermissionAdministrator != 0,
		ContextResourceID: i.ChannelID,
	}
}

func optionsByName(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		out[opt.Name] = opt
	}
	return out
}

var errNotStaff = errors.New("caller is not staff")

func commandDefinitions() []*discordgo.ApplicationCommand {
	manageChannels := int64(discordgo.PermissionManageChannels)

	return []*discordgo.ApplicationCommand{
		{
			Name:                     commandPanel,
			Description:              "Post the ticket panel to a channel",
			DefaultMemberPermissions: &manageChannels,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Channel the panel is posted in",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "body",
					Description: "Text shown on the panel",
					Required:    true,
					MaxLength:   domain.MaxPanelBodyLength,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role pinged when a ticket is opened",
				},
			},
		},
		{
			Name:        commandClose,
			Description: "Close a ticket",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Ticket channel to close (defaults to this one)",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
		{
			Name:                     commandTickets,
			Description:              "List active tickets in this server",
			DefaultMemberPermissions: &manageChannels,
		},
	}
}

// callerContext bounds a lifecycle call and tags its logs with the caller.
func callerContext(caller domain.Caller) (context.Context, context.CancelFunc) {
	ctx := logging.WithScopeID(context.Background(), caller.ScopeID)
	ctx = logging.WithUserID(ctx, caller.UserID)
	return context.WithTimeout(ctx, interactionTimeout)
}
