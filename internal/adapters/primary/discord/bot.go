// Package discord wires Discord interactions and gateway events to the
// ticket lifecycle service.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/lorrc/ticket-broker/internal/core/ports"
	"github.com/lorrc/ticket-broker/internal/infrastructure/logging"
	"github.com/lorrc/ticket-broker/internal/infrastructure/ratelimit"
)

const (
	interactionTimeout = 30 * time.Second
)

// responder is the subset of *discordgo.Session used to answer interactions.
type responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Bot struct {
	session     *discordgo.Session
	lifecycle   ports.LifecycleService
	openLimiter *ratelimit.Keyed
	appID       string
	guildID     string
	logger      *slog.Logger

	shuttingDown atomic.Bool
}

type BotConfig struct {
	AppID string
	// GuildID registers commands in a single guild when set, which makes
	// them available immediately during development.
	GuildID     string
	Lifecycle   ports.LifecycleService
	OpenLimiter ratelimit.Config
	Logger      *slog.Logger
}

// NewSession creates an unopened session with the intents the bot needs.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord token is required")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	return session, nil
}

func NewBot(session *discordgo.Session, cfg BotConfig) (*Bot, error) {
	if session == nil {
		return nil, fmt.Errorf("discord session is required")
	}
	if cfg.Lifecycle == nil {
		return nil, fmt.Errorf("lifecycle service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiterCfg := cfg.OpenLimiter
	if limiterCfg.BurstSize <= 0 {
		limiterCfg = ratelimit.DefaultOpenConfig()
	}

	bot := &Bot{
		session:     session,
		lifecycle:   cfg.Lifecycle,
		openLimiter: ratelimit.NewKeyed(limiterCfg),
		appID:       cfg.AppID,
		guildID:     cfg.GuildID,
		logger:      logger.With("component", "discord_bot"),
	}

	session.AddHandler(bot.handleReady)
	session.AddHandler(bot.handleInteractionCreate)
	session.AddHandler(bot.handleChannelDelete)

	return bot, nil
}

func (b *Bot) Open() error {
	return b.session.Open()
}

func (b *Bot) Close() error {
	b.SetShuttingDown()
	b.openLimiter.Stop()
	return b.session.Close()
}

func (b *Bot) SetShuttingDown() {
	b.shuttingDown.Store(true)
}

func (b *Bot) IsShuttingDown() bool {
	return b.shuttingDown.Load()
}

func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// RegisterCommands creates the slash commands. Call it after Open.
func (b *Bot) RegisterCommands() error {
	appID := b.appID
	if appID == "" {
		appID = b.session.State.User.ID
	}

	for _, cmd := range commandDefinitions() {
		_, err := b.session.ApplicationCommandCreate(appID, b.guildID, cmd)
		if err != nil {
			return fmt.Errorf("register command %s: %w", cmd.Name, err)
		}
	}
	return nil
}

func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("discord bot ready", "user", r.User.Username, "guilds", len(r.Guilds))
}

func (b *Bot) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.dispatch(s, i, guildOwnerID(s, i.GuildID))
}

func (b *Bot) handleChannelDelete(_ *discordgo.Session, c *discordgo.ChannelDelete) {
	if c.Channel == nil || c.Type != discordgo.ChannelTypeGuildText {
		return
	}

	ctx := logging.WithResourceID(logging.WithScopeID(context.Background(), c.GuildID), c.ID)
	ctx, cancel := context.WithTimeout(ctx, interactionTimeout)
	defer cancel()

	if b.lifecycle.HandleResourceDeleted(ctx, c.ID) {
		b.logger.Info("ticket channel deleted externally", "scope_id", c.GuildID, "resource_id", c.ID)
	}
}

func guildOwnerID(s *discordgo.Session, guildID string) string {
	if s == nil || s.State == nil || guildID == "" {
		return ""
	}
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return ""
	}
	return guild.OwnerID
}

func respondEphemeral(r responder, i *discordgo.InteractionCreate, content string) error {
	return r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func deferEphemeral(r responder, i *discordgo.InteractionCreate) error {
	return r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func editInteractionResponse(r responder, i *discordgo.InteractionCreate, content string) error {
	_, err := r.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	return err
}
