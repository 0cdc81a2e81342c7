package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/lorrc/ticket-broker/internal/core/domain"
)

const (
	colorBlurple = 0x5865F2
	colorRed     = 0xFF0000
)

type noticeStyle struct {
	titleEmoji string
	color      int
}

var noticeStyles = map[domain.NoticeKind]noticeStyle{
	domain.NoticePanel:   {titleEmoji: "🎫", color: colorBlurple},
	domain.NoticeWelcome: {titleEmoji: "🎫", color: colorBlurple},
	domain.NoticeClosing: {titleEmoji: "🔒", color: colorRed},
}

type buttonStyle struct {
	emoji string
	style discordgo.ButtonStyle
}

var actionStyles = map[string]buttonStyle{
	domain.ActionOpenTicket:  {emoji: "📩", style: discordgo.PrimaryButton},
	domain.ActionCloseTicket: {emoji: "🔒", style: discordgo.DangerButton},
}

func renderNotice(n domain.Notice) *discordgo.MessageSend {
	style, ok := noticeStyles[n.Kind]
	if !ok {
		style = noticeStyle{color: colorBlurple}
	}

	title := n.Title
	if style.titleEmoji != "" {
		title = style.titleEmoji + " " + title
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: n.Body,
		Color:       style.color,
	}
	for _, f := range n.Fields {
		value := f.Value
		if f.UserID != "" {
			value = userMention(f.UserID)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  value,
			Inline: true,
		})
	}

	msg := &discordgo.MessageSend{
		Content: mentionContent(n.MentionUserIDs, n.MentionRoleIDs),
		Embeds:  []*discordgo.MessageEmbed{embed},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: n.MentionUserIDs,
			Roles: n.MentionRoleIDs,
		},
	}
	if buttons := renderActions(n.Actions); len(buttons) > 0 {
		msg.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: buttons},
		}
	}
	return msg
}

func renderActions(actions []domain.Action) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(actions))
	for _, a := range actions {
		button := discordgo.Button{
			Label:    a.Label,
			CustomID: a.ID,
			Style:    discordgo.SecondaryButton,
		}
		if s, ok := actionStyles[a.ID]; ok {
			button.Style = s.style
			button.Emoji = &discordgo.ComponentEmoji{Name: s.emoji}
		}
		out = append(out, button)
	}
	return out
}

func mentionContent(users, roles []string) string {
	parts := make([]string, 0, len(users)+len(roles))
	for _, id := range users {
		parts = append(parts, userMention(id))
	}
	for _, id := range roles {
		parts = append(parts, fmt.Sprintf("<@&%s>", id))
	}
	return strings.Join(parts, " | ")
}

func userMention(id string) string {
	return fmt.Sprintf("<@%s>", id)
}
