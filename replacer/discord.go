package replacer

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/use-agent/filmcard/models"
)

// DiscordTransport is a Transport backed by a discordgo session.
type DiscordTransport struct {
	session *discordgo.Session
}

// NewDiscordTransport wraps an open session.
func NewDiscordTransport(s *discordgo.Session) *DiscordTransport {
	return &DiscordTransport{session: s}
}

func (t *DiscordTransport) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return t.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (t *DiscordTransport) SendCard(ctx context.Context, channelID string, card *discordgo.MessageEmbed) error {
	_, err := t.session.ChannelMessageSendEmbed(channelID, card, discordgo.WithContext(ctx))
	return err
}

// FromMessageCreate converts a gateway event into a TriggerMessage.
func FromMessageCreate(m *discordgo.MessageCreate) TriggerMessage {
	msg := TriggerMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.Author = models.Author{
			ID:         m.Author.ID,
			GlobalName: m.Author.GlobalName,
			Username:   m.Author.Username,
			Avatar:     m.Author.Avatar,
		}
	}
	return msg
}

// OnMessageCreate returns a discordgo handler that feeds every message to
// r.Handle. ctx is the lifetime of the bot; cancelling it aborts in-flight
// replacements.
func OnMessageCreate(ctx context.Context, r *Replacer) func(*discordgo.Session, *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author != nil && s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
			return
		}
		r.Handle(ctx, FromMessageCreate(m))
	}
}

// OnReady logs the identity the bot connected as.
func OnReady(_ *discordgo.Session, ready *discordgo.Ready) {
	slog.Info("connected to discord",
		"user", ready.User.Username,
		"guilds", len(ready.Guilds),
	)
}
