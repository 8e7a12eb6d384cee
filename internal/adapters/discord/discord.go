// Package discord adapts the discordgo session to the narrow sink
// interfaces the services consume (embed batches, plain text, presence).
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
)

type Config struct {
	Token string
}

type Adapter struct {
	session *discordgo.Session
	log     *slog.Logger
}

func New(cfg Config, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("discord: token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	return &Adapter{session: session, log: log}, nil
}

// Start opens the gateway connection. The returned error is fatal: without a
// session nothing can be delivered.
func (a *Adapter) Start(ctx context.Context) error {
	a.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.log.Info("discord session ready",
			slog.String("user", r.User.Username), slog.Int("guilds", len(r.Guilds)))
	})
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	_ = ctx
	if a.session == nil {
		return nil
	}
	return a.session.Close()
}

// SendEmbeds posts up to ten embeds as one message.
func (a *Adapter) SendEmbeds(ctx context.Context, channelID string, embeds []*discordgo.MessageEmbed) error {
	if len(embeds) == 0 {
		return nil
	}
	_, err := a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{Embeds: embeds}, discordgo.WithContext(ctx))
	return err
}

// SendText posts a plain message. Used by the log forwarder.
func (a *Adapter) SendText(ctx context.Context, channelID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	_, err := a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{Content: text}, discordgo.WithContext(ctx))
	return err
}

// SetPresence reports the "playing" status string.
func (a *Adapter) SetPresence(ctx context.Context, text string) error {
	_ = ctx
	return a.session.UpdateGameStatus(0, text)
}
