package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"retrobot/internal/aggregate"
	"retrobot/internal/model"
	"retrobot/internal/notify"
)

// DailyAPI is the slice of the achievement gateway the overview needs.
type DailyAPI interface {
	EarnedBetween(ctx context.Context, user string, from, to time.Time) ([]model.Achievement, error)
	Profile(ctx context.Context, user string) (model.Profile, error)
}

// Daily posts one overview embed per roster user covering the last 24 hours.
// A user's failure skips that user only.
type Daily struct {
	api    DailyAPI
	render *notify.Renderer
	out    *notify.Service
	users  func() []string
	log    *slog.Logger

	channel string
	now     func() time.Time
}

func NewDaily(api DailyAPI, render *notify.Renderer, out *notify.Service, users func() []string, channel string, log *slog.Logger) *Daily {
	return &Daily{
		api:     api,
		render:  render,
		out:     out,
		users:   users,
		log:     log,
		channel: channel,
		now:     time.Now,
	}
}

func (t *Daily) Run(ctx context.Context) error {
	to := t.now()
	from := to.Add(-24 * time.Hour)

	var embeds []*discordgo.MessageEmbed
	for _, user := range t.users() {
		events, err := t.api.EarnedBetween(ctx, user, from, to)
		if err != nil {
			t.log.Error("daily overview: fetching earned achievements failed",
				slog.String("user", user), slog.Any("err", err))
			continue
		}
		profile, err := t.api.Profile(ctx, user)
		if err != nil {
			t.log.Error("daily overview: fetching profile failed",
				slog.String("user", user), slog.Any("err", err))
			continue
		}
		summary := aggregate.SummarizeDay(user, profile, events)
		embeds = append(embeds, t.render.Daily(ctx, summary))
	}

	t.out.SendEmbeds(ctx, t.channel, embeds)
	return nil
}
