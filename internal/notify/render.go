// Package notify renders notification items into Discord embeds and
// delivers them in ordered, size-limited batches.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"retrobot/internal/aggregate"
	"retrobot/internal/model"
)

const (
	// defaultBannerURL is a transparent strip that forces a consistent
	// embed width in Discord clients.
	defaultBannerURL = "https://i.postimg.cc/KvSTwcQ0/undefined-Imgur.png"

	unlockTimeLayout = "02/01/06 at 15:04:05"
)

// Colors resolves a badge URL to an embed color. Implemented by
// internal/colorcache.
type Colors interface {
	GetOrCompute(ctx context.Context, url string) int
}

type RenderOptions struct {
	Location     *time.Location // display timezone; nil means time.Local
	BannerURL    string
	DailyIconURL string
}

// Renderer maps notification items to channel-ready embeds. Rendering never
// fails: color lookups fall back to a neutral default inside Colors.
type Renderer struct {
	colors Colors
	loc    *time.Location
	banner string
	daily  string

	now func() time.Time
}

func NewRenderer(colors Colors, opts RenderOptions) *Renderer {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	banner := opts.BannerURL
	if banner == "" {
		banner = defaultBannerURL
	}
	return &Renderer{
		colors: colors,
		loc:    loc,
		banner: banner,
		daily:  opts.DailyIconURL,
		now:    time.Now,
	}
}

// Item renders an achievement or mastery item.
func (r *Renderer) Item(ctx context.Context, it aggregate.Item) *discordgo.MessageEmbed {
	switch it.Kind {
	case aggregate.KindMastery:
		return r.mastery(ctx, it)
	default:
		return r.achievement(ctx, it)
	}
}

func (r *Renderer) achievement(ctx context.Context, it aggregate.Item) *discordgo.MessageEmbed {
	a := it.Achievement
	g := it.Game

	desc := fmt.Sprintf("**[%s](%s)**\n\n%s\n\nUnlocked by %d out of %d players (%.2f%%)",
		a.GameTitle, a.GameURL(), a.Description, it.AwardedCount, g.TotalPlayersHardcore, it.UnlockPct)

	return &discordgo.MessageEmbed{
		Description: desc,
		Color:       r.colors.GetOrCompute(ctx, a.BadgeURL),
		Author: &discordgo.MessageEmbedAuthor{
			Name:    fmt.Sprintf("%s Achievement Unlocked", a.Mode),
			IconURL: a.GameIconURL,
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Achievement", Value: fmt.Sprintf("[%s](%s)", a.Title, a.URL()), Inline: true},
			{Name: "Points", Value: fmt.Sprintf("%d (%s)", a.Points, model.FormatPoints(a.RetroPoints)), Inline: true},
			{Name: "Completion", Value: fmt.Sprintf("%d/%d (%.2f%%)", it.Completion, g.TotalAchievements, it.CompletionPct), Inline: true},
		},
		Image:     &discordgo.MessageEmbedImage{URL: r.banner},
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: a.BadgeURL},
		Footer: &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("%s • Unlocked on %s", it.User, a.EarnedAt.In(r.loc).Format(unlockTimeLayout)),
			IconURL: it.Profile.AvatarBustURL(r.now()),
		},
	}
}

func (r *Renderer) mastery(ctx context.Context, it aggregate.Item) *discordgo.MessageEmbed {
	g := it.Game

	desc := fmt.Sprintf("**[%s](%s)** (%s)\n\n%s earned all %d achievements, worth %s points.",
		g.Title, g.URL(), g.Console(), it.User, g.TotalAchievements, model.FormatPoints(g.TotalPoints))
	if it.Ordinal > 0 {
		desc += fmt.Sprintf("\n\nThis is their %s mastery.", model.Ordinal(it.Ordinal))
	}
	if it.HasHighestUnlock {
		desc += fmt.Sprintf("\nMastered by %d players in hardcore.", it.HighestUnlock)
	}

	return &discordgo.MessageEmbed{
		Description: desc,
		Color:       r.colors.GetOrCompute(ctx, g.IconURL),
		Author: &discordgo.MessageEmbedAuthor{
			Name:    "Game Mastered",
			IconURL: g.IconURL,
		},
		Image:     &discordgo.MessageEmbedImage{URL: r.banner},
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: g.IconURL},
		Footer: &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("%s • Mastered on %s", it.User, it.SortTime.In(r.loc).Format(unlockTimeLayout)),
			IconURL: it.Profile.AvatarBustURL(r.now()),
		},
	}
}

// Daily renders one user's daily overview.
func (r *Renderer) Daily(ctx context.Context, s aggregate.DailySummary) *discordgo.MessageEmbed {
	p := s.Profile

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    fmt.Sprintf("Daily Overview for %s", s.User),
			IconURL: r.daily,
		},
		Image: &discordgo.MessageEmbedImage{URL: r.banner},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Total Points: %s • Total RetroPoints: %s",
				model.FormatPoints(p.TotalPoints), model.FormatPoints(p.TotalTruePoints)),
			IconURL: p.AvatarBustURL(r.now()),
		},
	}

	if !s.HasTop {
		embed.Description = "Nothing has been earned today."
		embed.Color = r.colors.GetOrCompute(ctx, p.AvatarURL)
		return embed
	}

	top := s.Top
	embed.Color = r.colors.GetOrCompute(ctx, top.BadgeURL)
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: top.BadgeURL}
	embed.Description = fmt.Sprintf(
		"[%s](%s) has earned **%d** achievements today.\n\n"+
			"[%s](%s) (%s) is the game with the most earned achievements today.\n"+
			"**%d** achievements worth **%s** Points and **%s** RetroPoints.\n\n"+
			"[%s](%s) from [%s](%s) (%s) is the top achievement of the day.\n"+
			"**%d** Points and **%s** RetroPoints.\n\n"+
			"***%s** Points and **%s** RetroPoints have been earned in total today.*",
		s.User, p.URL(), s.Count,
		s.FavoriteGame, s.FavoriteGameURL, s.FavoriteConsole,
		s.FavoriteCount, model.FormatPoints(s.FavoritePoints), model.FormatPoints(s.FavoriteRetroPoints),
		top.Title, top.URL(), top.GameTitle, top.GameURL(), top.Console(),
		top.Points, model.FormatPoints(top.RetroPoints),
		model.FormatPoints(s.Points), model.FormatPoints(s.RetroPoints),
	)
	return embed
}
