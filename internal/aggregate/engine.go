// Package aggregate turns raw recent-unlock lists into ordered notification
// items: per-game grouping, completion accounting, and mastery detection.
package aggregate

import (
	"context"
	"log/slog"
	"sort"

	"retrobot/internal/model"
)

// Gateway is the slice of the achievement API the engine consumes.
type Gateway interface {
	RecentAchievements(ctx context.Context, user string, windowMinutes int) ([]model.Achievement, error)
	GameProgress(ctx context.Context, gameID int, user string) (model.Game, error)
	Profile(ctx context.Context, user string) (model.Profile, error)
	CompletionProgress(ctx context.Context, user string) (model.Progress, error)
	UnlockDistribution(ctx context.Context, gameID int) (model.UnlockDistribution, error)
}

type Engine struct {
	api    Gateway
	log    *slog.Logger
	window int // poll window in minutes
}

func New(api Gateway, windowMinutes int, log *slog.Logger) *Engine {
	return &Engine{api: api, window: windowMinutes, log: log}
}

// ProcessAll runs one poll cycle for every tracked user. A user's failure is
// logged and skipped; it never aborts the cycle for the remaining users.
func (e *Engine) ProcessAll(ctx context.Context, users []string) []Item {
	var items []Item
	for _, user := range users {
		got, err := e.ProcessUser(ctx, user)
		if err != nil {
			e.log.Error("processing user failed", slog.String("user", user), slog.Any("err", err))
			continue
		}
		items = append(items, got...)
	}
	return items
}

// ProcessUser converts one user's recent unlocks into notification items:
// one achievement item per unlock, numbered within its game, plus one
// mastery item per game that reached full hardcore completion this cycle.
func (e *Engine) ProcessUser(ctx context.Context, user string) ([]Item, error) {
	recent, err := e.api.RecentAchievements(ctx, user, e.window)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, nil
	}

	profile, err := e.api.Profile(ctx, user)
	if err != nil {
		return nil, err
	}

	order, groups := GroupByGame(recent)

	// Per-cycle memo: at most one game fetch per distinct game id.
	games := map[int]model.Game{}

	var items []Item
	var mastered []Item

	for _, gameID := range order {
		events := groups[gameID]

		game, ok := games[gameID]
		if !ok {
			game, err = e.api.GameProgress(ctx, gameID, user)
			if err != nil {
				// Failure isolation boundary: this game only.
				e.log.Error("resolving game failed",
					slog.String("user", user), slog.Int("game", gameID), slog.Any("err", err))
				continue
			}
			games[gameID] = game
		}

		n := len(events)
		for i, ev := range events {
			items = append(items, e.buildAchievementItem(user, profile, game, ev, i+1, n))
		}

		if game.IsMastered() {
			m := Item{
				Kind:     KindMastery,
				User:     user,
				Profile:  profile,
				Game:     game,
				SortTime: events[n-1].EarnedAt,
			}
			if dist, err := e.api.UnlockDistribution(ctx, gameID); err != nil {
				e.log.Warn("unlock distribution unavailable",
					slog.String("user", user), slog.Int("game", gameID), slog.Any("err", err))
			} else if highest, ok := dist.HighestUnlock(); ok {
				m.HighestUnlock = highest
				m.HasHighestUnlock = true
			}
			mastered = append(mastered, m)
		}
	}

	if len(mastered) > 0 {
		e.rankMasteries(ctx, user, mastered)
		items = append(items, mastered...)
	}
	return items, nil
}

func (e *Engine) buildAchievementItem(user string, profile model.Profile, game model.Game, ev model.Achievement, i, n int) Item {
	// The upstream earned total already includes all n unlocks of this
	// batch; roll it back to the count at the moment of the i-th unlock.
	completion := game.EarnedHardcore - n + i

	pct := 0.0
	if game.TotalAchievements > 0 {
		pct = float64(completion) / float64(game.TotalAchievements) * 100
	} else {
		e.log.Warn("game reports zero achievements",
			slog.String("user", user), slog.Int("game", game.ID))
	}

	awarded := game.Achievements[ev.Title].AwardedHardcore
	unlockPct := 0.0
	if game.TotalPlayersHardcore > 0 {
		unlockPct = float64(awarded) / float64(game.TotalPlayersHardcore) * 100
	}

	return Item{
		Kind:          KindAchievement,
		User:          user,
		Profile:       profile,
		Game:          game,
		SortTime:      ev.EarnedAt,
		Achievement:   ev,
		Completion:    completion,
		CompletionPct: pct,
		UnlockPct:     unlockPct,
		AwardedCount:  awarded,
	}
}

// rankMasteries assigns ordinals to this cycle's masteries. The completion
// progress query reflects the state after the whole batch was absorbed
// upstream, so the historical base is rolled back by the batch size, the
// same arithmetic used for per-achievement completion counts.
func (e *Engine) rankMasteries(ctx context.Context, user string, mastered []Item) {
	progress, err := e.api.CompletionProgress(ctx, user)
	if err != nil {
		// Ordinals stay 0 (unknown); the notification still goes out.
		e.log.Warn("completion progress unavailable",
			slog.String("user", user), slog.Any("err", err))
		return
	}
	base := progress.MasteredCount() - len(mastered)
	if base < 0 {
		base = 0
	}
	for i := range mastered {
		mastered[i].Ordinal = base + i + 1
	}
}

// GroupByGame partitions events by game id, preserving the order in which
// games first appear, and sorts each group by earned-at ascending. The sort
// is stable: equal timestamps keep the upstream response order.
func GroupByGame(events []model.Achievement) ([]int, map[int][]model.Achievement) {
	var order []int
	groups := map[int][]model.Achievement{}
	for _, ev := range events {
		if _, ok := groups[ev.GameID]; !ok {
			order = append(order, ev.GameID)
		}
		groups[ev.GameID] = append(groups[ev.GameID], ev)
	}
	for _, evs := range groups {
		sort.SliceStable(evs, func(i, j int) bool {
			return evs[i].EarnedAt.Before(evs[j].EarnedAt)
		})
	}
	return order, groups
}
