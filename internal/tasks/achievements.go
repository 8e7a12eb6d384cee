package tasks

import (
	"context"
	"log/slog"

	"retrobot/internal/aggregate"
	"retrobot/internal/notify"
)

// Achievements is the core poll cycle: collect this window's unlocks for the
// whole roster, then deliver achievement and mastery notifications to their
// channels.
type Achievements struct {
	engine *aggregate.Engine
	out    *notify.Service
	users  func() []string
	log    *slog.Logger

	achievementsChannel string
	masteryChannel      string
}

// NewAchievements builds the poll task. masteryChannel may equal
// achievementsChannel; the split is purely routing.
func NewAchievements(engine *aggregate.Engine, out *notify.Service, users func() []string, achievementsChannel, masteryChannel string, log *slog.Logger) *Achievements {
	if masteryChannel == "" {
		masteryChannel = achievementsChannel
	}
	return &Achievements{
		engine:              engine,
		out:                 out,
		users:               users,
		log:                 log,
		achievementsChannel: achievementsChannel,
		masteryChannel:      masteryChannel,
	}
}

func (t *Achievements) Run(ctx context.Context) error {
	roster := t.users()
	if len(roster) == 0 {
		return nil
	}

	items := t.engine.ProcessAll(ctx, roster)
	if len(items) == 0 {
		return nil
	}

	var unlocks, masteries []aggregate.Item
	for _, it := range items {
		if it.Kind == aggregate.KindMastery {
			masteries = append(masteries, it)
		} else {
			unlocks = append(unlocks, it)
		}
	}
	t.log.Info("poll cycle produced items",
		slog.Int("unlocks", len(unlocks)), slog.Int("masteries", len(masteries)))

	t.out.SendItems(ctx, t.achievementsChannel, unlocks)
	t.out.SendItems(ctx, t.masteryChannel, masteries)
	return nil
}
