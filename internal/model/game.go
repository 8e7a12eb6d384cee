package model

import (
	"fmt"
	"sort"
)

// AchievementStat is the per-achievement slice of game metadata the
// aggregation pipeline needs (keyed by achievement title in Game).
type AchievementStat struct {
	ID              int
	AwardedHardcore int
	EarnedHardcore  bool
}

// Game is a per-user snapshot of one game's achievement set, fetched from the
// game-info-and-user-progress endpoint. Earned counts reflect the state after
// the current batch of unlocks was absorbed upstream.
type Game struct {
	ID          int
	Title       string
	ConsoleName string
	IconURL     string

	TotalAchievements    int
	EarnedHardcore       int
	EarnedSoftcore       int
	TotalPlayersHardcore int
	TotalPoints          int

	// CompletionHardcore is the user's hardcore completion in percent (0-100).
	CompletionHardcore float64

	// Achievements maps achievement title to its stats.
	Achievements map[string]AchievementStat
}

func (g Game) URL() string {
	if g.ID == 0 {
		return BaseURL
	}
	return fmt.Sprintf("%s/game/%d", BaseURL, g.ID)
}

// Console returns the abbreviated console name used in embeds.
func (g Game) Console() string { return ConsoleAbbrev(g.ConsoleName) }

// IsMastered reports full hardcore completion.
func (g Game) IsMastered() bool { return g.CompletionHardcore >= 100 }

// UnlockDistribution is the histogram of players per achievement count for
// one game. Keys are the achievement counts (tiers), values player counts.
type UnlockDistribution struct {
	Counts map[int]int
}

// HighestUnlock returns the player count at the greatest tier that has a
// nonzero count. An empty or all-zero distribution has no highest unlock.
func (d UnlockDistribution) HighestUnlock() (int, bool) {
	keys := make([]int, 0, len(d.Counts))
	for k := range d.Counts {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))
	for _, k := range keys {
		if d.Counts[k] != 0 {
			return d.Counts[k], true
		}
	}
	return 0, false
}
