package aggregate

import (
	"time"

	"retrobot/internal/model"
)

// ItemKind tags a NotificationItem.
type ItemKind int

const (
	KindAchievement ItemKind = iota
	KindMastery
)

// Item is one pending notification produced by the engine. It is consumed
// exactly once by the notifier and then discarded.
type Item struct {
	Kind ItemKind

	User    string
	Profile model.Profile
	Game    model.Game

	// SortTime orders items within a cycle (earned-at for achievements,
	// last unlock of the game for masteries).
	SortTime time.Time

	// Achievement items.
	Achievement   model.Achievement
	Completion    int     // reconstructed earned count at unlock time
	CompletionPct float64 // completion / total achievements, in percent
	UnlockPct     float64 // players who unlocked this / hardcore players
	AwardedCount  int     // hardcore players who unlocked this achievement

	// Mastery items.
	Ordinal          int // user's Nth mastery overall; 0 when unknown
	HighestUnlock    int
	HasHighestUnlock bool
}

// DailySummary is one user's daily-overview aggregate.
type DailySummary struct {
	User    string
	Profile model.Profile

	Count       int
	Points      int
	RetroPoints int

	// Top is the single highest-value achievement of the day (max points,
	// ties broken by RetroPoints). Present only when Count > 0.
	Top    model.Achievement
	HasTop bool

	// Favorite game: the game with the most unlocks that day.
	FavoriteGame        string
	FavoriteGameURL     string
	FavoriteConsole     string
	FavoriteCount       int
	FavoritePoints      int
	FavoriteRetroPoints int
}
