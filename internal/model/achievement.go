package model

import (
	"fmt"
	"time"
)

// BaseURL is the public site root; media refs from the API are relative to it.
const BaseURL = "https://retroachievements.org"

// Mode is the completion track an achievement was earned on.
// Only hardcore unlocks count toward mastery.
type Mode string

const (
	ModeHardcore Mode = "Hardcore"
	ModeSoftcore Mode = "Softcore"
)

// Achievement is one earned achievement as reported by the recent-unlocks
// endpoints. It is built once at the API boundary and never mutated.
type Achievement struct {
	ID          int
	Title       string
	Description string
	Points      int
	RetroPoints int
	Kind        string // "", "missable", "progression", "win_condition"

	GameID      int
	GameTitle   string
	GameIconURL string
	ConsoleName string

	BadgeURL string
	EarnedAt time.Time
	Mode     Mode
}

func (a Achievement) URL() string {
	if a.ID == 0 {
		return BaseURL
	}
	return fmt.Sprintf("%s/achievement/%d", BaseURL, a.ID)
}

func (a Achievement) GameURL() string {
	if a.GameID == 0 {
		return BaseURL
	}
	return fmt.Sprintf("%s/game/%d", BaseURL, a.GameID)
}

// Console returns the abbreviated console name used in embeds.
func (a Achievement) Console() string { return ConsoleAbbrev(a.ConsoleName) }
