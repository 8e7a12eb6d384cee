package ra

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"retrobot/internal/model"
)

// Wire schemas. Field names mirror the upstream JSON; everything optional is
// left to its zero value and defaulted during conversion.

const wireTimeLayout = "2006-01-02 15:04:05" // upstream timestamps are UTC

type wireRecentAchievement struct {
	AchievementID int    `json:"AchievementID"`
	Title         string `json:"Title"`
	Description   string `json:"Description"`
	Points        int    `json:"Points"`
	TrueRatio     int    `json:"TrueRatio"`
	Type          string `json:"Type"`
	Date          string `json:"Date"`
	HardcoreMode  int    `json:"HardcoreMode"`
	BadgeURL      string `json:"BadgeURL"`
	GameID        int    `json:"GameID"`
	GameTitle     string `json:"GameTitle"`
	GameIcon      string `json:"GameIcon"`
	ConsoleName   string `json:"ConsoleName"`
}

func (w wireRecentAchievement) toModel() (model.Achievement, error) {
	earned, err := time.ParseInLocation(wireTimeLayout, w.Date, time.UTC)
	if err != nil {
		return model.Achievement{}, fmt.Errorf("achievement %d: bad Date %q: %w", w.AchievementID, w.Date, err)
	}
	mode := model.ModeSoftcore
	if w.HardcoreMode == 1 {
		mode = model.ModeHardcore
	}
	return model.Achievement{
		ID:          w.AchievementID,
		Title:       w.Title,
		Description: w.Description,
		Points:      w.Points,
		RetroPoints: w.TrueRatio,
		Kind:        w.Type,
		GameID:      w.GameID,
		GameTitle:   w.GameTitle,
		GameIconURL: siteURL(w.GameIcon),
		ConsoleName: w.ConsoleName,
		BadgeURL:    siteURL(w.BadgeURL),
		EarnedAt:    earned,
		Mode:        mode,
	}, nil
}

type wireGameAchievement struct {
	ID                 int    `json:"ID"`
	Title              string `json:"Title"`
	NumAwardedHardcore int    `json:"NumAwardedHardcore"`
	DateEarnedHardcore string `json:"DateEarnedHardcore"`
}

type wireGameProgress struct {
	ID                         int                            `json:"ID"`
	Title                      string                         `json:"Title"`
	ConsoleName                string                         `json:"ConsoleName"`
	ImageIcon                  string                         `json:"ImageIcon"`
	NumAchievements            int                            `json:"NumAchievements"`
	NumAwardedToUserHardcore   int                            `json:"NumAwardedToUserHardcore"`
	NumAwardedToUser           int                            `json:"NumAwardedToUser"`
	NumDistinctPlayersHardcore int                            `json:"NumDistinctPlayersHardcore"`
	PointsTotal                int                            `json:"points_total"`
	UserCompletionHardcore     string                         `json:"UserCompletionHardcore"`
	Achievements               map[string]wireGameAchievement `json:"Achievements"`
}

func (w wireGameProgress) toModel() model.Game {
	stats := make(map[string]model.AchievementStat, len(w.Achievements))
	for _, a := range w.Achievements {
		stats[a.Title] = model.AchievementStat{
			ID:              a.ID,
			AwardedHardcore: a.NumAwardedHardcore,
			EarnedHardcore:  a.DateEarnedHardcore != "",
		}
	}
	return model.Game{
		ID:                   w.ID,
		Title:                w.Title,
		ConsoleName:          w.ConsoleName,
		IconURL:              siteURL(w.ImageIcon),
		TotalAchievements:    w.NumAchievements,
		EarnedHardcore:       w.NumAwardedToUserHardcore,
		EarnedSoftcore:       w.NumAwardedToUser,
		TotalPlayersHardcore: w.NumDistinctPlayersHardcore,
		TotalPoints:          w.PointsTotal,
		CompletionHardcore:   parsePercent(w.UserCompletionHardcore),
		Achievements:         stats,
	}
}

type wireProfile struct {
	User                string `json:"User"`
	UserPic             string `json:"UserPic"`
	MemberSince         string `json:"MemberSince"`
	Motto               string `json:"Motto"`
	TotalPoints         int    `json:"TotalPoints"`
	TotalSoftcorePoints int    `json:"TotalSoftcorePoints"`
	TotalTruePoints     int    `json:"TotalTruePoints"`
	LastGameID          int    `json:"LastGameID"`
	RichPresenceMsg     string `json:"RichPresenceMsg"`
}

func (w wireProfile) toModel() model.Profile {
	return model.Profile{
		Name:                w.User,
		AvatarURL:           siteURL(w.UserPic),
		MemberSince:         w.MemberSince,
		Motto:               w.Motto,
		TotalPoints:         w.TotalPoints,
		TotalSoftcorePoints: w.TotalSoftcorePoints,
		TotalTruePoints:     w.TotalTruePoints,
		LastGameID:          w.LastGameID,
		RichPresence:        w.RichPresenceMsg,
	}
}

type wireProgressResult struct {
	GameID             int    `json:"GameID"`
	Title              string `json:"Title"`
	ConsoleName        string `json:"ConsoleName"`
	MaxPossible        int    `json:"MaxPossible"`
	NumAwarded         int    `json:"NumAwarded"`
	NumAwardedHardcore int    `json:"NumAwardedHardcore"`
	HighestAwardKind   string `json:"HighestAwardKind"`
	HighestAwardDate   string `json:"HighestAwardDate"`
}

type wireProgress struct {
	Count   int                  `json:"Count"`
	Total   int                  `json:"Total"`
	Results []wireProgressResult `json:"Results"`
}

func (w wireProgress) toModel() model.Progress {
	results := make([]model.GameProgress, 0, len(w.Results))
	for _, r := range w.Results {
		results = append(results, model.GameProgress{
			GameID:           r.GameID,
			Title:            r.Title,
			ConsoleName:      r.ConsoleName,
			MaxPossible:      r.MaxPossible,
			Awarded:          r.NumAwarded,
			AwardedHardcore:  r.NumAwardedHardcore,
			HighestAwardKind: r.HighestAwardKind,
			HighestAwardDate: r.HighestAwardDate,
		})
	}
	return model.Progress{Count: w.Count, Total: w.Total, Results: results}
}

type wireGameExtended struct {
	ID    int    `json:"ID"`
	Title string `json:"Title"`
}

func siteURL(ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return BaseURL + ref
}

// parsePercent parses "87.50%" style completion strings; absent or malformed
// values count as 0.
func parsePercent(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
