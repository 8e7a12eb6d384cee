package aggregate

import (
	"retrobot/internal/model"
)

// SummarizeDay reduces one user's achievements from the last day into a
// daily-overview aggregate. A nil or empty event list yields a summary with
// Count 0, which renders as "nothing earned today".
func SummarizeDay(user string, profile model.Profile, events []model.Achievement) DailySummary {
	s := DailySummary{User: user, Profile: profile, Count: len(events)}
	if len(events) == 0 {
		return s
	}

	type gameTally struct {
		count       int
		url         string
		console     string
		points      int
		retroPoints int
	}
	games := map[string]*gameTally{}
	var gameOrder []string

	for _, ev := range events {
		s.Points += ev.Points
		s.RetroPoints += ev.RetroPoints

		if !s.HasTop || betterTop(ev, s.Top) {
			s.Top = ev
			s.HasTop = true
		}

		t, ok := games[ev.GameTitle]
		if !ok {
			t = &gameTally{url: ev.GameURL(), console: ev.Console()}
			games[ev.GameTitle] = t
			gameOrder = append(gameOrder, ev.GameTitle)
		}
		t.count++
		t.points += ev.Points
		t.retroPoints += ev.RetroPoints
	}

	// Favorite game: most unlocks; first-seen wins ties.
	for _, title := range gameOrder {
		t := games[title]
		if t.count > s.FavoriteCount {
			s.FavoriteGame = title
			s.FavoriteGameURL = t.url
			s.FavoriteConsole = t.console
			s.FavoriteCount = t.count
			s.FavoritePoints = t.points
			s.FavoriteRetroPoints = t.retroPoints
		}
	}
	return s
}

func betterTop(a, b model.Achievement) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	return a.RetroPoints > b.RetroPoints
}
