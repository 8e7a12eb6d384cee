package aggregate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"retrobot/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type fakeAPI struct {
	recent      map[string][]model.Achievement
	recentErr   map[string]error
	profiles    map[string]model.Profile
	games       map[int]model.Game
	gameErr     map[int]error
	progress    model.Progress
	progressErr error
	dist        map[int]model.UnlockDistribution
	distErr     error

	gameCalls     map[int]int
	progressCalls int
}

func (f *fakeAPI) RecentAchievements(_ context.Context, user string, _ int) ([]model.Achievement, error) {
	if err := f.recentErr[user]; err != nil {
		return nil, err
	}
	return f.recent[user], nil
}

func (f *fakeAPI) GameProgress(_ context.Context, gameID int, _ string) (model.Game, error) {
	if f.gameCalls == nil {
		f.gameCalls = map[int]int{}
	}
	f.gameCalls[gameID]++
	if err := f.gameErr[gameID]; err != nil {
		return model.Game{}, err
	}
	return f.games[gameID], nil
}

func (f *fakeAPI) Profile(_ context.Context, user string) (model.Profile, error) {
	return f.profiles[user], nil
}

func (f *fakeAPI) CompletionProgress(_ context.Context, _ string) (model.Progress, error) {
	f.progressCalls++
	if f.progressErr != nil {
		return model.Progress{}, f.progressErr
	}
	return f.progress, nil
}

func (f *fakeAPI) UnlockDistribution(_ context.Context, gameID int) (model.UnlockDistribution, error) {
	if f.distErr != nil {
		return model.UnlockDistribution{}, f.distErr
	}
	return f.dist[gameID], nil
}

func at(min int) time.Time {
	return time.Date(2026, time.March, 14, 10, min, 0, 0, time.UTC)
}

func unlock(id, gameID int, title string, min int) model.Achievement {
	return model.Achievement{
		ID:       id,
		Title:    title,
		GameID:   gameID,
		EarnedAt: at(min),
		Mode:     model.ModeHardcore,
	}
}

func TestGroupByGame(t *testing.T) {
	events := []model.Achievement{
		unlock(1, 7, "a", 5),
		unlock(2, 9, "b", 1),
		unlock(3, 7, "c", 2),
		unlock(4, 9, "d", 4),
	}

	order, groups := GroupByGame(events)

	if len(order) != 2 || order[0] != 7 || order[1] != 9 {
		t.Fatalf("order = %v, want [7 9]", order)
	}
	if got := groups[7]; len(got) != 2 || got[0].ID != 3 || got[1].ID != 1 {
		t.Fatalf("game 7 group not sorted by earned-at: %+v", got)
	}
	if got := groups[9]; len(got) != 2 || got[0].ID != 2 || got[1].ID != 4 {
		t.Fatalf("game 9 group not sorted by earned-at: %+v", got)
	}

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	if total != len(events) {
		t.Fatalf("partition lost events: %d != %d", total, len(events))
	}
}

func TestProcessUserCompletionSequence(t *testing.T) {
	api := &fakeAPI{
		recent: map[string][]model.Achievement{"alice": {
			unlock(1, 42, "first", 1),
			unlock(2, 42, "second", 2),
			unlock(3, 42, "third", 3),
		}},
		profiles: map[string]model.Profile{"alice": {Name: "alice"}},
		games: map[int]model.Game{42: {
			ID:                   42,
			TotalAchievements:    50,
			EarnedHardcore:       50,
			TotalPlayersHardcore: 200,
			CompletionHardcore:   50,
			Achievements: map[string]model.AchievementStat{
				"first":  {AwardedHardcore: 100},
				"second": {AwardedHardcore: 50},
				"third":  {AwardedHardcore: 20},
			},
		}},
	}
	e := New(api, 15, testLogger())

	items, err := e.ProcessUser(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}

	wantCompletion := []int{48, 49, 50}
	wantUnlockPct := []float64{50, 25, 10}
	for i, it := range items {
		if it.Completion != wantCompletion[i] {
			t.Errorf("item %d completion = %d, want %d", i, it.Completion, wantCompletion[i])
		}
		wantPct := float64(wantCompletion[i]) / 50 * 100
		if it.CompletionPct != wantPct {
			t.Errorf("item %d completion pct = %v, want %v", i, it.CompletionPct, wantPct)
		}
		if it.UnlockPct != wantUnlockPct[i] {
			t.Errorf("item %d unlock pct = %v, want %v", i, it.UnlockPct, wantUnlockPct[i])
		}
	}

	if api.gameCalls[42] != 1 {
		t.Fatalf("game fetched %d times, want 1", api.gameCalls[42])
	}
}

func TestProcessUserZeroTotalsAreSafe(t *testing.T) {
	api := &fakeAPI{
		recent: map[string][]model.Achievement{"bob": {
			unlock(1, 5, "only", 1),
		}},
		profiles: map[string]model.Profile{"bob": {Name: "bob"}},
		games: map[int]model.Game{5: {
			ID:                   5,
			TotalAchievements:    0,
			TotalPlayersHardcore: 0,
			Achievements:         map[string]model.AchievementStat{"only": {AwardedHardcore: 3}},
		}},
	}
	e := New(api, 15, testLogger())

	items, err := e.ProcessUser(context.Background(), "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].CompletionPct != 0 || items[0].UnlockPct != 0 {
		t.Fatalf("zero denominators must yield 0%%, got %v / %v",
			items[0].CompletionPct, items[0].UnlockPct)
	}
}

func TestProcessUserMastery(t *testing.T) {
	api := &fakeAPI{
		recent: map[string][]model.Achievement{"carol": {
			unlock(1, 10, "ninth", 1),
			unlock(2, 10, "tenth", 2),
		}},
		profiles: map[string]model.Profile{"carol": {Name: "carol"}},
		games: map[int]model.Game{10: {
			ID:                   10,
			Title:                "Some RPG",
			TotalAchievements:    10,
			EarnedHardcore:       10,
			TotalPlayersHardcore: 40,
			CompletionHardcore:   100,
			Achievements: map[string]model.AchievementStat{
				"ninth": {AwardedHardcore: 10},
				"tenth": {AwardedHardcore: 4},
			},
		}},
		progress: model.Progress{Results: []model.GameProgress{
			{GameID: 10, HighestAwardKind: model.AwardMastered},
			{GameID: 11, HighestAwardKind: model.AwardMastered},
			{GameID: 12, HighestAwardKind: model.AwardMastered},
			{GameID: 13, HighestAwardKind: "beaten-hardcore"},
		}},
		dist: map[int]model.UnlockDistribution{10: {Counts: map[int]int{9: 12, 10: 4}}},
	}
	e := New(api, 15, testLogger())

	items, err := e.ProcessUser(context.Background(), "carol")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 2 achievements + 1 mastery", len(items))
	}

	if items[0].Completion != 9 || items[1].Completion != 10 {
		t.Fatalf("completion sequence = %d,%d want 9,10", items[0].Completion, items[1].Completion)
	}

	m := items[2]
	if m.Kind != KindMastery {
		t.Fatal("last item must be the mastery")
	}
	if !m.SortTime.Equal(at(2)) {
		t.Fatalf("mastery sort time = %v, want last unlock %v", m.SortTime, at(2))
	}
	// 3 mastered in the listing, 1 new this cycle: this is the 3rd overall.
	if m.Ordinal != 3 {
		t.Fatalf("mastery ordinal = %d, want 3", m.Ordinal)
	}
	if !m.HasHighestUnlock || m.HighestUnlock != 4 {
		t.Fatalf("highest unlock = %d (%v), want 4", m.HighestUnlock, m.HasHighestUnlock)
	}
}

func TestProcessUserTwoMasteriesOneCycle(t *testing.T) {
	api := &fakeAPI{
		recent: map[string][]model.Achievement{"grace": {
			unlock(1, 20, "last-a", 1),
			unlock(2, 30, "last-b", 2),
		}},
		profiles: map[string]model.Profile{"grace": {Name: "grace"}},
		games: map[int]model.Game{
			20: {
				ID:                 20,
				TotalAchievements:  5,
				EarnedHardcore:     5,
				CompletionHardcore: 100,
				Achievements:       map[string]model.AchievementStat{"last-a": {}},
			},
			30: {
				ID:                 30,
				TotalAchievements:  8,
				EarnedHardcore:     8,
				CompletionHardcore: 100,
				Achievements:       map[string]model.AchievementStat{"last-b": {}},
			},
		},
		progress: model.Progress{Results: []model.GameProgress{
			{GameID: 20, HighestAwardKind: model.AwardMastered},
			{GameID: 30, HighestAwardKind: model.AwardMastered},
			{GameID: 40, HighestAwardKind: model.AwardMastered},
			{GameID: 41, HighestAwardKind: model.AwardMastered},
			{GameID: 42, HighestAwardKind: model.AwardMastered},
		}},
	}
	e := New(api, 15, testLogger())

	items, err := e.ProcessUser(context.Background(), "grace")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Fatalf("got %d items, want 2 achievements + 2 masteries", len(items))
	}

	// Listing holds 5 masteries, 2 of them from this cycle: the historical
	// base is 3, so the new ones rank 4th and 5th in first-appearance order.
	first, second := items[2], items[3]
	if first.Kind != KindMastery || second.Kind != KindMastery {
		t.Fatalf("trailing items must be masteries: %+v %+v", first, second)
	}
	if first.Game.ID != 20 || second.Game.ID != 30 {
		t.Fatalf("mastery order = %d,%d want 20,30", first.Game.ID, second.Game.ID)
	}
	if first.Ordinal != 4 || second.Ordinal != 5 {
		t.Fatalf("ordinals = %d,%d want 4,5", first.Ordinal, second.Ordinal)
	}
	if api.progressCalls != 1 {
		t.Fatalf("completion progress fetched %d times, want 1", api.progressCalls)
	}
}

func TestProcessUserRepollStableAndQuiet(t *testing.T) {
	events := []model.Achievement{unlock(1, 10, "tenth", 1)}
	api := &fakeAPI{
		recent:   map[string][]model.Achievement{"heidi": events},
		profiles: map[string]model.Profile{"heidi": {Name: "heidi"}},
		games: map[int]model.Game{10: {
			ID:                 10,
			TotalAchievements:  10,
			EarnedHardcore:     10,
			CompletionHardcore: 100,
			Achievements:       map[string]model.AchievementStat{"tenth": {}},
		}},
		progress: model.Progress{Results: []model.GameProgress{
			{GameID: 10, HighestAwardKind: model.AwardMastered},
			{GameID: 11, HighestAwardKind: model.AwardMastered},
		}},
	}
	e := New(api, 15, testLogger())

	items, err := e.ProcessUser(context.Background(), "heidi")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[1].Kind != KindMastery || items[1].Ordinal != 2 {
		t.Fatalf("first cycle items = %+v", items)
	}

	// Next cycle the unlock has aged out of the window: nothing fires again.
	api.recent["heidi"] = nil
	items, err = e.ProcessUser(context.Background(), "heidi")
	if err != nil {
		t.Fatal(err)
	}
	if items != nil {
		t.Fatalf("quiet re-poll must emit nothing, got %+v", items)
	}

	// Replaying the original window against unchanged upstream state yields
	// the same ordinal, not a new one.
	api.recent["heidi"] = events
	items, err = e.ProcessUser(context.Background(), "heidi")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[1].Ordinal != 2 {
		t.Fatalf("replayed cycle items = %+v", items)
	}
}

func TestProcessUserMasteryOrdinalUnavailable(t *testing.T) {
	api := &fakeAPI{
		recent: map[string][]model.Achievement{"dave": {
			unlock(1, 10, "tenth", 1),
		}},
		profiles: map[string]model.Profile{"dave": {Name: "dave"}},
		games: map[int]model.Game{10: {
			ID:                 10,
			TotalAchievements:  10,
			EarnedHardcore:     10,
			CompletionHardcore: 100,
			Achievements:       map[string]model.AchievementStat{"tenth": {}},
		}},
		progressErr: errors.New("listing down"),
		distErr:     errors.New("distribution down"),
	}
	e := New(api, 15, testLogger())

	items, err := e.ProcessUser(context.Background(), "dave")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want achievement + mastery", len(items))
	}
	m := items[1]
	if m.Kind != KindMastery || m.Ordinal != 0 || m.HasHighestUnlock {
		t.Fatalf("degraded mastery item wrong: %+v", m)
	}
}

func TestProcessUserEmptyWindow(t *testing.T) {
	api := &fakeAPI{recent: map[string][]model.Achievement{}}
	e := New(api, 15, testLogger())

	items, err := e.ProcessUser(context.Background(), "erin")
	if err != nil {
		t.Fatal(err)
	}
	if items != nil {
		t.Fatalf("expected no items, got %v", items)
	}
}

func TestProcessUserGameFailureIsolated(t *testing.T) {
	api := &fakeAPI{
		recent: map[string][]model.Achievement{"frank": {
			unlock(1, 1, "a", 1),
			unlock(2, 2, "b", 2),
		}},
		profiles: map[string]model.Profile{"frank": {Name: "frank"}},
		games: map[int]model.Game{2: {
			ID:                2,
			TotalAchievements: 4,
			EarnedHardcore:    1,
			Achievements:      map[string]model.AchievementStat{"b": {}},
		}},
		gameErr: map[int]error{1: errors.New("boom")},
	}
	e := New(api, 15, testLogger())

	items, err := e.ProcessUser(context.Background(), "frank")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Achievement.ID != 2 {
		t.Fatalf("expected only the healthy game's item, got %+v", items)
	}
}

func TestProcessAllUserFailureIsolated(t *testing.T) {
	api := &fakeAPI{
		recent: map[string][]model.Achievement{"good": {
			unlock(1, 3, "x", 1),
		}},
		recentErr: map[string]error{"bad": errors.New("api down")},
		profiles:  map[string]model.Profile{"good": {Name: "good"}},
		games: map[int]model.Game{3: {
			ID:                3,
			TotalAchievements: 5,
			EarnedHardcore:    1,
			Achievements:      map[string]model.AchievementStat{"x": {}},
		}},
	}
	e := New(api, 15, testLogger())

	items := e.ProcessAll(context.Background(), []string{"bad", "good"})
	if len(items) != 1 || items[0].User != "good" {
		t.Fatalf("expected the healthy user's item only, got %+v", items)
	}
}
