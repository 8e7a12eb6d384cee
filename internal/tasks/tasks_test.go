package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"retrobot/internal/aggregate"
	"retrobot/internal/model"
	"retrobot/internal/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func roster(users ...string) func() []string {
	return func() []string { return users }
}

type fakeColors struct{}

func (fakeColors) GetOrCompute(context.Context, string) int { return 0x111111 }

type fakeSink struct {
	sent map[string][][]*discordgo.MessageEmbed
}

func (f *fakeSink) SendEmbeds(_ context.Context, channelID string, embeds []*discordgo.MessageEmbed) error {
	if f.sent == nil {
		f.sent = map[string][][]*discordgo.MessageEmbed{}
	}
	f.sent[channelID] = append(f.sent[channelID], embeds)
	return nil
}

// fakeGateway drives the aggregation engine from canned data.
type fakeGateway struct {
	recent   map[string][]model.Achievement
	games    map[int]model.Game
	progress model.Progress
}

func (f *fakeGateway) RecentAchievements(_ context.Context, user string, _ int) ([]model.Achievement, error) {
	return f.recent[user], nil
}
func (f *fakeGateway) GameProgress(_ context.Context, gameID int, _ string) (model.Game, error) {
	return f.games[gameID], nil
}
func (f *fakeGateway) Profile(_ context.Context, user string) (model.Profile, error) {
	return model.Profile{Name: user}, nil
}
func (f *fakeGateway) CompletionProgress(_ context.Context, _ string) (model.Progress, error) {
	return f.progress, nil
}
func (f *fakeGateway) UnlockDistribution(_ context.Context, _ int) (model.UnlockDistribution, error) {
	return model.UnlockDistribution{Counts: map[int]int{10: 4}}, nil
}

func newService(sink *fakeSink) (*notify.Service, *notify.Renderer) {
	render := notify.NewRenderer(fakeColors{}, notify.RenderOptions{Location: time.UTC})
	return notify.New(sink, render, notify.Config{RatePerSec: 1000}, testLogger()), render
}

func TestAchievementsRunRoutesKinds(t *testing.T) {
	earned := time.Date(2026, 3, 14, 10, 7, 0, 0, time.UTC)
	gw := &fakeGateway{
		recent: map[string][]model.Achievement{"carol": {
			{ID: 1, Title: "ninth", GameID: 10, EarnedAt: earned, Mode: model.ModeHardcore},
			{ID: 2, Title: "tenth", GameID: 10, EarnedAt: earned.Add(time.Minute), Mode: model.ModeHardcore},
		}},
		games: map[int]model.Game{10: {
			ID:                 10,
			Title:              "Some RPG",
			TotalAchievements:  10,
			EarnedHardcore:     10,
			CompletionHardcore: 100,
			Achievements: map[string]model.AchievementStat{
				"ninth": {}, "tenth": {},
			},
		}},
	}
	engine := aggregate.New(gw, 15, testLogger())
	sink := &fakeSink{}
	svc, _ := newService(sink)

	task := NewAchievements(engine, svc, roster("carol"), "ach-chan", "mastery-chan", testLogger())
	if err := task.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := sink.sent["ach-chan"]; len(got) != 1 || len(got[0]) != 2 {
		t.Fatalf("achievement channel got %v", got)
	}
	if got := sink.sent["mastery-chan"]; len(got) != 1 || len(got[0]) != 1 {
		t.Fatalf("mastery channel got %v", got)
	}
	m := sink.sent["mastery-chan"][0][0]
	if m.Author == nil || m.Author.Name != "Game Mastered" {
		t.Fatalf("mastery embed = %+v", m)
	}
}

func TestAchievementsMasteryFallsBackToAchievementsChannel(t *testing.T) {
	task := NewAchievements(nil, nil, roster(), "ach-chan", "", testLogger())
	if task.masteryChannel != "ach-chan" {
		t.Fatalf("mastery channel = %q, want fallback", task.masteryChannel)
	}
}

func TestAchievementsQuietCycleSendsNothing(t *testing.T) {
	gw := &fakeGateway{}
	engine := aggregate.New(gw, 15, testLogger())
	sink := &fakeSink{}
	svc, _ := newService(sink)

	task := NewAchievements(engine, svc, roster("alice"), "ach", "mast", testLogger())
	if err := task.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sink.sent) != 0 {
		t.Fatalf("quiet cycle must send nothing, got %v", sink.sent)
	}
}

type fakeDailyAPI struct {
	events     map[string][]model.Achievement
	profileErr map[string]error
}

func (f *fakeDailyAPI) EarnedBetween(_ context.Context, user string, _, _ time.Time) ([]model.Achievement, error) {
	return f.events[user], nil
}
func (f *fakeDailyAPI) Profile(_ context.Context, user string) (model.Profile, error) {
	if err := f.profileErr[user]; err != nil {
		return model.Profile{}, err
	}
	return model.Profile{Name: user}, nil
}

func TestDailyRunOneEmbedPerUser(t *testing.T) {
	api := &fakeDailyAPI{
		events: map[string][]model.Achievement{
			"alice": {{ID: 1, GameTitle: "G", Points: 5}},
			"bob":   nil, // quiet day still gets an overview
		},
		profileErr: map[string]error{"mallory": errors.New("profile down")},
	}
	sink := &fakeSink{}
	svc, render := newService(sink)

	task := NewDaily(api, render, svc, roster("alice", "mallory", "bob"), "daily-chan", testLogger())
	if err := task.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := sink.sent["daily-chan"]
	if len(got) != 1 || len(got[0]) != 2 {
		t.Fatalf("daily channel got %v, want one batch of 2 (failed user skipped)", got)
	}
}

type fakePresenceAPI struct {
	profiles map[string]model.Profile
	titles   map[int]string
}

func (f *fakePresenceAPI) Profile(_ context.Context, user string) (model.Profile, error) {
	return f.profiles[user], nil
}
func (f *fakePresenceAPI) GameTitle(_ context.Context, gameID int) (string, error) {
	return f.titles[gameID], nil
}

type fakeStatus struct{ set []string }

func (f *fakeStatus) SetPresence(_ context.Context, text string) error {
	f.set = append(f.set, text)
	return nil
}

func TestPresenceRotatesRoster(t *testing.T) {
	api := &fakePresenceAPI{
		profiles: map[string]model.Profile{
			"alice": {LastGameID: 1},
			"bob":   {LastGameID: 2},
		},
		titles: map[int]string{1: "Game One", 2: "Game Two"},
	}
	status := &fakeStatus{}
	task := NewPresence(api, status, roster("alice", "bob"), testLogger())

	for i := 0; i < 3; i++ {
		if err := task.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"Game One", "Game Two", "Game One"}
	if len(status.set) != 3 {
		t.Fatalf("set %d times, want 3", len(status.set))
	}
	for i := range want {
		if status.set[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", status.set, want)
		}
	}
}

func TestPresenceSkipsIdleUser(t *testing.T) {
	api := &fakePresenceAPI{profiles: map[string]model.Profile{"alice": {}}}
	status := &fakeStatus{}
	task := NewPresence(api, status, roster("alice"), testLogger())

	if err := task.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(status.set) != 0 {
		t.Fatalf("idle user must not set presence, got %v", status.set)
	}
}
