package tasks

import (
	"context"
	"log/slog"
	"sync"

	"retrobot/internal/model"
)

// PresenceAPI resolves a user's current game.
type PresenceAPI interface {
	Profile(ctx context.Context, user string) (model.Profile, error)
	GameTitle(ctx context.Context, gameID int) (string, error)
}

// StatusSetter updates the bot's "playing" status.
type StatusSetter interface {
	SetPresence(ctx context.Context, text string) error
}

// Presence rotates the bot status through the roster, showing the game each
// user was last seen playing.
type Presence struct {
	api    PresenceAPI
	status StatusSetter
	users  func() []string
	log    *slog.Logger

	mu  sync.Mutex
	idx int
}

func NewPresence(api PresenceAPI, status StatusSetter, users func() []string, log *slog.Logger) *Presence {
	return &Presence{api: api, status: status, users: users, log: log}
}

func (t *Presence) Run(ctx context.Context) error {
	roster := t.users()
	if len(roster) == 0 {
		return nil
	}

	t.mu.Lock()
	user := roster[t.idx%len(roster)]
	t.idx++
	t.mu.Unlock()

	profile, err := t.api.Profile(ctx, user)
	if err != nil {
		return err
	}
	if profile.LastGameID == 0 {
		t.log.Debug("presence: user has no last game", slog.String("user", user))
		return nil
	}
	title, err := t.api.GameTitle(ctx, profile.LastGameID)
	if err != nil {
		return err
	}
	return t.status.SetPresence(ctx, title)
}
