package ra

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"retrobot/internal/model"
)

// RecentAchievements returns the achievements user earned within the last
// windowMinutes, in upstream response order.
func (c *Client) RecentAchievements(ctx context.Context, user string, windowMinutes int) ([]model.Achievement, error) {
	const endpoint = "API_GetUserRecentAchievements.php"
	params := url.Values{}
	params.Set("u", user)
	params.Set("m", strconv.Itoa(windowMinutes))

	var wire []wireRecentAchievement
	if err := c.get(ctx, endpoint, params, &wire); err != nil {
		return nil, err
	}
	out := make([]model.Achievement, 0, len(wire))
	for _, w := range wire {
		a, err := w.toModel()
		if err != nil {
			return nil, &UpstreamError{Endpoint: endpoint, Err: err}
		}
		out = append(out, a)
	}
	return out, nil
}

// EarnedBetween returns the achievements user earned between two instants.
func (c *Client) EarnedBetween(ctx context.Context, user string, from, to time.Time) ([]model.Achievement, error) {
	const endpoint = "API_GetAchievementsEarnedBetween.php"
	params := url.Values{}
	params.Set("u", user)
	params.Set("f", strconv.FormatInt(from.Unix(), 10))
	params.Set("t", strconv.FormatInt(to.Unix(), 10))

	var wire []wireRecentAchievement
	if err := c.get(ctx, endpoint, params, &wire); err != nil {
		return nil, err
	}
	out := make([]model.Achievement, 0, len(wire))
	for _, w := range wire {
		a, err := w.toModel()
		if err != nil {
			return nil, &UpstreamError{Endpoint: endpoint, Err: err}
		}
		out = append(out, a)
	}
	return out, nil
}

// GameProgress returns game metadata together with user's progress in it.
func (c *Client) GameProgress(ctx context.Context, gameID int, user string) (model.Game, error) {
	params := url.Values{}
	params.Set("g", strconv.Itoa(gameID))
	params.Set("u", user)

	var wire wireGameProgress
	if err := c.get(ctx, "API_GetGameInfoAndUserProgress.php", params, &wire); err != nil {
		return model.Game{}, err
	}
	return wire.toModel(), nil
}

// Profile returns user's public profile.
func (c *Client) Profile(ctx context.Context, user string) (model.Profile, error) {
	params := url.Values{}
	params.Set("u", user)

	var wire wireProfile
	if err := c.get(ctx, "API_GetUserProfile.php", params, &wire); err != nil {
		return model.Profile{}, err
	}
	return wire.toModel(), nil
}

// CompletionProgress returns user's per-game completion summary, which also
// carries the historical mastery count.
func (c *Client) CompletionProgress(ctx context.Context, user string) (model.Progress, error) {
	params := url.Values{}
	params.Set("u", user)
	params.Set("c", "500")

	var wire wireProgress
	if err := c.get(ctx, "API_GetUserCompletionProgress.php", params, &wire); err != nil {
		return model.Progress{}, err
	}
	return wire.toModel(), nil
}

// UnlockDistribution returns the per-game histogram of players by
// achievement count. Upstream keys the histogram by stringified counts.
func (c *Client) UnlockDistribution(ctx context.Context, gameID int) (model.UnlockDistribution, error) {
	const endpoint = "API_GetAchievementDistribution.php"
	params := url.Values{}
	params.Set("i", strconv.Itoa(gameID))
	params.Set("h", "1") // hardcore only

	var wire map[string]int
	if err := c.get(ctx, endpoint, params, &wire); err != nil {
		return model.UnlockDistribution{}, err
	}
	counts := make(map[int]int, len(wire))
	for k, v := range wire {
		tier, err := strconv.Atoi(k)
		if err != nil {
			return model.UnlockDistribution{}, &UpstreamError{Endpoint: endpoint, Err: err}
		}
		counts[tier] = v
	}
	return model.UnlockDistribution{Counts: counts}, nil
}

// GameTitle returns the plain title of a game. Used by the presence task.
func (c *Client) GameTitle(ctx context.Context, gameID int) (string, error) {
	params := url.Values{}
	params.Set("i", strconv.Itoa(gameID))

	var wire wireGameExtended
	if err := c.get(ctx, "API_GetGameExtended.php", params, &wire); err != nil {
		return "", err
	}
	return wire.Title, nil
}
