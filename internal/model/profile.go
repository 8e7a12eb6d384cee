package model

import (
	"fmt"
	"time"
)

// Profile is a tracked account's public profile, fetched once per cycle.
type Profile struct {
	Name        string
	AvatarURL   string
	MemberSince string
	Motto       string

	TotalPoints         int
	TotalSoftcorePoints int
	TotalTruePoints     int

	LastGameID   int
	RichPresence string
}

func (p Profile) URL() string {
	if p.Name == "" {
		return BaseURL
	}
	return fmt.Sprintf("%s/user/%s", BaseURL, p.Name)
}

// AvatarBustURL appends a timestamp query so chat clients re-fetch the avatar
// instead of serving a stale cached copy.
func (p Profile) AvatarBustURL(now time.Time) string {
	if p.AvatarURL == "" {
		return ""
	}
	return fmt.Sprintf("%s?timestamp=%d", p.AvatarURL, now.Unix())
}
