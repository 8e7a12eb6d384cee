package core

import (
	"fmt"
	"strings"
	"time"
)

// ConfigurationError reports an invalid or missing configuration value.
// Fatal at startup; during hot reload the offending config is rejected and
// the previous one stays active.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

type Config struct {
	RetroAchievements RAConfig        `json:"retroachievements"`
	Discord           DiscordConfig   `json:"discord"`
	Users             []string        `json:"users"`
	Tasks             TasksConfig     `json:"tasks"`
	Scheduler         SchedulerConfig `json:"scheduler"`
	Logging           LoggingConfig   `json:"logging"`
	Storage           StorageConfig   `json:"storage"`
	Colors            ColorsConfig    `json:"colors"`
}

type RAConfig struct {
	Username string `json:"username"`
	APIKey   string `json:"api_key"`
	// BaseURL overrides the API host; empty selects the public one.
	BaseURL string `json:"base_url,omitempty"`
	// Timeout is a Go duration string (e.g. "15s").
	Timeout    string  `json:"timeout,omitempty"`
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
}

type DiscordConfig struct {
	Token      string         `json:"token"`
	RatePerSec float64        `json:"rate_per_sec,omitempty"`
	Channels   ChannelsConfig `json:"channels"`
}

// ChannelsConfig routes each notification family. Mastery falls back to the
// achievements channel when unset.
type ChannelsConfig struct {
	Achievements string `json:"achievements"`
	Mastery      string `json:"mastery,omitempty"`
	Daily        string `json:"daily,omitempty"`
	Log          string `json:"log,omitempty"`
}

type TasksConfig struct {
	Achievements AchievementsTask `json:"achievements"`
	Daily        DailyTask        `json:"daily"`
	Presence     PresenceTask     `json:"presence"`
}

type AchievementsTask struct {
	// IntervalMinutes is both the poll period and the lookback window.
	// Cycles are aligned to wall-clock multiples of the interval.
	IntervalMinutes int    `json:"interval_minutes"`
	Timeout         string `json:"timeout,omitempty"`
}

type DailyTask struct {
	Enabled bool   `json:"enabled"`
	Timeout string `json:"timeout,omitempty"`
}

type PresenceTask struct {
	Enabled  bool   `json:"enabled"`
	Interval string `json:"interval,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

type SchedulerConfig struct {
	Workers int `json:"workers"`
	// DefaultTimeout is a Go duration string. "0s" disables the global
	// default timeout.
	DefaultTimeout string `json:"default_timeout"`
	HistorySize    int    `json:"history_size"`
	Timezone       string `json:"timezone,omitempty"`
}

type LoggingConfig struct {
	Level   string         `json:"level"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file"`
	Discord LoggingDiscord `json:"discord"`
}
type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}
type LoggingDiscord struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type ColorsConfig struct {
	CropFraction float64 `json:"crop_fraction,omitempty"`
}

// Validate checks everything the bot cannot run without. It is used both at
// startup and as the hot-reload gate.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RetroAchievements.Username) == "" {
		return &ConfigurationError{Field: "retroachievements.username", Reason: "required"}
	}
	if strings.TrimSpace(c.RetroAchievements.APIKey) == "" {
		return &ConfigurationError{Field: "retroachievements.api_key", Reason: "required"}
	}
	if c.RetroAchievements.RatePerSec < 0 {
		return &ConfigurationError{Field: "retroachievements.rate_per_sec", Reason: "must be >= 0"}
	}
	if _, err := parseDurationField("retroachievements.timeout", c.RetroAchievements.Timeout); err != nil {
		return err
	}

	if strings.TrimSpace(c.Discord.Token) == "" {
		return &ConfigurationError{Field: "discord.token", Reason: "required"}
	}
	if strings.TrimSpace(c.Discord.Channels.Achievements) == "" {
		return &ConfigurationError{Field: "discord.channels.achievements", Reason: "required"}
	}
	if c.Tasks.Daily.Enabled && strings.TrimSpace(c.Discord.Channels.Daily) == "" {
		return &ConfigurationError{Field: "discord.channels.daily", Reason: "required when tasks.daily is enabled"}
	}
	if c.Logging.Discord.Enabled && strings.TrimSpace(c.Discord.Channels.Log) == "" {
		return &ConfigurationError{Field: "discord.channels.log", Reason: "required when logging.discord is enabled"}
	}

	if len(c.Users) == 0 {
		return &ConfigurationError{Field: "users", Reason: "at least one account is required"}
	}
	for i, u := range c.Users {
		if strings.TrimSpace(u) == "" {
			return &ConfigurationError{Field: fmt.Sprintf("users[%d]", i), Reason: "must not be empty"}
		}
	}

	iv := c.Tasks.Achievements.IntervalMinutes
	if iv < 1 || iv > 60 {
		return &ConfigurationError{Field: "tasks.achievements.interval_minutes", Reason: "must be in 1..60"}
	}
	if 60%iv != 0 {
		return &ConfigurationError{Field: "tasks.achievements.interval_minutes", Reason: "must divide 60 so cycles align to the hour"}
	}
	if _, err := parseDurationField("tasks.achievements.timeout", c.Tasks.Achievements.Timeout); err != nil {
		return err
	}
	if _, err := parseDurationField("tasks.daily.timeout", c.Tasks.Daily.Timeout); err != nil {
		return err
	}
	if _, err := parseDurationField("tasks.presence.interval", c.Tasks.Presence.Interval); err != nil {
		return err
	}
	if _, err := parseDurationField("tasks.presence.timeout", c.Tasks.Presence.Timeout); err != nil {
		return err
	}

	if c.Scheduler.Workers < 0 {
		return &ConfigurationError{Field: "scheduler.workers", Reason: "must be >= 0"}
	}
	if _, err := parseDurationField("scheduler.default_timeout", c.Scheduler.DefaultTimeout); err != nil {
		return err
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return &ConfigurationError{Field: "scheduler.timezone", Reason: fmt.Sprintf("invalid %q: %v", tz, err)}
		}
	}

	if _, err := parseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if cf := c.Colors.CropFraction; cf < 0 || cf > 1 {
		return &ConfigurationError{Field: "colors.crop_fraction", Reason: "must be in 0..1"}
	}
	return nil
}

func parseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, &ConfigurationError{Field: path, Reason: fmt.Sprintf("invalid duration %q", raw)}
	}
	if d < 0 {
		return 0, &ConfigurationError{Field: path, Reason: "duration must be >= 0"}
	}
	return d, nil
}

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := parseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
