package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"retrobot/internal/adapters/discord"
	"retrobot/internal/aggregate"
	"retrobot/internal/colorcache"
	"retrobot/internal/notify"
	"retrobot/internal/ra"
	"retrobot/internal/schedule"
	"retrobot/internal/services/logging"
	"retrobot/internal/services/scheduler"
	"retrobot/internal/storage"
	"retrobot/internal/tasks"
	logx "retrobot/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *ConfigManager
	sup  *Supervisor

	log  *slog.Logger
	logs *logging.Service
	lx   *logx.Service

	adapter *discord.Adapter
	store   storage.Store

	sched *scheduler.Service
	notif *notify.Service

	pollTask     *tasks.Achievements
	dailyTask    *tasks.Daily
	presenceTask *tasks.Presence
}

func NewApp(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := NewConfigManager(cfgPath)
	cfg, err := cfgm.Load(ctx)
	if err != nil {
		return nil, err
	}

	logSvc, log := logging.New(loggingConfig(cfg))
	log = log.With(slog.String("comp", "app"))

	lxSvc, _ := logx.New(logx.Config{Level: cfg.Logging.Level, Console: cfg.Logging.Console})

	ad, err := discord.New(discord.Config{Token: cfg.Discord.Token}, log.With(slog.String("comp", "discord")))
	if err != nil {
		return nil, err
	}

	busyTimeout, err := parseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, lxSvc.Logger().With(logx.String("svc", "storage")))
	if err != nil {
		return nil, err
	}

	colors := colorcache.New(store, lxSvc.Logger().With(logx.String("svc", "colors")), colorcache.Options{
		CropFraction: cfg.Colors.CropFraction,
	})

	raTimeout, err := parseDurationField("retroachievements.timeout", cfg.RetroAchievements.Timeout)
	if err != nil {
		return nil, err
	}
	api, err := ra.New(ra.Config{
		Username:   cfg.RetroAchievements.Username,
		APIKey:     cfg.RetroAchievements.APIKey,
		BaseURL:    cfg.RetroAchievements.BaseURL,
		Timeout:    raTimeout,
		RatePerSec: cfg.RetroAchievements.RatePerSec,
	})
	if err != nil {
		return nil, err
	}

	engine := aggregate.New(api, cfg.Tasks.Achievements.IntervalMinutes, log.With(slog.String("comp", "engine")))

	schedDefault, err := parseDurationField("scheduler.default_timeout", cfg.Scheduler.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	schedSvc := scheduler.New(scheduler.Config{
		Workers:        cfg.Scheduler.Workers,
		DefaultTimeout: schedDefault,
		HistorySize:    cfg.Scheduler.HistorySize,
		Timezone:       cfg.Scheduler.Timezone,
	}, log.With(slog.String("comp", "scheduler")))

	renderer := notify.NewRenderer(colors, notify.RenderOptions{
		Location: schedSvc.Location(),
	})
	notifSvc := notify.New(ad, renderer, notify.Config{
		RatePerSec: cfg.Discord.RatePerSec,
	}, log.With(slog.String("comp", "notify")))

	// Roster reads go through the manager so hot reloads take effect on the
	// next cycle without re-registering anything.
	users := func() []string {
		if c := cfgm.Get(); c != nil {
			return c.Users
		}
		return nil
	}

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		lx:      lxSvc,
		adapter: ad,
		store:   store,
		sched:   schedSvc,
		notif:   notifSvc,
	}
	a.pollTask = tasks.NewAchievements(engine, notifSvc, users,
		cfg.Discord.Channels.Achievements, cfg.Discord.Channels.Mastery,
		log.With(slog.String("comp", "poll")))
	a.dailyTask = tasks.NewDaily(api, renderer, notifSvc, users,
		cfg.Discord.Channels.Daily, log.With(slog.String("comp", "daily")))
	a.presenceTask = tasks.NewPresence(api, ad, users,
		log.With(slog.String("comp", "presence")))
	return a, nil
}

// Done is closed when the supervisor context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, a.log)
	cfg := a.cfgm.Get()

	a.cfgm.SetLogger(a.log.With(slog.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, c *Config) error { return c.Validate() })

	if err := a.adapter.Start(a.sup.Context()); err != nil {
		return err
	}
	a.logs.SetSender(a.adapter)

	a.sched.Start(a.sup.Context())
	if err := a.registerTasks(cfg); err != nil {
		return err
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
		return nil
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// registerTasks aligns the poll cycle to the next wall-clock interval
// boundary and the daily overview to the next midnight, then keeps both on a
// fixed period from there.
func (a *App) registerTasks(cfg *Config) error {
	iv := cfg.Tasks.Achievements.IntervalMinutes
	interval := time.Duration(iv) * time.Minute
	pollTimeout, err := parseDurationOrDefault("tasks.achievements.timeout", cfg.Tasks.Achievements.Timeout, 2*time.Minute)
	if err != nil {
		return err
	}

	loc := a.sched.Location()
	delay, err := schedule.NextBoundaryDelay(time.Now().In(loc), iv)
	if err != nil {
		return err
	}
	a.log.Info("poll cycle aligned",
		slog.Int("interval_minutes", iv), slog.Duration("first_in", delay))
	alignThenRepeat(a.sched, a.log, "achievements", delay, interval, pollTimeout, a.pollTask.Run)

	if cfg.Tasks.Daily.Enabled {
		dailyTimeout, err := parseDurationOrDefault("tasks.daily.timeout", cfg.Tasks.Daily.Timeout, 5*time.Minute)
		if err != nil {
			return err
		}
		mid := schedule.NextMidnightDelay(time.Now().In(loc))
		a.log.Info("daily overview aligned", slog.Duration("first_in", mid))
		alignThenRepeat(a.sched, a.log, "daily", mid, 24*time.Hour, dailyTimeout, a.dailyTask.Run)
	}

	if cfg.Tasks.Presence.Enabled {
		presenceInterval, err := parseDurationOrDefault("tasks.presence.interval", cfg.Tasks.Presence.Interval, 2*time.Minute)
		if err != nil {
			return err
		}
		presenceTimeout, err := parseDurationOrDefault("tasks.presence.timeout", cfg.Tasks.Presence.Timeout, 30*time.Second)
		if err != nil {
			return err
		}
		if _, err := a.sched.AddInterval("presence", presenceInterval, presenceTimeout, a.presenceTask.Run); err != nil {
			return err
		}
	}
	return nil
}

// alignThenRepeat runs job once after delay, then on a fixed period. The
// period is registered before the first run so a failed or panicking first
// cycle cannot leave the job unscheduled.
func alignThenRepeat(s *scheduler.Service, log *slog.Logger, name string, delay, interval, timeout time.Duration, job func(ctx context.Context) error) {
	s.After(name, delay, timeout, func(c context.Context) error {
		if _, err := s.AddInterval(name, interval, timeout, job); err != nil {
			log.Error("registering schedule failed", slog.String("task", name), slog.Any("err", err))
		}
		return job(c)
	})
}

func (a *App) reloadLoop(ctx context.Context, sub chan *Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the newest config.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						cfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			a.logs.Apply(loggingConfig(cfg))
			a.lx.Apply(logx.Config{Level: cfg.Logging.Level, Console: cfg.Logging.Console})
			a.log.Info("config reloaded")
		}
	}
}

func loggingConfig(cfg *Config) logging.Config {
	return logging.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logging.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Discord: logging.DiscordConfig{
			Enabled:    cfg.Logging.Discord.Enabled,
			ChannelID:  cfg.Discord.Channels.Log,
			MinLevel:   cfg.Logging.Discord.MinLevel,
			RatePerSec: cfg.Logging.Discord.RatePerSec,
		},
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// step bounds each shutdown phase so one component cannot stall the stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem > 0 && rem < max {
					max = rem
				}
			}
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", slog.String("name", name), slog.Any("err", err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", slog.String("name", name))
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("storage", 1*time.Second, func(context.Context) error { return a.store.Close() })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.logs.Close()
	_ = a.lx.Close()
	a.log.Info("stopped")
	return nil
}
