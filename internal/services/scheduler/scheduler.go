package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Workers        int
	DefaultTimeout time.Duration
	HistorySize    int
	Timezone       string // IANA TZ, e.g. "Europe/Amsterdam"
}

type HistoryItem struct {
	ID       string
	Name     string
	Started  time.Time
	Duration time.Duration
	Error    string
}

type task struct {
	id      string
	name    string
	timeout time.Duration
	run     func(ctx context.Context) error
}

type scheduleDef struct {
	id      string
	name    string
	spec    string // cron spec or @every
	timeout time.Duration
	job     func(ctx context.Context) error
}

type Service struct {
	mu sync.Mutex

	log *slog.Logger
	cfg Config
	loc *time.Location

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	// qmu guards queue separately: cron job closures enqueue while Stop may
	// hold mu waiting for them to drain.
	qmu    sync.Mutex
	queue  chan task
	stopCh chan struct{}

	// one-time timers (startup alignment delays)
	tmu    sync.Mutex
	timers map[string]*time.Timer

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, log *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		log:    log,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		timers: map[string]*time.Timer{},
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	queue := make(chan task, 64)
	s.qmu.Lock()
	s.queue = queue
	s.qmu.Unlock()

	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	// re-register existing defs (if any)
	for _, d := range s.defs {
		s.addCronLocked(d)
	}

	for i := 0; i < workers; i++ {
		go s.worker(ctx, s.stopCh, queue)
	}
	s.c.Start()
	s.log.Info("scheduler started", slog.Int("workers", workers), slog.String("tz", loc.String()))
}

// Stop halts cron dispatch and alignment timers. In-flight task runs are
// allowed to finish; they are not preempted.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	if s.c != nil {
		select {
		case <-s.c.Stop().Done():
		case <-ctx.Done():
		}
		s.c = nil
	}

	s.tmu.Lock()
	for _, t := range s.timers {
		_ = t.Stop()
	}
	s.timers = map[string]*time.Timer{}
	s.tmu.Unlock()

	s.log.Info("scheduler stopped")
}

// AddInterval registers a job that fires every interval.
func (s *Service) AddInterval(name string, every time.Duration, timeout time.Duration, job func(ctx context.Context) error) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return "", errors.New("scheduler not started")
	}
	if every <= 0 {
		return "", fmt.Errorf("interval for %s must be positive", name)
	}
	id := fmt.Sprintf("interval:%d", time.Now().UnixNano())
	spec := fmt.Sprintf("@every %s", every.String())
	d := scheduleDef{id: id, name: name, spec: spec, timeout: s.resolveTimeout(timeout), job: job}
	s.defs = append(s.defs, d)
	return id, s.addCronLocked(d)
}

// After runs a job once after delay. Used for startup alignment: run the
// first cycle at the boundary, then register the periodic schedule from
// inside the job.
func (s *Service) After(name string, delay time.Duration, timeout time.Duration, job func(ctx context.Context) error) {
	if delay < 0 {
		delay = 0
	}
	s.tmu.Lock()
	defer s.tmu.Unlock()
	if t, ok := s.timers[name]; ok {
		_ = t.Stop()
	}
	s.timers[name] = time.AfterFunc(delay, func() {
		s.tmu.Lock()
		delete(s.timers, name)
		s.tmu.Unlock()
		s.enqueue(task{id: "after:" + name, name: name, timeout: s.resolveTimeout(timeout), run: job})
	})
}

func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) addCronLocked(d scheduleDef) error {
	_, err := s.c.AddFunc(d.spec, func() {
		s.enqueue(task{id: d.id, name: d.name, timeout: d.timeout, run: d.job})
	})
	return err
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", slog.String("tz", tz), slog.String("err", err.Error()))
		return time.Local
	}
	return loc
}

// Location returns the scheduler's effective timezone.
func (s *Service) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loc != nil {
		return s.loc
	}
	return s.loadLocationLocked()
}

func (s *Service) resolveTimeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return s.cfg.DefaultTimeout
}

func (s *Service) enqueue(t task) {
	s.qmu.Lock()
	q := s.queue
	s.qmu.Unlock()
	if q == nil {
		return
	}
	select {
	case q <- t:
	default:
		s.log.Warn("scheduler queue full, dropping task", slog.String("task", t.name))
	}
}

func (s *Service) worker(ctx context.Context, stopCh chan struct{}, queue chan task) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case t := <-queue:
			s.execOne(ctx, t)
		}
	}
}

// execOne is the failure-isolation boundary: a task's error or panic is
// logged and recorded, never propagated.
func (s *Service) execOne(ctx context.Context, t task) {
	start := time.Now()
	runCtx := ctx
	var cancel func()
	if t.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				s.log.Error("task panicked",
					slog.String("task", t.name), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			}
		}()
		err = t.run(runCtx)
	}()

	item := HistoryItem{
		ID:       t.id,
		Name:     t.name,
		Started:  start,
		Duration: time.Since(start),
	}
	if err != nil {
		item.Error = err.Error()
		s.log.Warn("task failed", slog.String("task", t.name), slog.String("err", err.Error()))
	} else {
		s.log.Info("task ok", slog.String("task", t.name), slog.Duration("took", item.Duration))
	}

	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.history = append(s.history, item)
	if s.cfg.HistorySize > 0 && len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}
}
