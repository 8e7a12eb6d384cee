package colorcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	logx "retrobot/pkg/logx"
)

// DefaultFallback is the neutral embed color used when a badge cannot be
// fetched or decoded.
const DefaultFallback = 0x5865F2

const maxImageBytes = 8 << 20

// Store is the persistent url -> color mapping. Implemented by
// internal/storage.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
}

type Options struct {
	HTTPClient   *http.Client
	CropFraction float64
	Fallback     int // 0 means DefaultFallback
}

// Service memoizes extracted colors by source URL. Once a color is stored it
// is never recomputed; failed fetches are not stored, so a flaky URL can be
// retried on a later call.
type Service struct {
	store Store
	http  *http.Client
	log   logx.Logger

	crop     float64
	fallback int
}

func New(store Store, log logx.Logger, opts Options) *Service {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	crop := opts.CropFraction
	if crop <= 0 || crop > 1 {
		crop = DefaultCropFraction
	}
	fallback := opts.Fallback
	if fallback == 0 {
		fallback = DefaultFallback
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, http: hc, log: log, crop: crop, fallback: fallback}
}

// Fallback returns the configured neutral color.
func (s *Service) Fallback() int { return s.fallback }

// GetOrCompute returns the cached color for url, computing and storing it on
// a miss. Any fetch or decode failure yields the fallback color and leaves
// the cache untouched.
func (s *Service) GetOrCompute(ctx context.Context, url string) int {
	if url == "" {
		return s.fallback
	}

	if v, ok, err := s.store.Get(ctx, url); err != nil {
		s.log.Warn("color cache read failed", logx.String("url", url), logx.Err(err))
	} else if ok {
		if c, err := strconv.Atoi(v); err == nil {
			return c
		}
		s.log.Warn("discarding malformed color cache entry", logx.String("url", url), logx.String("value", v))
	}

	data, err := s.fetch(ctx, url)
	if err != nil {
		s.log.Debug("badge fetch failed", logx.String("url", url), logx.Err(err))
		return s.fallback
	}
	color, err := Extract(data, s.crop)
	if err != nil {
		s.log.Debug("badge decode failed", logx.String("url", url), logx.Err(err))
		return s.fallback
	}

	if err := s.store.Put(ctx, url, strconv.Itoa(color)); err != nil {
		s.log.Warn("color cache write failed", logx.String("url", url), logx.Err(err))
	}
	return color
}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("colorcache: fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}
