package colorcache

import (
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	logx "retrobot/pkg/logx"
)

type memStore struct {
	mu   sync.Mutex
	m    map[string]string
	puts int
}

func newMemStore() *memStore { return &memStore{m: map[string]string{}} }

func (s *memStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *memStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	s.puts++
	return nil
}

func TestGetOrComputeCacheHitSkipsFetch(t *testing.T) {
	store := newMemStore()
	store.m["http://example/badge.png"] = "4660" // 0x1234

	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches++
	}))
	defer srv.Close()

	svc := New(store, logx.Nop(), Options{HTTPClient: srv.Client()})
	if got := svc.GetOrCompute(context.Background(), "http://example/badge.png"); got != 0x1234 {
		t.Fatalf("color = %#x, want cached 0x1234", got)
	}
	if fetches != 0 {
		t.Fatal("cache hit must not fetch")
	}
}

func TestGetOrComputeMissFetchesOnceThenCaches(t *testing.T) {
	store := newMemStore()
	img := encodePNG(t, solid(16, 16, color.RGBA{R: 10, G: 200, B: 30, A: 255}))

	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches++
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	svc := New(store, logx.Nop(), Options{HTTPClient: srv.Client()})
	url := srv.URL + "/badge.png"

	want := 10<<16 | 200<<8 | 30
	if got := svc.GetOrCompute(context.Background(), url); got != want {
		t.Fatalf("color = %#06x, want %#06x", got, want)
	}
	if got := svc.GetOrCompute(context.Background(), url); got != want {
		t.Fatalf("second call = %#06x, want %#06x", got, want)
	}
	if fetches != 1 {
		t.Fatalf("fetched %d times, want 1 (second call served from cache)", fetches)
	}
	if v := store.m[url]; v != strconv.Itoa(want) {
		t.Fatalf("stored value = %q, want %q", v, strconv.Itoa(want))
	}
}

func TestGetOrComputeFailureDoesNotPoisonCache(t *testing.T) {
	store := newMemStore()
	img := encodePNG(t, solid(16, 16, color.RGBA{R: 200, G: 20, B: 20, A: 255}))

	var mu sync.Mutex
	broken := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if broken {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	svc := New(store, logx.Nop(), Options{HTTPClient: srv.Client()})
	url := srv.URL + "/badge.png"

	if got := svc.GetOrCompute(context.Background(), url); got != DefaultFallback {
		t.Fatalf("failed fetch = %#06x, want fallback %#06x", got, DefaultFallback)
	}
	if store.puts != 0 {
		t.Fatal("failed fetch must not be cached")
	}

	mu.Lock()
	broken = false
	mu.Unlock()

	want := 200<<16 | 20<<8 | 20
	if got := svc.GetOrCompute(context.Background(), url); got != want {
		t.Fatalf("recovered fetch = %#06x, want %#06x", got, want)
	}
}

func TestGetOrComputeMalformedEntryRecomputed(t *testing.T) {
	store := newMemStore()
	img := encodePNG(t, solid(16, 16, color.RGBA{R: 40, G: 40, B: 240, A: 255}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	url := srv.URL + "/badge.png"
	store.m[url] = "not-a-number"

	svc := New(store, logx.Nop(), Options{HTTPClient: srv.Client()})
	want := 40<<16 | 40<<8 | 240
	if got := svc.GetOrCompute(context.Background(), url); got != want {
		t.Fatalf("color = %#06x, want recomputed %#06x", got, want)
	}
}

func TestGetOrComputeEmptyURL(t *testing.T) {
	svc := New(newMemStore(), logx.Nop(), Options{})
	if got := svc.GetOrCompute(context.Background(), ""); got != DefaultFallback {
		t.Fatalf("empty url = %#06x, want fallback", got)
	}
}
