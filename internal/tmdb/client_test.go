// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package tmdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reelroom/reelroom/internal/cache"
	"github.com/reelroom/reelroom/internal/config"
	"github.com/reelroom/reelroom/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := cache.New(config.CacheConfig{InMemory: true})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	client := New(config.TMDBConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		Timeout:   5 * time.Second,
		RateLimit: 100,
		CacheTTL:  time.Minute,
	}, c)
	return client, srv
}

func TestSearchMulti(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/search/multi" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Error("missing api_key parameter")
		}
		if r.URL.Query().Get("query") != "matrix" {
			t.Errorf("query = %q, want matrix", r.URL.Query().Get("query"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":603,"media_type":"movie","title":"The Matrix"}],"total_pages":1,"total_results":1}`))
	}))

	resp, cached, err := client.SearchMulti(context.Background(), "matrix", 1)
	if err != nil {
		t.Fatalf("SearchMulti: %v", err)
	}
	if cached {
		t.Error("first call must not be cached")
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != 603 {
		t.Errorf("unexpected results: %+v", resp.Results)
	}

	// Second call is served from cache without hitting the server
	resp2, cached2, err := client.SearchMulti(context.Background(), "matrix", 1)
	if err != nil {
		t.Fatalf("SearchMulti (cached): %v", err)
	}
	if !cached2 {
		t.Error("second call must be cached")
	}
	if resp2.Results[0].Title != "The Matrix" {
		t.Errorf("cached result mismatch: %+v", resp2.Results)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls.Load())
	}
}

func TestMovieDetail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":603,"title":"The Matrix","runtime":136,"genres":[{"id":878,"name":"Science Fiction"}]}`))
	}))

	detail, _, err := client.MovieDetail(context.Background(), 603)
	if err != nil {
		t.Fatalf("MovieDetail: %v", err)
	}
	if detail.Runtime != 136 {
		t.Errorf("runtime = %d, want 136", detail.Runtime)
	}
	if len(detail.Genres) != 1 || detail.Genres[0].Name != "Science Fiction" {
		t.Errorf("unexpected genres: %+v", detail.Genres)
	}
}

func TestUpstreamErrorNotCached(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, _, err := client.TVDetail(context.Background(), 1399)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}

	// Failure must not be cached; a retry hits the server again
	_, _, err = client.TVDetail(context.Background(), 1399)
	if err == nil {
		t.Fatal("expected error on retry")
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 upstream calls, got %d", calls.Load())
	}
}

func TestNotConfigured(t *testing.T) {
	client := New(config.TMDBConfig{
		BaseURL:   "http://127.0.0.1:1",
		Timeout:   time.Second,
		RateLimit: 10,
	}, nil)

	if client.Configured() {
		t.Error("client without API key must report unconfigured")
	}
	_, _, err := client.SearchMulti(context.Background(), "matrix", 1)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestTrending(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trending/movie/week" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[],"total_pages":0,"total_results":0}`))
	}))

	resp, _, err := client.Trending(context.Background(), "movie")
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if resp.Page != 1 {
		t.Errorf("page = %d, want 1", resp.Page)
	}
}
