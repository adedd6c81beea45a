// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

// Package tmdb provides the client for The Movie Database API. Every call
// goes through a token-bucket rate limiter and a circuit breaker, with a
// Badger-backed read-through cache in front. A TMDB outage therefore degrades
// to cached metadata instead of cascading into request timeouts.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/reelroom/reelroom/internal/cache"
	"github.com/reelroom/reelroom/internal/config"
	"github.com/reelroom/reelroom/internal/logging"
	"github.com/reelroom/reelroom/internal/metrics"
	"github.com/reelroom/reelroom/internal/models"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("tmdb: API key not configured")

// ErrUpstream is returned for non-2xx TMDB responses.
var ErrUpstream = errors.New("tmdb: upstream error")

const breakerName = "tmdb-api"

// Client talks to the TMDB v3 API.
type Client struct {
	cfg        config.TMDBConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[[]byte]
	cache      *cache.Cache
}

// New creates a TMDB client. The cache may be nil, in which case every call
// hits the API.
func New(cfg config.TMDBConfig, c *cache.Cache) *Client {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)),
		cb:         cb,
		cache:      c,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// SearchMulti searches movies and TV shows by title.
func (c *Client) SearchMulti(ctx context.Context, query string, page int) (*models.TMDBSearchResponse, bool, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))

	key := fmt.Sprintf("tmdb:search:%s:%d", query, page)
	body, cached, err := c.fetch(ctx, "/search/multi", params, key)
	if err != nil {
		return nil, false, err
	}

	var resp models.TMDBSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &resp, cached, nil
}

// MovieDetail returns detail metadata for a movie.
func (c *Client) MovieDetail(ctx context.Context, id int64) (*models.TMDBDetail, bool, error) {
	return c.detail(ctx, "movie", id)
}

// TVDetail returns detail metadata for a TV show.
func (c *Client) TVDetail(ctx context.Context, id int64) (*models.TMDBDetail, bool, error) {
	return c.detail(ctx, "tv", id)
}

// Trending returns the weekly trending titles.
func (c *Client) Trending(ctx context.Context, mediaType string) (*models.TMDBSearchResponse, bool, error) {
	key := "tmdb:trending:" + mediaType
	body, cached, err := c.fetch(ctx, fmt.Sprintf("/trending/%s/week", mediaType), url.Values{}, key)
	if err != nil {
		return nil, false, err
	}

	var resp models.TMDBSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, fmt.Errorf("failed to decode trending response: %w", err)
	}
	return &resp, cached, nil
}

func (c *Client) detail(ctx context.Context, mediaType string, id int64) (*models.TMDBDetail, bool, error) {
	key := fmt.Sprintf("tmdb:%s:%d", mediaType, id)
	body, cached, err := c.fetch(ctx, fmt.Sprintf("/%s/%d", mediaType, id), url.Values{}, key)
	if err != nil {
		return nil, false, err
	}

	var detail models.TMDBDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, false, fmt.Errorf("failed to decode detail response: %w", err)
	}
	return &detail, cached, nil
}

// fetch returns the response body for a TMDB path, serving from cache when
// possible. The bool result reports whether the response came from cache.
func (c *Client) fetch(ctx context.Context, path string, params url.Values, cacheKey string) ([]byte, bool, error) {
	if !c.Configured() {
		return nil, false, ErrNotConfigured
	}

	if c.cache != nil {
		if body, err := c.cache.Get(cacheKey); err == nil {
			metrics.TMDBCacheHits.Inc()
			return body, true, nil
		}
		metrics.TMDBCacheMisses.Inc()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.doRequest(ctx, path, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Str("path", path).Msg("TMDB request rejected by circuit breaker")
		}
		return nil, false, err
	}

	if c.cache != nil {
		if err := c.cache.Set(cacheKey, body, c.cfg.CacheTTL); err != nil {
			logging.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache TMDB response")
		}
	}

	return body, false, nil
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("api_key", c.cfg.APIKey)
	reqURL := c.cfg.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.TMDBRequests.WithLabelValues(path, "error").Inc()
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.TMDBRequests.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d for %s", ErrUpstream, resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
