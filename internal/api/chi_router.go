// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelroom/reelroom/internal/middleware"
)

// Router wires handlers into the Chi routing tree.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router for the given handler and middleware factory.
func NewRouter(handler *Handler, chiMW *ChiMiddleware) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: chiMW,
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order. CORS is global so
	// OPTIONS preflight requests are answered everywhere.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// Operational endpoints. No auth, no envelope.
	r.Get("/health", router.handler.HealthLive)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitPresence())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Presence. The query endpoint and the WebSocket endpoint serve both
	// anonymous and authenticated visitors, so neither requires auth.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitPresence())
		r.Use(middleware.PrometheusMetrics)
		r.Get("/api/active-users", router.handler.ActiveUsers)
	})
	r.Get("/ws", router.handler.WebSocket)

	// Authentication. Login carries the strictest rate limit.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)
		r.Post("/logout", router.handler.Logout)
	})

	// Catalog proxy. Public read-only data, standard rate limit.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Get("/search", router.handler.Search)
		r.Get("/trending", router.handler.Trending)
		r.Get("/movie/{id}", router.handler.MovieDetail)
		r.Get("/tv/{id}", router.handler.TVDetail)
	})

	// Social features require an authenticated user.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.handler.Authenticate)

		r.Route("/discussions", func(r chi.Router) {
			r.Post("/", router.handler.CreateDiscussion)
			r.Get("/", router.handler.ListDiscussions)
			r.Get("/{id}", router.handler.GetDiscussion)
			r.Delete("/{id}", router.handler.DeleteDiscussion)
			r.Post("/{id}/comments", router.handler.CreateComment)
			r.Get("/{id}/comments", router.handler.ListComments)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Post("/", router.handler.AddToWatchlist)
			r.Get("/", router.handler.ListWatchlist)
			r.Delete("/{id}", router.handler.RemoveFromWatchlist)
		})

		r.Route("/progress", func(r chi.Router) {
			r.Put("/", router.handler.UpdateProgress)
			r.Get("/", router.handler.ListProgress)
		})
	})

	return r
}
