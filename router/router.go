// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/classvote/cliparse"
	"github.com/danielhkuo/classvote/handlers"
	"github.com/danielhkuo/classvote/middleware"
	"github.com/danielhkuo/classvote/teacher"
)

// NewRouter wires the teacher's HTTP API. cfg.AdminKey must be set.
func NewRouter(srv *teacher.Server, votes handlers.VoteLister, gatherer prometheus.Gatherer, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	candidatesHandler := handlers.NewCandidatesHandler(srv)
	resultsHandler := handlers.NewResultsHandler(srv, votes)
	sessionsHandler := handlers.NewSessionsHandler(srv)

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdminKey(cfg.AdminKey, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Candidates
	mux.HandleFunc("GET /candidates", middleware.WithLogging(candidatesHandler.ListCandidates))
	mux.HandleFunc("POST /candidates", admin(candidatesHandler.AddCandidate))

	// Results
	mux.HandleFunc("GET /results", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("POST /results/publish", admin(resultsHandler.PublishResults))
	mux.HandleFunc("GET /votes", admin(resultsHandler.ListVotes))

	// Connected students
	mux.HandleFunc("GET /sessions", middleware.WithLogging(sessionsHandler.ListSessions))

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("classvote teacher API v1"))
	})

	return mux
}
