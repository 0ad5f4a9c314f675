// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/classvote/ledger"
	"github.com/danielhkuo/classvote/middleware"
	"github.com/danielhkuo/classvote/models"
	"github.com/danielhkuo/classvote/teacher"
)

// VoteLister lists every recorded vote
type VoteLister interface {
	Votes(ctx context.Context) ([]ledger.Vote, error)
}

type ResultsHandler struct {
	srv   *teacher.Server
	votes VoteLister
}

func NewResultsHandler(srv *teacher.Server, votes VoteLister) *ResultsHandler {
	return &ResultsHandler{srv: srv, votes: votes}
}

// GetResults handles GET /results
// Renders the current tally without sending it to students
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	tally, err := h.srv.Tally(r.Context())
	if err != nil {
		storageError(w, "failed to tally votes", err)
		return
	}

	total := 0
	for _, n := range tally {
		total += n
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		Text:  teacher.RenderResults(h.srv.Candidates(), tally),
		Tally: tally,
		Total: total,
	})
}

// PublishResults handles POST /results/publish
// Broadcasts a RESULTS frame to every connected student
func (h *ResultsHandler) PublishResults(w http.ResponseWriter, r *http.Request) {
	text, delivered, err := h.srv.PublishResults(r.Context())
	if err != nil {
		storageError(w, "failed to publish results", err)
		return
	}

	slog.Info("results published", "delivered", delivered)
	middleware.JSONResponse(w, http.StatusOK, models.PublishResultsResponse{
		Text:      text,
		Delivered: delivered,
	})
}

// ListVotes handles GET /votes (admin)
func (h *ResultsHandler) ListVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := h.votes.Votes(r.Context())
	if err != nil {
		storageError(w, "failed to list votes", err)
		return
	}

	resp := models.VotesResponse{Count: len(votes), Votes: make([]models.Vote, 0, len(votes))}
	for _, v := range votes {
		resp.Votes = append(resp.Votes, models.Vote{Voter: v.Voter, Candidate: v.Candidate})
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

func storageError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	if errors.Is(err, ledger.ErrUnavailable) {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Vote storage unavailable")
		return
	}
	middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
}
