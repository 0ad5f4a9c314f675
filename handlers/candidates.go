// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/classvote/middleware"
	"github.com/danielhkuo/classvote/models"
	"github.com/danielhkuo/classvote/teacher"
)

type CandidatesHandler struct {
	srv *teacher.Server
}

func NewCandidatesHandler(srv *teacher.Server) *CandidatesHandler {
	return &CandidatesHandler{srv: srv}
}

// ListCandidates handles GET /candidates
func (h *CandidatesHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, models.CandidatesResponse{
		Candidates: h.srv.Candidates(),
	})
}

// AddCandidate handles POST /candidates
// Appends the label and pushes the new list to every connected student
func (h *CandidatesHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	err := h.srv.AddCandidate(req.Label)
	switch {
	case errors.Is(err, teacher.ErrEmptyCandidate), errors.Is(err, teacher.ErrInvalidCandidate):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, teacher.ErrDuplicateCandidate):
		middleware.ErrorResponse(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, teacher.ErrServerClosed):
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		slog.Error("failed to add candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add candidate")
		return
	}

	candidates := h.srv.Candidates()
	middleware.JSONResponse(w, http.StatusCreated, models.AddCandidateResponse{
		Label:      candidates[len(candidates)-1],
		Candidates: candidates,
	})
}
