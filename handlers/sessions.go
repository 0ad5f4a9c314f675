// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/classvote/middleware"
	"github.com/danielhkuo/classvote/models"
	"github.com/danielhkuo/classvote/teacher"
)

type SessionsHandler struct {
	srv *teacher.Server
}

func NewSessionsHandler(srv *teacher.Server) *SessionsHandler {
	return &SessionsHandler{srv: srv}
}

// ListSessions handles GET /sessions
func (h *SessionsHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	infos := h.srv.Sessions()

	resp := models.SessionsResponse{Count: len(infos), Sessions: make([]models.Session, 0, len(infos))}
	for _, s := range infos {
		resp.Sessions = append(resp.Sessions, models.Session{
			ID:          s.ID,
			Remote:      s.Remote,
			ConnectedAt: s.ConnectedAt,
			Connected:   humanize.Time(s.ConnectedAt),
		})
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}
