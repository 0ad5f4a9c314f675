// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/classvote/ledger"
	"github.com/danielhkuo/classvote/models"
	"github.com/danielhkuo/classvote/protocol"
	"github.com/danielhkuo/classvote/testutil"
)

func TestListSessions(t *testing.T) {
	srv := newTestServer(t, ledger.NewMemory(), "X")
	l := testutil.NewPipeListener()
	go srv.Serve(context.Background(), l)

	handler := NewSessionsHandler(srv)

	w := httptest.NewRecorder()
	handler.ListSessions(w, testutil.MakeRequest("GET", "/sessions", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var empty models.SessionsResponse
	testutil.AssertJSON(t, w, &empty)
	if empty.Count != 0 || len(empty.Sessions) != 0 {
		t.Errorf("Expected no sessions, got %+v", empty)
	}

	for i := 0; i < 2; i++ {
		conn, err := l.Dial()
		if err != nil {
			t.Fatalf("Dial: %v", err)
		}
		t.Cleanup(func() { conn.Close() })
		// Drain the initial candidate push
		testutil.ReadMessage(t, protocol.NewReader(conn), conn, 2*time.Second)
	}
	testutil.Eventually(t, 2*time.Second, func() bool { return srv.SessionCount() == 2 }, "two sessions")

	w = httptest.NewRecorder()
	handler.ListSessions(w, testutil.MakeRequest("GET", "/sessions", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.SessionsResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Count != 2 || len(resp.Sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %+v", resp)
	}
	for _, s := range resp.Sessions {
		if s.ID == "" {
			t.Error("Expected a session id")
		}
		if !strings.HasSuffix(s.Connected, "ago") && s.Connected != "now" {
			t.Errorf("Expected a relative age, got %q", s.Connected)
		}
	}
}
