// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/classvote/ledger"
	"github.com/danielhkuo/classvote/models"
	"github.com/danielhkuo/classvote/testutil"
)

func recordVotes(t *testing.T, store interface {
	RecordVote(ctx context.Context, voter, candidate string) (bool, error)
}, votes ...ledger.Vote) {
	t.Helper()
	for _, v := range votes {
		if _, err := store.RecordVote(context.Background(), v.Voter, v.Candidate); err != nil {
			t.Fatalf("Failed to record vote: %v", err)
		}
	}
}

func TestGetResults(t *testing.T) {
	store := ledger.New(testutil.SetupTestDB(t))
	srv := newTestServer(t, store, "X", "Y", "Z")
	handler := NewResultsHandler(srv, store)

	recordVotes(t, store,
		ledger.Vote{Voter: "alice", Candidate: "X"},
		ledger.Vote{Voter: "bob", Candidate: "Y"},
		ledger.Vote{Voter: "carol", Candidate: "X"},
	)

	w := httptest.NewRecorder()
	handler.GetResults(w, testutil.MakeRequest("GET", "/results", nil, nil))

	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.ResultsResponse
	testutil.AssertJSON(t, w, &resp)

	if resp.Total != 3 {
		t.Errorf("Expected total 3, got %d", resp.Total)
	}
	if resp.Tally["X"] != 2 || resp.Tally["Y"] != 1 {
		t.Errorf("Unexpected tally %v", resp.Tally)
	}
	want := "X: 2 votes\nY: 1 votes\nZ: 0 votes\n"
	if resp.Text != want {
		t.Errorf("Expected %q, got %q", want, resp.Text)
	}
}

func TestPublishResultsWithoutStudents(t *testing.T) {
	store := ledger.NewMemory()
	srv := newTestServer(t, store, "X")
	handler := NewResultsHandler(srv, store)
	recordVotes(t, store, ledger.Vote{Voter: "alice", Candidate: "X"})

	w := httptest.NewRecorder()
	handler.PublishResults(w, testutil.MakeRequest("POST", "/results/publish", nil, nil))

	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.PublishResultsResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Delivered != 0 {
		t.Errorf("Expected 0 deliveries, got %d", resp.Delivered)
	}
	if resp.Text != "X: 1 votes\n" {
		t.Errorf("Unexpected text %q", resp.Text)
	}
}

func TestListVotes(t *testing.T) {
	store := ledger.NewMemory()
	srv := newTestServer(t, store, "X", "Y")
	handler := NewResultsHandler(srv, store)
	recordVotes(t, store,
		ledger.Vote{Voter: "bob", Candidate: "Y"},
		ledger.Vote{Voter: "alice", Candidate: "X"},
		ledger.Vote{Voter: "alice", Candidate: "Y"}, // ignored
	)

	w := httptest.NewRecorder()
	handler.ListVotes(w, testutil.MakeRequest("GET", "/votes", nil, nil))

	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.VotesResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Count != 2 {
		t.Fatalf("Expected 2 votes, got %d", resp.Count)
	}
	if resp.Votes[0] != (models.Vote{Voter: "alice", Candidate: "X"}) {
		t.Errorf("Expected alice's first vote to stand, got %+v", resp.Votes[0])
	}
}

func TestResultsStorageUnavailable(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	store := ledger.New(conn)
	srv := newTestServer(t, store, "X")
	handler := NewResultsHandler(srv, store)
	conn.Close()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		method  string
		path    string
	}{
		{"get results", handler.GetResults, "GET", "/results"},
		{"publish results", handler.PublishResults, "POST", "/results/publish"},
		{"list votes", handler.ListVotes, "GET", "/votes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, testutil.MakeRequest(tt.method, tt.path, nil, nil))
			testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
		})
	}
}
