package models

import "time"

// Request types

type AddCandidateRequest struct {
	Label string `json:"label"`
}

// Response types

type CandidatesResponse struct {
	Candidates []string `json:"candidates"`
}

type AddCandidateResponse struct {
	Label      string   `json:"label"`
	Candidates []string `json:"candidates"`
}

type ResultsResponse struct {
	Text  string         `json:"text"`
	Tally map[string]int `json:"tally"`
	Total int            `json:"total"`
}

type PublishResultsResponse struct {
	Text      string `json:"text"`
	Delivered int    `json:"delivered"`
}

type SessionsResponse struct {
	Count    int       `json:"count"`
	Sessions []Session `json:"sessions"`
}

type VotesResponse struct {
	Count int    `json:"count"`
	Votes []Vote `json:"votes"`
}

// Domain types

type Session struct {
	ID          string    `json:"id"`
	Remote      string    `json:"remote"`
	ConnectedAt time.Time `json:"connected_at"`
	Connected   string    `json:"connected"` // human-readable age, e.g. "3 minutes ago"
}

type Vote struct {
	Voter     string `json:"voter"`
	Candidate string `json:"candidate"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
