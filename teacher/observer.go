// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package teacher

import "log/slog"

// VoteStatus is the local outcome of one vote frame. It is never sent to
// the student.
type VoteStatus int

const (
	StatusAccepted VoteStatus = iota
	StatusDuplicate
	StatusInvalidCandidate
	StatusStorageError
)

func (s VoteStatus) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusDuplicate:
		return "duplicate"
	case StatusInvalidCandidate:
		return "invalid_candidate"
	case StatusStorageError:
		return "storage_error"
	default:
		return "unknown"
	}
}

// VoteEvent is delivered to the Observer after each vote frame.
type VoteEvent struct {
	Status    VoteStatus
	Voter     string
	Candidate string
	Err       error // StatusStorageError only
}

// Message is the status line shown to the teacher.
func (e VoteEvent) Message() string {
	switch e.Status {
	case StatusAccepted:
		return "Vote received from " + e.Voter
	case StatusDuplicate:
		return "Duplicate vote from " + e.Voter
	case StatusInvalidCandidate:
		return "Invalid candidate from " + e.Voter
	default:
		return "Error recording vote from " + e.Voter
	}
}

// Observer receives vote outcomes, one at a time, in the owner's context.
type Observer interface {
	VoteRecorded(VoteEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(VoteEvent)

func (f ObserverFunc) VoteRecorded(e VoteEvent) { f(e) }

// LogObserver logs every outcome.
type LogObserver struct{}

func (LogObserver) VoteRecorded(e VoteEvent) {
	if e.Err != nil {
		slog.Error(e.Message(), "voter", e.Voter, "candidate", e.Candidate, "error", e.Err)
		return
	}
	slog.Info(e.Message(), "status", e.Status.String(), "voter", e.Voter, "candidate", e.Candidate)
}
