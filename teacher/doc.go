// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package teacher implements the Teacher role: a broadcast server that owns the
candidate list, accepts student sessions and tallies their votes.

# Lifecycle

	srv, err := teacher.New(store, teacher.Options{Candidates: []string{"X", "Y"}})
	go srv.Serve(ctx, listener)  // Idle -> Listening
	...
	srv.Close()                  // Listening -> Stopped

Serve runs the accept loop. Every accepted connection becomes a ClientSession
in the Registry and immediately receives the current CANDIDATES frame. Close
closes the listener and every session, which ends their read loops.

# Votes

Each session's read loop decodes VOTE frames. The candidate must be in the
current list; otherwise the vote never reaches the Store. The Store decides
duplicates. The outcome goes to the Observer as a VoteEvent:

  - StatusAccepted
  - StatusDuplicate
  - StatusInvalidCandidate
  - StatusStorageError

Outcomes are local only. The student gets no reply frame, and a storage
failure affects only the vote that hit it.

# Broadcasts

AddCandidate and PublishResults write to every live session. A session whose
write fails is removed and closed; the rest still get the frame. Candidate
frames are versioned per session so an initial push that races with
AddCandidate cannot leave a client holding the older list.

# Metrics

NewMetrics registers Prometheus collectors under the classvote namespace:
votes_total{status}, dropped_frames_total, sessions_active,
broadcasts_total{kind} and broadcast_write_failures_total.
*/
package teacher
