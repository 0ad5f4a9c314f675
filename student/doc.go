// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package student implements the Student role: one session connected to one
teacher, showing the candidates it is sent and submitting a vote.

# States

	Disconnected -> Connecting -> AwaitingCandidates -> Ready -> VoteSubmitted
	                    |                                  ^           |
	                    v                                  +-----------+
	                  Failed                            (new CANDIDATES)

Any read or write error moves the session to Failed and closes the
connection. Close moves it to Disconnected without reporting anything.

# Voting

SubmitVote checks the voter name and that the candidate is in the last list
received, then writes one VOTE frame. If the session is Failed it dials again
first, up to Options.ReconnectAttempts times. The teacher never replies, so a
returned nil only means the bytes were written.

# Display

Candidates, results and status messages go to a Display. Calls are delivered
one at a time from a single goroutine, never from the read loop directly.
*/
package student
