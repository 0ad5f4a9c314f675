// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request and response types for the teacher's HTTP API.

# Request Types

  - AddCandidateRequest: label

# Response Types

  - CandidatesResponse: candidates
  - AddCandidateResponse: label, candidates
  - ResultsResponse: text, tally, total
  - PublishResultsResponse: text, delivered
  - SessionsResponse: count, sessions
  - VotesResponse: count, votes
  - ErrorResponse: error, message

# Domain Types

  - Session: one connected student (id, remote, connected_at, connected)
  - Vote: one ledger row (voter, candidate)

"delivered" is the number of student sessions the frame was written to.
*/
package models
