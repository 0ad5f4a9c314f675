// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the teacher's API.

# Handler Types

Each handler is a struct around the running *teacher.Server:

  - CandidatesHandler: list and add candidates
  - ResultsHandler: tally, publish results, list raw votes
  - SessionsHandler: connected students

	candidatesHandler := handlers.NewCandidatesHandler(srv)
	resultsHandler := handlers.NewResultsHandler(srv, store)

# Endpoints

	GET  /candidates       → ListCandidates
	POST /candidates       → AddCandidate (admin; 201, 400, 409)
	GET  /results          → GetResults
	POST /results/publish  → PublishResults (admin)
	GET  /votes            → ListVotes (admin)
	GET  /sessions         → ListSessions

Adding a candidate and publishing results both write to every connected
student before the handler responds. Students whose connection fails during
that write are dropped.

# Errors

Storage failures (ledger.ErrUnavailable) map to 503. Validation errors from
the teacher server map to 400, a duplicate label to 409.
*/
package handlers
