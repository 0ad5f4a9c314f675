// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main is the classvote binary: a classroom vote run over a plain
byte stream between one teacher and many students.

The teacher holds the candidate list and the vote ledger. Students connect,
receive the list, and send one vote each. The first vote under a voter name
counts; later ones are ignored. The teacher publishes the tally back to
every student as text.

# Starting a Teacher

	go run . -role teacher -listen :3319 -candidates "Alice,Bob"

The teacher also serves an HTTP API on -p (default 3318) for adding
candidates and publishing results; see package router. Admin routes need
the X-Admin-Key header. Without -admin-key a key is generated and logged.

Votes are stored in SQLite (file:voting.db) unless -t selects postgres or
memory.

# Starting a Student

	go run . -role student -peer 192.168.1.10:3319

Addresses are host:port, tcp://host:port or ws://host:port/path for the
WebSocket transport.

# Console

Both roles read commands from stdin.

Teacher:

	ADD <label>   add a candidate and push the new list
	LIST          show candidates
	RESULTS       publish the tally to every student
	SESSIONS      show connected students
	QUIT

Student:

	LIST                   show candidates
	VOTE <number> <name>   vote for a listed candidate
	RESULTS                show the last results received
	STATUS                 show the connection state
	QUIT

# Architecture

  - protocol: frame codec (CANDIDATES, VOTE, RESULTS)
  - transport: TCP and WebSocket listeners and dialers
  - ledger: one-vote-per-voter storage (SQL or memory)
  - teacher: broadcast server and session registry
  - student: client session state machine
  - dispatch: ordered delivery of reports to the console
  - handlers, router, middleware, models, auth: HTTP API
  - db: connection and schema
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
