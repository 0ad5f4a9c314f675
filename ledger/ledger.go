// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrUnavailable wraps every storage failure.
var ErrUnavailable = errors.New("ledger unavailable")

// Vote is one accepted (voter, candidate) pair.
type Vote struct {
	Voter     string `json:"voter"`
	Candidate string `json:"candidate"`
}

// Ledger stores votes in the vote table created by db.CreateSchema.
type Ledger struct {
	db *sql.DB
}

func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// RecordVote inserts the vote unless the voter already has one.
// The unique key makes the check-and-insert atomic across connections.
func (l *Ledger) RecordVote(ctx context.Context, voter, candidate string) (bool, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO vote (voter, candidate)
		VALUES ($1, $2)
		ON CONFLICT (voter) DO NOTHING
	`, voter, candidate)
	if err != nil {
		return false, fmt.Errorf("%w: insert vote: %w", ErrUnavailable, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %w", ErrUnavailable, err)
	}

	return n == 1, nil
}

// Tally counts votes per candidate.
func (l *Ledger) Tally(ctx context.Context) (map[string]int, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT candidate, COUNT(*) FROM vote GROUP BY candidate
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query tally: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	tally := make(map[string]int)
	for rows.Next() {
		var candidate string
		var count int
		if err := rows.Scan(&candidate, &count); err != nil {
			return nil, fmt.Errorf("%w: scan tally: %w", ErrUnavailable, err)
		}
		tally[candidate] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read tally: %w", ErrUnavailable, err)
	}

	return tally, nil
}

// Votes lists every stored vote ordered by voter.
func (l *Ledger) Votes(ctx context.Context) ([]Vote, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT voter, candidate FROM vote ORDER BY voter
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query votes: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	votes := []Vote{}
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.Voter, &v.Candidate); err != nil {
			return nil, fmt.Errorf("%w: scan vote: %w", ErrUnavailable, err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read votes: %w", ErrUnavailable, err)
	}

	return votes, nil
}
