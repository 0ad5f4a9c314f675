// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"sort"
	"sync"
)

// Memory is a non-persistent ledger with the same first-vote-wins contract.
type Memory struct {
	mu    sync.Mutex
	votes map[string]string
}

func NewMemory() *Memory {
	return &Memory{votes: make(map[string]string)}
}

func (m *Memory) RecordVote(ctx context.Context, voter, candidate string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.votes[voter]; ok {
		return false, nil
	}
	m.votes[voter] = candidate
	return true, nil
}

func (m *Memory) Tally(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tally := make(map[string]int)
	for _, c := range m.votes {
		tally[c]++
	}
	return tally, nil
}

func (m *Memory) Votes(ctx context.Context) ([]Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	votes := make([]Vote, 0, len(m.votes))
	for voter, c := range m.votes {
		votes = append(votes, Vote{Voter: voter, Candidate: c})
	}
	m.mu.Unlock()

	sort.Slice(votes, func(i, j int) bool { return votes[i].Voter < votes[j].Voter })
	return votes, nil
}
