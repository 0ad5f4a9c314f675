// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package ledger records at most one vote per voter and tallies them.
//
// Ledger is backed by the vote table; Memory keeps the same contract in a
// map and backs the memory database type and tests. In both, the
// first accepted vote for a voter is final: later calls for the same voter
// return accepted=false and change nothing.
package ledger
