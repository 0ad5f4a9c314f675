// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package teacher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// RenderResults renders one "<label>: <n> votes" line per tallied candidate.
// Candidates in order come first in that order; any other tallied labels
// (votes kept from an earlier run) follow alphabetically. Candidates without
// votes are listed with zero.
func RenderResults(order []string, tally map[string]int) string {
	var b strings.Builder

	seen := make(map[string]bool, len(order))
	for _, label := range order {
		seen[label] = true
		writeResultLine(&b, label, tally[label])
	}

	var rest []string
	for label := range tally {
		if !seen[label] {
			rest = append(rest, label)
		}
	}
	sort.Strings(rest)
	for _, label := range rest {
		writeResultLine(&b, label, tally[label])
	}

	return b.String()
}

func writeResultLine(b *strings.Builder, label string, n int) {
	fmt.Fprintf(b, "%s: %s votes\n", label, humanize.Comma(int64(n)))
}
