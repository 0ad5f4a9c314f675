// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformed    = errors.New("malformed frame")
	ErrInvalidField = errors.New("field cannot be encoded")
)

// Kind identifies one of the three frame types.
type Kind int

const (
	KindCandidates Kind = iota + 1
	KindVote
	KindResults
)

// Frame tags, including the trailing colon
const (
	TagCandidates = "CANDIDATES:"
	TagVote       = "VOTE:"
	TagResults    = "RESULTS:"
)

func (k Kind) String() string {
	switch k {
	case KindCandidates:
		return "candidates"
	case KindVote:
		return "vote"
	case KindResults:
		return "results"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is a decoded frame. Only the fields belonging to Kind are set.
type Message struct {
	Kind       Kind
	Candidates []string // KindCandidates
	Voter      string   // KindVote
	Candidate  string   // KindVote
	Results    string   // KindResults
}

func CandidatesMessage(labels []string) Message {
	return Message{Kind: KindCandidates, Candidates: append([]string(nil), labels...)}
}

func VoteMessage(voter, candidate string) Message {
	return Message{Kind: KindVote, Voter: voter, Candidate: candidate}
}

func ResultsMessage(text string) Message {
	return Message{Kind: KindResults, Results: text}
}

// Encode renders m as its text payload (without the length envelope).
func Encode(m Message) ([]byte, error) {
	switch m.Kind {
	case KindCandidates:
		for _, c := range m.Candidates {
			if err := checkField("candidate", c); err != nil {
				return nil, err
			}
		}
		return []byte(TagCandidates + strings.Join(m.Candidates, ",")), nil

	case KindVote:
		if err := checkField("voter", m.Voter); err != nil {
			return nil, err
		}
		if err := checkField("candidate", m.Candidate); err != nil {
			return nil, err
		}
		return []byte(TagVote + m.Voter + "," + m.Candidate), nil

	case KindResults:
		return []byte(TagResults + m.Results), nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidField, int(m.Kind))
	}
}

// Decode parses a text payload. Any failure wraps ErrMalformed; callers are
// expected to drop the frame and keep reading.
func Decode(b []byte) (Message, error) {
	s := string(b)

	switch {
	case strings.HasPrefix(s, TagCandidates):
		body := s[len(TagCandidates):]
		labels := []string{}
		if strings.TrimSpace(body) != "" {
			for _, part := range strings.Split(body, ",") {
				if label := strings.TrimSpace(part); label != "" {
					labels = append(labels, label)
				}
			}
		}
		return Message{Kind: KindCandidates, Candidates: labels}, nil

	case strings.HasPrefix(s, TagVote):
		parts := strings.Split(s[len(TagVote):], ",")
		if len(parts) != 2 {
			return Message{}, fmt.Errorf("%w: vote has %d fields, want 2", ErrMalformed, len(parts))
		}
		voter := strings.TrimSpace(parts[0])
		candidate := strings.TrimSpace(parts[1])
		if voter == "" || candidate == "" {
			return Message{}, fmt.Errorf("%w: vote has an empty field", ErrMalformed)
		}
		return VoteMessage(voter, candidate), nil

	case strings.HasPrefix(s, TagResults):
		return ResultsMessage(s[len(TagResults):]), nil

	default:
		return Message{}, fmt.Errorf("%w: unknown tag", ErrMalformed)
	}
}

func checkField(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidField, name)
	}
	if strings.ContainsAny(v, ",\r\n") {
		return fmt.Errorf("%w: %s %q contains a comma or newline", ErrInvalidField, name, v)
	}
	return nil
}
