// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package student

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/danielhkuo/classvote/dispatch"
	"github.com/danielhkuo/classvote/protocol"
)

var (
	ErrEmptyVoter       = errors.New("voter name is required")
	ErrInvalidVoter     = errors.New("voter name contains a comma or newline")
	ErrNoCandidates     = errors.New("no candidates received yet")
	ErrUnknownCandidate = errors.New("candidate is not in the current list")
	ErrClosed           = errors.New("session closed")
)

// State is the student's connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingCandidates
	StateReady
	StateVoteSubmitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingCandidates:
		return "awaiting_candidates"
	case StateReady:
		return "ready"
	case StateVoteSubmitted:
		return "vote_submitted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Display is where the session shows what it receives. Calls arrive one at
// a time, in order, on the session's report goroutine.
type Display interface {
	ShowCandidates(labels []string)
	ShowResults(text string)
	ShowStatus(msg string)
}

// DialFunc opens a connection to the teacher.
type DialFunc func(ctx context.Context) (net.Conn, error)

type Options struct {
	// WriteTimeout bounds the vote write. Zero means none.
	WriteTimeout time.Duration

	// ReconnectAttempts is how many dials SubmitVote makes when the session
	// is not connected. Defaults to 1.
	ReconnectAttempts int

	// ReconnectDelay is the pause between those dials.
	ReconnectDelay time.Duration
}

// Session is the Student role: one connection to one teacher.
type Session struct {
	dial    DialFunc
	display Display
	opts    Options
	reports *dispatch.Dispatcher

	dialMu  sync.Mutex // one connection attempt at a time
	writeMu sync.Mutex

	mu         sync.Mutex
	state      State
	conn       net.Conn
	gen        uint64 // identifies conn; stale read loops compare against it
	candidates []string
	results    string
	closed     bool

	wg sync.WaitGroup
}

func New(dial DialFunc, display Display, opts Options) *Session {
	if opts.ReconnectAttempts < 1 {
		opts.ReconnectAttempts = 1
	}
	if display == nil {
		display = nopDisplay{}
	}
	return &Session{
		dial:    dial,
		display: display,
		opts:    opts,
		reports: dispatch.New(32),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Candidates returns the most recently received list.
func (s *Session) Candidates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.candidates...)
}

// Results returns the most recently received results text.
func (s *Session) Results() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// Connect dials the teacher once and starts the read loop. It is a no-op if
// the session is already connected.
func (s *Session) Connect(ctx context.Context) error {
	_, _, err := s.ensureConn(ctx, 1)
	return err
}

// SubmitVote sends one VOTE frame. The candidate must be one of the labels
// last received. If the session is not connected it reconnects first.
// Success means the write returned; the teacher sends no acknowledgement.
func (s *Session) SubmitVote(ctx context.Context, voter, candidate string) error {
	voter = strings.TrimSpace(voter)
	if voter == "" {
		return ErrEmptyVoter
	}
	if strings.ContainsAny(voter, ",\r\n") {
		return ErrInvalidVoter
	}

	s.mu.Lock()
	closed := s.closed
	known := slices.Contains(s.candidates, candidate)
	empty := len(s.candidates) == 0
	s.mu.Unlock()

	switch {
	case closed:
		return ErrClosed
	case empty:
		return ErrNoCandidates
	case !known:
		return ErrUnknownCandidate
	}

	frame, err := protocol.AppendFrame(nil, protocol.VoteMessage(voter, candidate))
	if err != nil {
		return err
	}

	conn, gen, err := s.ensureConn(ctx, s.opts.ReconnectAttempts)
	if err != nil {
		return err
	}

	if err := s.write(conn, frame); err != nil {
		s.connectionLost(gen, err)
		s.report(func(d Display) { d.ShowStatus("Failed to send vote: " + err.Error()) })
		return fmt.Errorf("send vote: %w", err)
	}

	s.mu.Lock()
	if s.gen == gen {
		s.state = StateVoteSubmitted
	}
	s.mu.Unlock()

	slog.Info("vote sent", "voter", voter, "candidate", candidate)
	s.report(func(d Display) { d.ShowStatus("Vote sent successfully!") })
	return nil
}

func (s *Session) write(conn net.Conn, frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.opts.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
		defer conn.SetWriteDeadline(time.Time{})
	}
	_, err := conn.Write(frame)
	return err
}

// ensureConn returns the live connection, dialing up to attempts times if
// there is none.
func (s *Session) ensureConn(ctx context.Context, attempts int) (net.Conn, uint64, error) {
	s.dialMu.Lock()
	defer s.dialMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, 0, ErrClosed
	}
	if s.conn != nil {
		conn, gen := s.conn, s.gen
		s.mu.Unlock()
		return conn, gen, nil
	}
	s.state = StateConnecting
	s.mu.Unlock()

	conn, err := s.dialAttempts(ctx, attempts)

	s.mu.Lock()
	if err != nil {
		if !s.closed {
			s.state = StateFailed
		}
		s.mu.Unlock()
		slog.Warn("connect failed", "error", err, "attempts", attempts)
		s.report(func(d Display) { d.ShowStatus("Failed to connect: " + err.Error()) })
		return nil, 0, fmt.Errorf("connect: %w", err)
	}
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return nil, 0, ErrClosed
	}
	s.gen++
	gen := s.gen
	s.conn = conn
	s.state = StateAwaitingCandidates
	s.wg.Add(1)
	s.mu.Unlock()

	slog.Info("connected to teacher", "remote", conn.RemoteAddr().String())
	go s.readLoop(conn, gen)

	return conn, gen, nil
}

func (s *Session) dialAttempts(ctx context.Context, attempts int) (net.Conn, error) {
	var conn net.Conn

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.ReconnectDelay), uint64(attempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		c, err := s.dial(ctx)
		if err != nil {
			slog.Debug("dial attempt failed", "error", err)
			return err
		}
		conn = c
		return nil
	}, policy)

	return conn, err
}

func (s *Session) readLoop(conn net.Conn, gen uint64) {
	defer s.wg.Done()

	r := protocol.NewReader(conn)
	for {
		m, err := r.ReadMessage()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				slog.Debug("dropped malformed frame", "error", err)
				continue
			}
			s.connectionLost(gen, err)
			return
		}

		switch m.Kind {
		case protocol.KindCandidates:
			s.mu.Lock()
			if s.gen != gen {
				s.mu.Unlock()
				return
			}
			s.candidates = m.Candidates
			s.state = StateReady
			labels := append([]string(nil), m.Candidates...)
			s.mu.Unlock()

			s.report(func(d Display) {
				d.ShowCandidates(labels)
				d.ShowStatus("Connected to teacher's device")
			})

		case protocol.KindResults:
			s.mu.Lock()
			if s.gen != gen {
				s.mu.Unlock()
				return
			}
			s.results = m.Results
			s.mu.Unlock()

			text := m.Results
			s.report(func(d Display) {
				d.ShowResults(text)
				d.ShowStatus("Results updated")
			})

		default:
			slog.Debug("dropped unexpected frame", "kind", m.Kind)
		}
	}
}

// connectionLost closes conn gen and marks the session failed, unless that
// connection was already replaced or deliberately closed.
func (s *Session) connectionLost(gen uint64, cause error) {
	s.mu.Lock()
	if s.gen != gen || s.conn == nil {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.conn = nil
	s.state = StateFailed
	s.mu.Unlock()

	conn.Close()
	slog.Warn("connection lost", "error", cause)
	s.report(func(d Display) { d.ShowStatus("Connection lost: " + cause.Error()) })
}

func (s *Session) report(fn func(Display)) {
	s.reports.Post(func() { fn(s.display) })
}

// Close disconnects without reporting a failure and waits for the read loop
// and any queued reports.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.gen++
	s.state = StateDisconnected
	s.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	s.wg.Wait()
	s.reports.Close()
	return err
}

type nopDisplay struct{}

func (nopDisplay) ShowCandidates([]string) {}
func (nopDisplay) ShowResults(string)      {}
func (nopDisplay) ShowStatus(string)       {}
