// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package teacher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielhkuo/classvote/dispatch"
	"github.com/danielhkuo/classvote/protocol"
)

var (
	ErrEmptyCandidate     = errors.New("candidate label is empty")
	ErrDuplicateCandidate = errors.New("candidate already exists")
	ErrInvalidCandidate   = errors.New("candidate label contains a comma or newline")
	ErrServerClosed       = errors.New("server closed")
	ErrAlreadyListening   = errors.New("server already listening")
)

// State is the server lifecycle: Idle -> Listening -> Stopped.
type State int

const (
	StateIdle State = iota
	StateListening
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Store is the vote ledger the server records into.
type Store interface {
	RecordVote(ctx context.Context, voter, candidate string) (bool, error)
	Tally(ctx context.Context) (map[string]int, error)
}

type Options struct {
	// Candidates preloaded before any client connects.
	Candidates []string

	// WriteTimeout bounds each frame write to a session. Zero means none.
	WriteTimeout time.Duration

	// ReadTimeout drops a session that sends nothing for this long.
	// Zero means sessions may idle forever.
	ReadTimeout time.Duration

	// Observer receives vote outcomes. Defaults to LogObserver.
	Observer Observer

	// Metrics defaults to an unregistered set.
	Metrics *Metrics
}

// SessionInfo describes a connected session.
type SessionInfo struct {
	ID          string    `json:"id"`
	Remote      string    `json:"remote"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Server is the Teacher role: it owns the candidate list, accepts student
// sessions, records their votes and broadcasts updates to all of them.
type Server struct {
	store    Store
	opts     Options
	observer Observer
	metrics  *Metrics
	reports  *dispatch.Dispatcher
	sessions *Registry

	// ctx scopes storage calls; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	listener   net.Listener
	candidates []string
	version    uint64 // bumped on every candidate change

	wg sync.WaitGroup
}

func New(store Store, opts Options) (*Server, error) {
	if opts.Observer == nil {
		opts.Observer = LogObserver{}
	}
	if opts.Metrics == nil {
		opts.Metrics, _ = NewMetrics(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		store:    store,
		opts:     opts,
		observer: opts.Observer,
		metrics:  opts.Metrics,
		reports:  dispatch.New(64),
		sessions: NewRegistry(),
		ctx:      ctx,
		cancel:   cancel,
	}

	for _, label := range opts.Candidates {
		label, err := validateLabel(label)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("initial candidate %q: %w", label, err)
		}
		if slices.Contains(s.candidates, label) {
			s.Close()
			return nil, fmt.Errorf("initial candidate %q: %w", label, ErrDuplicateCandidate)
		}
		s.candidates = append(s.candidates, label)
	}
	if len(s.candidates) > 0 {
		s.version = 1
	}

	return s, nil
}

func validateLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", ErrEmptyCandidate
	}
	if strings.ContainsAny(label, ",\r\n") {
		return label, ErrInvalidCandidate
	}
	return label, nil
}

func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Candidates returns a copy of the list in insertion order.
func (s *Server) Candidates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.candidates...)
}

func (s *Server) hasCandidate(label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.candidates, label)
}

func (s *Server) SessionCount() int {
	return s.sessions.Len()
}

func (s *Server) Sessions() []SessionInfo {
	snap := s.sessions.Snapshot()
	out := make([]SessionInfo, 0, len(snap))
	for _, cs := range snap {
		out = append(out, SessionInfo{
			ID:          cs.ID.String(),
			Remote:      cs.Remote,
			ConnectedAt: cs.ConnectedAt,
		})
	}
	return out
}

// AddCandidate appends label (trimmed) and broadcasts the full list.
// Matching is exact and case-sensitive.
func (s *Server) AddCandidate(label string) error {
	label, err := validateLabel(label)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return ErrServerClosed
	}
	if slices.Contains(s.candidates, label) {
		s.mu.Unlock()
		return ErrDuplicateCandidate
	}
	s.candidates = append(s.candidates, label)
	s.version++
	frame, version, err := s.candidatesFrameLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}

	slog.Info("candidate added", "label", label)
	s.fanOut(protocol.KindCandidates, func(cs *ClientSession) error {
		return cs.sendCandidates(frame, version)
	})
	return nil
}

func (s *Server) candidatesFrameLocked() ([]byte, uint64, error) {
	frame, err := protocol.AppendFrame(nil, protocol.CandidatesMessage(s.candidates))
	if err != nil {
		return nil, 0, fmt.Errorf("encode candidates: %w", err)
	}
	return frame, s.version, nil
}

// Serve runs the accept loop on l until Close is called or ctx is done.
// It returns nil after a deliberate shutdown.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	switch s.state {
	case StateListening:
		s.mu.Unlock()
		return ErrAlreadyListening
	case StateStopped:
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.state = StateListening
	s.listener = l
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	slog.Info("server listening", "addr", l.Addr().String())

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.State() == StateStopped {
				return nil
			}
			s.Close()
			return fmt.Errorf("accept: %w", err)
		}
		s.startSession(conn)
	}
}

func (s *Server) startSession(conn net.Conn) {
	cs := newClientSession(conn, s.opts.WriteTimeout)

	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.sessions.Add(cs)
	s.wg.Add(1)
	s.mu.Unlock()

	s.metrics.sessions.Inc()
	slog.Info("session connected", "session_id", cs.ID, "remote", cs.Remote)

	go s.runSession(cs)
}

// runSession pushes the current list to the new client, then reads its
// frames until the stream ends.
func (s *Server) runSession(cs *ClientSession) {
	defer s.wg.Done()
	defer s.dropSession(cs)

	s.mu.Lock()
	frame, version, err := s.candidatesFrameLocked()
	s.mu.Unlock()
	if err != nil {
		slog.Error("failed to encode candidates", "error", err)
		return
	}
	if err := cs.sendCandidates(frame, version); err != nil {
		slog.Warn("initial candidates push failed", "session_id", cs.ID, "error", err)
		return
	}

	r := protocol.NewReader(cs.conn)
	for {
		if s.opts.ReadTimeout > 0 {
			cs.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		}

		m, err := r.ReadMessage()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				s.metrics.droppedFrames.Inc()
				slog.Debug("dropped malformed frame", "session_id", cs.ID, "error", err)
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				slog.Info("session closed", "session_id", cs.ID)
			} else {
				slog.Warn("session read failed", "session_id", cs.ID, "error", err)
			}
			return
		}

		if m.Kind != protocol.KindVote {
			s.metrics.droppedFrames.Inc()
			slog.Debug("dropped unexpected frame", "session_id", cs.ID, "kind", m.Kind)
			continue
		}
		s.handleVote(m.Voter, m.Candidate)
	}
}

func (s *Server) dropSession(cs *ClientSession) {
	if s.sessions.Remove(cs.ID) {
		s.metrics.sessions.Dec()
	}
	cs.Close()
}

// handleVote checks the candidate against the current list, records the
// vote and reports the outcome locally. Nothing is written back.
func (s *Server) handleVote(voter, candidate string) {
	ev := VoteEvent{Voter: voter, Candidate: candidate}

	if !s.hasCandidate(candidate) {
		ev.Status = StatusInvalidCandidate
	} else {
		accepted, err := s.store.RecordVote(s.ctx, voter, candidate)
		switch {
		case err != nil:
			ev.Status = StatusStorageError
			ev.Err = err
		case accepted:
			ev.Status = StatusAccepted
		default:
			ev.Status = StatusDuplicate
		}
	}

	s.metrics.votes.WithLabelValues(ev.Status.String()).Inc()
	s.report(ev)
}

func (s *Server) report(ev VoteEvent) {
	if !s.reports.Post(func() { s.observer.VoteRecorded(ev) }) {
		slog.Warn("vote outcome after shutdown", "status", ev.Status.String(), "voter", ev.Voter)
	}
}

// Tally returns the raw per-candidate counts.
func (s *Server) Tally(ctx context.Context) (map[string]int, error) {
	return s.store.Tally(ctx)
}

// Results renders the current tally without broadcasting it.
func (s *Server) Results(ctx context.Context) (string, error) {
	tally, err := s.store.Tally(ctx)
	if err != nil {
		return "", err
	}
	return RenderResults(s.Candidates(), tally), nil
}

// PublishResults renders the tally and broadcasts it as a RESULTS frame.
// It returns the text and the number of sessions that received it.
func (s *Server) PublishResults(ctx context.Context) (string, int, error) {
	text, err := s.Results(ctx)
	if err != nil {
		return "", 0, err
	}
	delivered, err := s.Broadcast(protocol.ResultsMessage(text))
	if err != nil {
		return text, 0, err
	}
	return text, delivered, nil
}

// Broadcast writes m to every live session and returns how many writes
// succeeded. Sessions whose write fails are removed and closed; the others
// still receive the frame.
func (s *Server) Broadcast(m protocol.Message) (int, error) {
	frame, err := protocol.AppendFrame(nil, m)
	if err != nil {
		return 0, fmt.Errorf("encode %s frame: %w", m.Kind, err)
	}
	return s.fanOut(m.Kind, func(cs *ClientSession) error { return cs.Send(frame) }), nil
}

func (s *Server) fanOut(kind protocol.Kind, send func(*ClientSession) error) int {
	s.metrics.broadcasts.WithLabelValues(kind.String()).Inc()

	var delivered atomic.Int32
	var wg sync.WaitGroup
	for _, cs := range s.sessions.Snapshot() {
		wg.Add(1)
		go func(cs *ClientSession) {
			defer wg.Done()
			if err := send(cs); err != nil {
				s.metrics.broadcastFailures.Inc()
				slog.Warn("broadcast write failed, dropping session",
					"session_id", cs.ID, "kind", kind.String(), "error", err)
				s.dropSession(cs)
				return
			}
			delivered.Add(1)
		}(cs)
	}
	wg.Wait()

	return int(delivered.Load())
}

// Close stops accepting, closes the listener and every session, and waits
// for their goroutines. Later calls are no-ops.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		s.wg.Wait()
		return nil
	}
	s.state = StateStopped
	l := s.listener
	s.mu.Unlock()

	s.cancel()

	var err error
	if l != nil {
		err = l.Close()
	}
	s.sessions.CloseAll()
	s.metrics.sessions.Set(0)

	s.wg.Wait()
	s.reports.Close()

	slog.Info("server stopped")
	return err
}
