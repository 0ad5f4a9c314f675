package student

import (
	"context"
	"errors"
	"net"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/classvote/ledger"
	"github.com/danielhkuo/classvote/protocol"
	"github.com/danielhkuo/classvote/teacher"
	"github.com/danielhkuo/classvote/testutil"
)

const waitFor = 2 * time.Second

// recordingDisplay keeps everything the session shows it
type recordingDisplay struct {
	mu         sync.Mutex
	candidates [][]string
	results    []string
	statuses   []string
}

func (d *recordingDisplay) ShowCandidates(labels []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.candidates = append(d.candidates, labels)
}

func (d *recordingDisplay) ShowResults(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, text)
}

func (d *recordingDisplay) ShowStatus(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses = append(d.statuses, msg)
}

func (d *recordingDisplay) hasStatus(prefix string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.ContainsFunc(d.statuses, func(s string) bool { return strings.HasPrefix(s, prefix) })
}

func (d *recordingDisplay) lastResults() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.results) == 0 {
		return ""
	}
	return d.results[len(d.results)-1]
}

// fakeTeacher hands out the server end of each student connection
type fakeTeacher struct {
	listener *testutil.PipeListener
	dials    atomic.Int32
	failDial atomic.Bool
	conns    chan net.Conn
}

func newFakeTeacher(t *testing.T) *fakeTeacher {
	t.Helper()

	f := &fakeTeacher{
		listener: testutil.NewPipeListener(),
		conns:    make(chan net.Conn, 8),
	}
	go func() {
		for {
			c, err := f.listener.Accept()
			if err != nil {
				return
			}
			f.conns <- c
		}
	}()
	t.Cleanup(func() { f.listener.Close() })
	return f
}

func (f *fakeTeacher) dial(ctx context.Context) (net.Conn, error) {
	f.dials.Add(1)
	if f.failDial.Load() {
		return nil, errors.New("connection refused")
	}
	return f.listener.Dial()
}

func (f *fakeTeacher) accept(t *testing.T) net.Conn {
	t.Helper()
	select {
	case c := <-f.conns:
		t.Cleanup(func() { c.Close() })
		return c
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for student connection")
		return nil
	}
}

func send(t *testing.T, conn net.Conn, m protocol.Message) {
	t.Helper()
	conn.SetWriteDeadline(time.Now().Add(waitFor))
	if err := protocol.WriteFrame(conn, m); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func newSession(t *testing.T, dial DialFunc, opts Options) (*Session, *recordingDisplay) {
	t.Helper()

	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = waitFor
	}
	d := &recordingDisplay{}
	s := New(dial, d, opts)
	t.Cleanup(func() { s.Close() })
	return s, d
}

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	testutil.Eventually(t, waitFor, func() bool { return s.State() == want }, "state "+want.String())
}

// readyStudent connects and delivers candidates X, Y
func readyStudent(t *testing.T, f *fakeTeacher, opts Options) (*Session, *recordingDisplay, net.Conn) {
	t.Helper()

	s, d := newSession(t, f.dial, opts)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn := f.accept(t)
	send(t, conn, protocol.CandidatesMessage([]string{"X", "Y"}))
	waitState(t, s, StateReady)
	return s, d, conn
}

func TestConnectReceivesCandidates(t *testing.T) {
	f := newFakeTeacher(t)
	s, d := newSession(t, f.dial, Options{})

	if s.State() != StateDisconnected {
		t.Fatalf("expected disconnected before Connect, got %s", s.State())
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if s.State() != StateAwaitingCandidates {
		t.Errorf("expected awaiting_candidates, got %s", s.State())
	}

	conn := f.accept(t)
	send(t, conn, protocol.CandidatesMessage([]string{"X", "Y"}))
	waitState(t, s, StateReady)

	if got := s.Candidates(); !slices.Equal(got, []string{"X", "Y"}) {
		t.Errorf("expected [X Y], got %v", got)
	}
	testutil.Eventually(t, waitFor, func() bool {
		return d.hasStatus("Connected to teacher's device")
	}, "connected status")

	d.mu.Lock()
	shown := d.candidates
	d.mu.Unlock()
	if len(shown) != 1 || !slices.Equal(shown[0], []string{"X", "Y"}) {
		t.Errorf("expected display to show [X Y] once, got %v", shown)
	}

	// Connecting again while connected is a no-op
	if err := s.Connect(context.Background()); err != nil {
		t.Errorf("second Connect: %v", err)
	}
	if n := f.dials.Load(); n != 1 {
		t.Errorf("expected 1 dial, got %d", n)
	}
}

func TestConnectFailure(t *testing.T) {
	f := newFakeTeacher(t)
	f.failDial.Store(true)
	s, d := newSession(t, f.dial, Options{})

	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
	if s.State() != StateFailed {
		t.Errorf("expected failed, got %s", s.State())
	}
	testutil.Eventually(t, waitFor, func() bool { return d.hasStatus("Failed to connect") }, "failure status")
}

func TestSubmitVoteValidation(t *testing.T) {
	f := newFakeTeacher(t)

	t.Run("before candidates", func(t *testing.T) {
		s, _ := newSession(t, f.dial, Options{})
		if err := s.SubmitVote(context.Background(), "alice", "X"); !errors.Is(err, ErrNoCandidates) {
			t.Errorf("expected ErrNoCandidates, got %v", err)
		}
		if n := f.dials.Load(); n != 0 {
			t.Errorf("expected no dial, got %d", n)
		}
	})

	s, _, _ := readyStudent(t, f, Options{})

	tests := []struct {
		name      string
		voter     string
		candidate string
		wantErr   error
	}{
		{"empty voter", "", "X", ErrEmptyVoter},
		{"blank voter", "   ", "X", ErrEmptyVoter},
		{"voter with comma", "a,b", "X", ErrInvalidVoter},
		{"voter with newline", "a\nb", "X", ErrInvalidVoter},
		{"unknown candidate", "alice", "Z", ErrUnknownCandidate},
		{"empty candidate", "alice", "", ErrUnknownCandidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SubmitVote(context.Background(), tt.voter, tt.candidate)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if s.State() != StateReady {
		t.Errorf("rejected votes should not change state, got %s", s.State())
	}
}

func TestSubmitVoteSendsFrame(t *testing.T) {
	f := newFakeTeacher(t)
	s, d, conn := readyStudent(t, f, Options{})

	got := make(chan protocol.Message, 1)
	go func() {
		conn.SetReadDeadline(time.Now().Add(waitFor))
		m, err := protocol.NewReader(conn).ReadMessage()
		if err == nil {
			got <- m
		}
		close(got)
	}()

	if err := s.SubmitVote(context.Background(), "  alice ", "X"); err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}

	m, ok := <-got
	if !ok {
		t.Fatal("teacher side did not receive a frame")
	}
	if m.Kind != protocol.KindVote || m.Voter != "alice" || m.Candidate != "X" {
		t.Errorf("unexpected frame %+v", m)
	}
	if s.State() != StateVoteSubmitted {
		t.Errorf("expected vote_submitted, got %s", s.State())
	}
	testutil.Eventually(t, waitFor, func() bool { return d.hasStatus("Vote sent successfully!") }, "sent status")

	// A new list returns the student to Ready
	send(t, conn, protocol.CandidatesMessage([]string{"X", "Y", "Z"}))
	waitState(t, s, StateReady)
	if got := s.Candidates(); !slices.Equal(got, []string{"X", "Y", "Z"}) {
		t.Errorf("expected [X Y Z], got %v", got)
	}

	// Results are shown without a state change
	send(t, conn, protocol.ResultsMessage("X: 1 votes\n"))
	testutil.Eventually(t, waitFor, func() bool { return d.lastResults() == "X: 1 votes\n" }, "results shown")
	if s.Results() != "X: 1 votes\n" {
		t.Errorf("expected results text, got %q", s.Results())
	}
	if s.State() != StateReady {
		t.Errorf("results should not change state, got %s", s.State())
	}
}

func TestMalformedFramesIgnored(t *testing.T) {
	f := newFakeTeacher(t)
	s, _ := newSession(t, f.dial, Options{})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn := f.accept(t)

	conn.SetWriteDeadline(time.Now().Add(waitFor))
	frame := []byte{0, 0, 0, 5, 'H', 'E', 'L', 'L', 'O'}
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("write: %v", err)
	}
	send(t, conn, protocol.VoteMessage("x", "y"))
	send(t, conn, protocol.CandidatesMessage([]string{"A"}))

	waitState(t, s, StateReady)
	if got := s.Candidates(); !slices.Equal(got, []string{"A"}) {
		t.Errorf("expected [A], got %v", got)
	}
}

func TestConnectionLost(t *testing.T) {
	f := newFakeTeacher(t)
	s, d, conn := readyStudent(t, f, Options{})

	conn.Close()
	waitState(t, s, StateFailed)
	testutil.Eventually(t, waitFor, func() bool { return d.hasStatus("Connection lost") }, "lost status")

	// The last list is kept for the next attempt
	if got := s.Candidates(); !slices.Equal(got, []string{"X", "Y"}) {
		t.Errorf("expected [X Y] to survive disconnect, got %v", got)
	}
}

func TestSubmitVoteReconnects(t *testing.T) {
	f := newFakeTeacher(t)
	s, _, conn := readyStudent(t, f, Options{})

	conn.Close()
	waitState(t, s, StateFailed)

	got := make(chan protocol.Message, 1)
	go func() {
		var c net.Conn
		select {
		case c = <-f.conns:
		case <-time.After(waitFor):
			close(got)
			return
		}
		defer c.Close()
		c.SetReadDeadline(time.Now().Add(waitFor))
		m, err := protocol.NewReader(c).ReadMessage()
		if err == nil {
			got <- m
		}
		close(got)
	}()

	if err := s.SubmitVote(context.Background(), "bob", "Y"); err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}

	m, ok := <-got
	if !ok {
		t.Fatal("no frame on the new connection")
	}
	if m.Voter != "bob" || m.Candidate != "Y" {
		t.Errorf("unexpected frame %+v", m)
	}
	if n := f.dials.Load(); n != 2 {
		t.Errorf("expected 2 dials, got %d", n)
	}
}

func TestReconnectGivesUp(t *testing.T) {
	f := newFakeTeacher(t)
	s, d, conn := readyStudent(t, f, Options{ReconnectAttempts: 3, ReconnectDelay: time.Millisecond})

	conn.Close()
	waitState(t, s, StateFailed)
	f.failDial.Store(true)

	if err := s.SubmitVote(context.Background(), "bob", "Y"); err == nil {
		t.Fatal("expected reconnect error")
	}
	if s.State() != StateFailed {
		t.Errorf("expected failed, got %s", s.State())
	}
	// One initial dial plus three reconnect attempts
	if n := f.dials.Load(); n != 4 {
		t.Errorf("expected 4 dials, got %d", n)
	}
	testutil.Eventually(t, waitFor, func() bool { return d.hasStatus("Failed to connect") }, "failure status")
}

type brokenConn struct {
	net.Conn
}

func (brokenConn) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestSubmitVoteWriteFailure(t *testing.T) {
	f := newFakeTeacher(t)
	dial := func(ctx context.Context) (net.Conn, error) {
		c, err := f.dial(ctx)
		if err != nil {
			return nil, err
		}
		return brokenConn{c}, nil
	}
	s, d := newSession(t, dial, Options{})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn := f.accept(t)
	send(t, conn, protocol.CandidatesMessage([]string{"X"}))
	waitState(t, s, StateReady)

	if err := s.SubmitVote(context.Background(), "alice", "X"); err == nil {
		t.Fatal("expected write error")
	}
	if s.State() != StateFailed {
		t.Errorf("expected failed, got %s", s.State())
	}
	testutil.Eventually(t, waitFor, func() bool { return d.hasStatus("Failed to send vote") }, "send failure status")
}

func TestCloseIsQuiet(t *testing.T) {
	f := newFakeTeacher(t)
	s, d, _ := readyStudent(t, f, Options{})

	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if s.State() != StateDisconnected {
		t.Errorf("expected disconnected, got %s", s.State())
	}
	if d.hasStatus("Connection lost") {
		t.Error("Close should not report a lost connection")
	}
	if err := s.SubmitVote(context.Background(), "alice", "X"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := s.Connect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Connect, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestClassroomRoundTrip(t *testing.T) {
	store := ledger.New(testutil.SetupTestDB(t))
	srv, err := teacher.New(store, teacher.Options{
		Candidates:   []string{"X", "Y"},
		WriteTimeout: waitFor,
	})
	if err != nil {
		t.Fatalf("teacher.New: %v", err)
	}
	l := testutil.NewPipeListener()
	go srv.Serve(context.Background(), l)
	t.Cleanup(func() { srv.Close() })

	dial := func(ctx context.Context) (net.Conn, error) { return l.Dial() }

	alice, aliceDisplay := newSession(t, dial, Options{})
	bob, bobDisplay := newSession(t, dial, Options{})
	for _, s := range []*Session{alice, bob} {
		if err := s.Connect(context.Background()); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		waitState(t, s, StateReady)
	}

	if err := alice.SubmitVote(context.Background(), "alice", "X"); err != nil {
		t.Fatalf("alice vote: %v", err)
	}
	if err := bob.SubmitVote(context.Background(), "bob", "Y"); err != nil {
		t.Fatalf("bob vote: %v", err)
	}
	// A second vote under the same name is dropped by the ledger
	if err := bob.SubmitVote(context.Background(), "alice", "Y"); err != nil {
		t.Fatalf("duplicate vote: %v", err)
	}

	testutil.Eventually(t, waitFor, func() bool {
		tally, err := srv.Tally(context.Background())
		return err == nil && tally["X"] == 1 && tally["Y"] == 1
	}, "both votes recorded")

	text, delivered, err := srv.PublishResults(context.Background())
	if err != nil {
		t.Fatalf("PublishResults: %v", err)
	}
	if delivered != 2 {
		t.Errorf("expected results delivered to 2 students, got %d", delivered)
	}

	want := "X: 1 votes\nY: 1 votes\n"
	if text != want {
		t.Errorf("expected %q, got %q", want, text)
	}
	for _, d := range []*recordingDisplay{aliceDisplay, bobDisplay} {
		testutil.Eventually(t, waitFor, func() bool { return d.lastResults() == want }, "results on student")
	}
}
