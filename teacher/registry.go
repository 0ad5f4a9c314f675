// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package teacher

import (
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ClientSession is the server-side state for one connected Student.
type ClientSession struct {
	ID          uuid.UUID
	Remote      string
	ConnectedAt time.Time

	conn         net.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
	// Version of the last candidate list written; guarded by writeMu
	listSent    uint64
	listWritten bool

	closeOnce sync.Once
}

func newClientSession(conn net.Conn, writeTimeout time.Duration) *ClientSession {
	return &ClientSession{
		ID:           uuid.New(),
		Remote:       conn.RemoteAddr().String(),
		ConnectedAt:  time.Now(),
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// Send writes one already-enveloped frame. Writes are serialized per session.
func (cs *ClientSession) Send(frame []byte) error {
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()
	return cs.write(frame)
}

// sendCandidates writes a candidate list frame unless a newer list has
// already been written, so a slow initial push never overwrites a later one.
func (cs *ClientSession) sendCandidates(frame []byte, version uint64) error {
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()

	if cs.listWritten && version <= cs.listSent {
		return nil
	}
	if err := cs.write(frame); err != nil {
		return err
	}
	cs.listSent = version
	cs.listWritten = true
	return nil
}

func (cs *ClientSession) write(frame []byte) error {
	if cs.writeTimeout > 0 {
		cs.conn.SetWriteDeadline(time.Now().Add(cs.writeTimeout))
		defer cs.conn.SetWriteDeadline(time.Time{})
	}

	if _, err := cs.conn.Write(frame); err != nil {
		return fmt.Errorf("write to session %s: %w", cs.ID, err)
	}
	return nil
}

// Close releases the transport. Safe to call more than once.
func (cs *ClientSession) Close() error {
	var err error
	cs.closeOnce.Do(func() {
		err = cs.conn.Close()
	})
	return err
}

// Registry is the set of live sessions, keyed by session id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*ClientSession
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*ClientSession)}
}

func (r *Registry) Add(cs *ClientSession) {
	r.mu.Lock()
	r.sessions[cs.ID] = cs
	r.mu.Unlock()
}

// Remove deletes the session and reports whether it was present.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns the live sessions, oldest first. Callers iterate the copy
// without holding the registry lock.
func (r *Registry) Snapshot() []*ClientSession {
	r.mu.RLock()
	out := make([]*ClientSession, 0, len(r.sessions))
	for _, cs := range r.sessions {
		out = append(out, cs)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// CloseAll empties the registry and closes every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*ClientSession)
	r.mu.Unlock()

	for _, cs := range sessions {
		cs.Close()
	}
}
