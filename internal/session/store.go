// Package session implements the host's session arena: allocation of
// process-unique session ids, the binding between a session and its
// engine-side handle, and the parent/child links used during injection
// resolution and cascaded teardown.
//
// The arena is flat: records are indexed by id and related by id links,
// so parent and child sessions never hold direct references to each
// other. A parent keeps at most one child per injected language.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jward/limn/plugin"
)

// ErrInvalidSession is returned for ids that were never allocated or
// have already been freed.
var ErrInvalidSession = errors.New("session: invalid session id")

// Record binds one session id to its engine, engine-side handle, and
// current text.
//
// Text is guarded by Op. Child links live in the Store, not on the
// Record, so the Store can maintain them under its own lock.
type Record struct {
	// ID is unique and never reused within a process lifetime.
	ID uint64
	// Language is the session's language id.
	Language string
	// Engine is the owning grammar engine.
	Engine plugin.Engine
	// Handle is the engine-side session handle.
	Handle uint32
	// Parent is the parent session id, 0 for top-level sessions. It is
	// a lookup link only; ownership flows parent to child.
	Parent uint64

	// Text is the session's current buffer.
	Text []byte

	// Op serializes Parse, SetText, and ApplyEdit on this session.
	// Cancellation deliberately does not take it.
	Op sync.Mutex

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// SetCancel installs the cancel function for an in-flight parse.
func (r *Record) SetCancel(fn context.CancelFunc) {
	r.cancelMu.Lock()
	r.cancel = fn
	r.cancelMu.Unlock()
}

// ClearCancel removes the in-flight cancel function.
func (r *Record) ClearCancel() {
	r.cancelMu.Lock()
	r.cancel = nil
	r.cancelMu.Unlock()
}

// CancelInflight fires the in-flight parse, if any. Safe to call from
// any goroutine, including while the parse holds Op.
func (r *Record) CancelInflight() {
	r.cancelMu.Lock()
	fn := r.cancel
	r.cancelMu.Unlock()
	if fn != nil {
		fn()
	}
}

// Store is the session arena.
type Store struct {
	mu       sync.RWMutex
	records  map[uint64]*Record
	children map[uint64]map[string]uint64 // parent id → language → child id
	nextID   atomic.Uint64
}

// NewStore creates an empty arena. The first allocated id is 1.
func NewStore() *Store {
	return &Store{
		records:  make(map[uint64]*Record),
		children: make(map[uint64]map[string]uint64),
	}
}

// Create allocates a record for a new session. parent is 0 for
// top-level sessions.
func (s *Store) Create(language string, eng plugin.Engine, handle uint32, parent uint64) *Record {
	rec := &Record{
		ID:       s.nextID.Add(1),
		Language: language,
		Engine:   eng,
		Handle:   handle,
		Parent:   parent,
	}
	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
	return rec
}

// Get returns the record for id, or ErrInvalidSession.
func (s *Store) Get(id uint64) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidSession
	}
	return rec, nil
}

// Child returns the child session id that parent keeps for language.
func (s *Store) Child(parent uint64, language string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.children[parent][language]
	return id, ok
}

// SetChild records child as parent's session for language.
func (s *Store) SetChild(parent uint64, language string, child uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.children[parent]
	if !ok {
		m = make(map[string]uint64)
		s.children[parent] = m
	}
	m[language] = child
}

// Children returns the live child session ids of id, in no particular
// order.
func (s *Store) Children(id uint64) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.children[id]
	if len(m) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(m))
	for _, cid := range m {
		ids = append(ids, cid)
	}
	return ids
}

// Free releases id and every descendant session. Unknown ids are a
// no-op, so Free is idempotent. Engine handles are released post-order,
// children before their parent.
//
// Freeing a session with a parse in flight is a caller error; cancel
// first.
func (s *Store) Free(id uint64) {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	if rec.Parent != 0 {
		for lang, cid := range s.children[rec.Parent] {
			if cid == id {
				delete(s.children[rec.Parent], lang)
			}
		}
	}
	doomed := s.collectPostOrder(id, nil)
	for _, r := range doomed {
		delete(s.records, r.ID)
		delete(s.children, r.ID)
	}
	s.mu.Unlock()

	for _, r := range doomed {
		r.Engine.FreeSession(r.Handle)
	}
}

// collectPostOrder appends id's subtree to out, deepest first. Caller
// holds s.mu.
func (s *Store) collectPostOrder(id uint64, out []*Record) []*Record {
	for _, cid := range s.children[id] {
		out = s.collectPostOrder(cid, out)
	}
	if rec, ok := s.records[id]; ok {
		out = append(out, rec)
	}
	return out
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
