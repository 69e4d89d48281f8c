package app

import (
	"sync"

	"github.com/yourusername/ytdl-relay/internal/domain"
)

// SessionStore is the process-wide mapping from video id to session state.
// Every read returns a copy; every write is applied under one mutex that is
// never held across I/O.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	subs     map[string]map[*subscription]struct{}
}

type subscription struct {
	ch chan domain.Session
}

// NewSessionStore creates an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
		subs:     make(map[string]map[*subscription]struct{}),
	}
}

// Put stores session under id, replacing any previous record
func (s *SessionStore) Put(id string, session domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = session
	s.publishLocked(id, session)
}

// Get returns a copy of the session for id. ok is false when no session was
// ever stored for id.
func (s *SessionStore) Get(id string) (session domain.Session, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok = s.sessions[id]
	return session, ok
}

// Update applies fn to the session for id if it still belongs to attempt.
// The change is discarded when the record was replaced by another attempt,
// is already terminal, or would move status or byte counts backwards.
// It reports whether the change was published.
func (s *SessionStore) Update(id, attempt string, fn func(*domain.Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[id]
	if !ok || current.Attempt != attempt || current.IsTerminal() {
		return false
	}

	next := current
	fn(&next)

	if next.ID != current.ID || next.Attempt != current.Attempt {
		return false
	}
	if !current.Status.CanTransitionTo(next.Status) {
		return false
	}
	if next.DownloadedBytes < current.DownloadedBytes {
		return false
	}

	s.sessions[id] = next
	s.publishLocked(id, next)
	return true
}

// Subscribe returns a channel that receives the latest session state for id
// after every change. Only the newest unread state is kept, so a slow reader
// skips intermediate values but never sees them out of order. The returned
// func releases the subscription; it must be called exactly once.
func (s *SessionStore) Subscribe(id string) (<-chan domain.Session, func()) {
	sub := &subscription{ch: make(chan domain.Session, 1)}

	s.mu.Lock()
	if s.subs[id] == nil {
		s.subs[id] = make(map[*subscription]struct{})
	}
	s.subs[id][sub] = struct{}{}
	if current, ok := s.sessions[id]; ok {
		sub.ch <- current
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[id], sub)
		if len(s.subs[id]) == 0 {
			delete(s.subs, id)
		}
		close(sub.ch)
	}
	return sub.ch, cancel
}

// Len returns the number of stored sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// publishLocked must be called with mu held for writing.
func (s *SessionStore) publishLocked(id string, session domain.Session) {
	for sub := range s.subs[id] {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- session
	}
}
