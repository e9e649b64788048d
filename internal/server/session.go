package server

import (
	"sync"

	"github.com/google/uuid"
)

const sessionQueueSize = 16

// Session is one SSE protocol conversation: a push channel for responses
// and a queue of inbound request records posted to the message endpoint.
// A single dispatch goroutine drains the queue, so responses are emitted
// in strict submission order even when a client pipelines POSTs.
type Session struct {
	ID        string
	requests  chan []byte
	responses chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		requests:  make(chan []byte, sessionQueueSize),
		responses: make(chan []byte, sessionQueueSize),
		done:      make(chan struct{}),
	}
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed when the session has been torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// SessionStore tracks active SSE sessions, keyed by session token.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore constructs an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Add registers a session under its token.
func (st *SessionStore) Add(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
}

// Get returns the live session for the token, if any.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Remove closes and forgets the session for the token.
func (st *SessionStore) Remove(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	if ok {
		delete(st.sessions, id)
	}
	st.mu.Unlock()
	if ok {
		s.Close()
	}
}

// CloseAll tears down every active session; used on server shutdown.
func (st *SessionStore) CloseAll() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, s := range st.sessions {
		s.Close()
		delete(st.sessions, id)
	}
}
