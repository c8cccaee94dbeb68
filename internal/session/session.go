// Package session keeps per-user quiz state in memory.
package session

import (
	"sync"

	"github.com/m3rciful/triviabot/internal/trivia"
)

// Session tracks the questions a user has seen and the ones still queued.
// The pool is a stack: the most recently fetched question is served first.
type Session struct {
	mu        sync.Mutex
	processed map[string]struct{}
	pool      []trivia.Question
}

func newSession() *Session {
	return &Session{processed: make(map[string]struct{})}
}

// Absorb appends questions whose text has not been processed yet.
func (s *Session) Absorb(questions []trivia.Question) (added, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		if _, seen := s.processed[q.Question]; seen {
			continue
		}
		s.pool = append(s.pool, q)
		added++
	}
	return added, len(s.pool)
}

// Pop removes the last pooled question and marks its text as processed.
func (s *Session) Pop() (trivia.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.pool)
	if n == 0 {
		return trivia.Question{}, false
	}
	q := s.pool[n-1]
	s.pool[n-1] = trivia.Question{}
	s.pool = s.pool[:n-1]
	s.processed[q.Question] = struct{}{}
	return q, true
}

// Len returns the number of pooled questions.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pool)
}

// Processed returns the number of questions already served.
func (s *Session) Processed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processed)
}

// Seen reports whether a question text was already served.
func (s *Session) Seen(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[text]
	return ok
}

// Store maps user ids to sessions. At most one session exists per user.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewStore constructs an empty in-memory Store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the session for a user if it exists.
func (s *Store) Get(userID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// CreateIfAbsent returns the user's session, creating it when missing.
// An existing session is returned untouched.
func (s *Store) CreateIfAbsent(userID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess, false
	}
	sess := newSession()
	s.sessions[userID] = sess
	return sess, true
}

// Remove deletes the user's session and returns it.
func (s *Store) Remove(userID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if ok {
		delete(s.sessions, userID)
	}
	return sess, ok
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
