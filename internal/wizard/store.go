package wizard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one visitor's pass through the wizard.
type Session struct {
	ID string

	// mu serialises everything that reads or replaces step, including the backend calls in between.
	mu       sync.Mutex
	step     Step
	lastSeen time.Time
}

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Store keeps sessions in memory. Sessions not used for the configured lifetime are dropped.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	lifetime time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewStore(lifetime time.Duration, logger *slog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		lifetime: lifetime,
		now:      time.Now,
		logger:   logger.With(slog.String("source", "wizard")),
	}
}

// Create starts a session on the input step.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{ID: uuid.NewString(), step: InputStep{}, lastSeen: s.now()}
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns a live session and marks it as used.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(sess.lastSeen) > s.lifetime {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

// Delete drops a session. In-flight requests of its run finish into state nobody reads.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Expire drops sessions idle for longer than the lifetime and returns how many were dropped.
func (s *Store) Expire() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	expired := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.lifetime {
			delete(s.sessions, id)
			expired++
		}
	}
	return expired
}

// StartJanitor expires idle sessions every interval until ctx is done.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Expire(); n > 0 {
				s.logger.LogAttrs(ctx, slog.LevelDebug, "expired wizard sessions", slog.Int("count", n))
			}
		}
	}
}
