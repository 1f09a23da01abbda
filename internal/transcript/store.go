package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds the turns of one conversation. Turns are never modified,
// reordered or removed once appended, and every read returns copies.
type Store struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append validates t, assigns its sequence number, ID and timestamp, and adds
// it to the end of the log. A timestamp earlier than the previous turn's is
// raised to it so the log stays non-decreasing.
func (s *Store) Append(t Turn) (Turn, error) {
	if err := t.validate(); err != nil {
		return Turn{}, err
	}
	t = t.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = s.now()
	}
	t.Timestamp = t.Timestamp.UTC()
	if n := len(s.turns); n > 0 {
		if prev := s.turns[n-1].Timestamp; t.Timestamp.Before(prev) {
			t.Timestamp = prev
		}
	}
	t.Seq = len(s.turns) + 1
	s.turns = append(s.turns, t)
	return t.Clone(), nil
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// List returns every turn in sequence order.
func (s *Store) List() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	for i, t := range s.turns {
		out[i] = t.Clone()
	}
	return out
}

// Get returns the turn with the given 1-based sequence number.
func (s *Store) Get(seq int) (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if seq < 1 || seq > len(s.turns) {
		return Turn{}, false
	}
	return s.turns[seq-1].Clone(), true
}

// Last returns the most recent turn.
func (s *Store) Last() (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	return s.turns[len(s.turns)-1].Clone(), true
}

// Results returns the assistant turns that carry a classification, oldest
// first.
func (s *Store) Results() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Turn
	for _, t := range s.turns {
		if t.Role == RoleAssistant && t.Result != nil {
			out = append(out, t.Clone())
		}
	}
	return out
}
