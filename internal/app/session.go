package app

import (
	"sync"
	"time"

	"quiz-progression-service/internal/domain"
)

// ProgressUpdate is pushed to subscribers after each recorded submission.
// Result is nil for snapshot-only updates.
type ProgressUpdate struct {
	Stats     domain.UserStats  `json:"stats"`
	Result    *SubmissionResult `json:"result,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Session fans progress updates out to the connections a user has open.
// Sessions hold no durable state; the ledger owns the truth.
type Session struct {
	userID      string
	mu          sync.RWMutex
	subscribers map[chan ProgressUpdate]struct{}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(userID string) *Session {
	return &Session{
		userID:      userID,
		subscribers: make(map[chan ProgressUpdate]struct{}),
	}
}

func (s *Session) subscribe() (<-chan ProgressUpdate, func()) {
	ch := make(chan ProgressUpdate, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) publish(update ProgressUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- update:
		default:
			// Drop the oldest pending update so slow readers never block
			// submissions.
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

func (s *Session) isEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers) == 0
}

// IsEmpty reports whether the session has no subscribers left.
func (s *Session) IsEmpty() bool {
	return s.isEmpty()
}
