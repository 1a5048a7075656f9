package memory

import (
	"context"
	"sync"
	"time"

	"quiz-progression-service/internal/app"
	"quiz-progression-service/internal/domain"
)

// AttemptLedger is an in-memory implementation of app.AttemptLedger. A single
// mutex stands in for the database's serializable isolation: each recorded
// attempt is one atomic unit of work, so the one-correct-attempt invariant
// holds under concurrent submissions within this process.
type AttemptLedger struct {
	mu        sync.Mutex
	attempts  []domain.Attempt
	stats     map[string]domain.UserStats
	questions map[int64]domain.Question
	nextID    int64
	clock     func() time.Time
}

func NewAttemptLedger() *AttemptLedger {
	return &AttemptLedger{
		stats:     make(map[string]domain.UserStats),
		questions: make(map[int64]domain.Question),
		nextID:    1,
		clock:     time.Now,
	}
}

// NewAttemptLedgerWithClock is test-only for deterministic timestamps.
func NewAttemptLedgerWithClock(now func() time.Time) *AttemptLedger {
	l := NewAttemptLedger()
	l.clock = now
	return l
}

func (l *AttemptLedger) HasCorrectAttempt(_ context.Context, userID string, questionID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasCorrectLocked(userID, questionID), nil
}

func (l *AttemptLedger) HasAttemptSince(_ context.Context, userID string, questionID int64, since time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.attempts {
		if a.UserID == userID && a.QuestionID == questionID && !a.AnsweredAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (l *AttemptLedger) RecordAttempt(_ context.Context, question domain.Question, sub domain.Submission) (domain.AttemptOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Solved questions reject resubmission on both flows; a daily pick that
	// the user already solved some earlier day is simply not answerable again.
	solvedBefore := l.hasCorrectLocked(sub.UserID, sub.QuestionID)
	if solvedBefore {
		return domain.AttemptOutcome{}, domain.ErrAlreadySolved
	}

	isCorrect := sub.SelectedOption == question.CorrectOption
	firstCorrect := isCorrect && !solvedBefore
	xpEarned := app.FirstCorrectXP(question, isCorrect, solvedBefore)

	attempt := domain.Attempt{
		ID:             l.nextID,
		QuestionID:     sub.QuestionID,
		UserID:         sub.UserID,
		UserEmail:      sub.UserEmail,
		SelectedOption: sub.SelectedOption,
		IsCorrect:      isCorrect,
		AnsweredAt:     l.clock().UTC(),
	}
	l.nextID++
	l.attempts = append(l.attempts, attempt)
	l.questions[question.ID] = question

	stats, ok := l.stats[sub.UserID]
	if !ok {
		stats = app.NewUserStats(sub.UserID, sub.UserEmail)
	}
	prevXP := stats.TotalXP
	app.ApplyAttempt(&stats, question, attempt, xpEarned)
	l.stats[sub.UserID] = stats

	return domain.AttemptOutcome{
		Attempt:      attempt,
		Stats:        stats,
		XPEarned:     xpEarned,
		PrevXP:       prevXP,
		FirstCorrect: firstCorrect,
	}, nil
}

func (l *AttemptLedger) GetUserStats(_ context.Context, userID string) (domain.UserStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stats, ok := l.stats[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrUserStatsNotFound
	}
	return stats, nil
}

// RebuildUserStats replays the user's attempt log and replaces the aggregate
// with the result.
func (l *AttemptLedger) RebuildUserStats(_ context.Context, userID string) (domain.UserStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var userAttempts []domain.Attempt
	email := ""
	for _, a := range l.attempts {
		if a.UserID == userID {
			userAttempts = append(userAttempts, a)
			email = a.UserEmail
		}
	}
	if len(userAttempts) == 0 {
		return domain.UserStats{}, domain.ErrUserStatsNotFound
	}

	stats := app.RebuildStats(userID, email, userAttempts, l.questions)
	l.stats[userID] = stats
	return stats, nil
}

// CorrectAttemptCount returns how many correct attempts exist for the pair;
// tests assert the invariant with it.
func (l *AttemptLedger) CorrectAttemptCount(userID string, questionID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, a := range l.attempts {
		if a.UserID == userID && a.QuestionID == questionID && a.IsCorrect {
			count++
		}
	}
	return count
}

func (l *AttemptLedger) hasCorrectLocked(userID string, questionID int64) bool {
	for _, a := range l.attempts {
		if a.UserID == userID && a.QuestionID == questionID && a.IsCorrect {
			return true
		}
	}
	return false
}
