package app

import (
	"context"
	"errors"
	"time"

	"quiz-progression-service/internal/daily"
	"quiz-progression-service/internal/domain"
	"quiz-progression-service/internal/level"
)

// AttemptLedger is the transactional core. RecordAttempt is all-or-nothing:
// implementations must guarantee that at most one attempt per (user,
// question) is ever credited as first-correct, even under concurrent
// submissions, and must retry serialization conflicts internally.
type AttemptLedger interface {
	HasCorrectAttempt(ctx context.Context, userID string, questionID int64) (bool, error)
	HasAttemptSince(ctx context.Context, userID string, questionID int64, since time.Time) (bool, error)
	RecordAttempt(ctx context.Context, question domain.Question, sub domain.Submission) (domain.AttemptOutcome, error)
	GetUserStats(ctx context.Context, userID string) (domain.UserStats, error)
	RebuildUserStats(ctx context.Context, userID string) (domain.UserStats, error)
}

// QuestionCatalog loads question content (from cache/backing store).
type QuestionCatalog interface {
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	CountActiveQuestions(ctx context.Context) (int, error)
	FindActiveQuestionByNumber(ctx context.Context, number int, match domain.NumberMatch) (domain.Question, error)
}

// SessionRepository abstracts how per-user progress sessions are stored
// (in-memory, Redis-backed, etc).
type SessionRepository interface {
	GetOrCreate(userID string) *Session
	Get(userID string) (*Session, bool)
	DeleteIfEmpty(userID string)
}

// SubmissionResult is the caller-facing outcome of one submission.
type SubmissionResult struct {
	AttemptID     int64  `json:"attemptId"`
	QuestionID    int64  `json:"questionId"`
	IsCorrect     bool   `json:"isCorrect"`
	CorrectOption string `json:"correctOption"`
	XPEarned      int    `json:"xpEarned"`
	LeveledUp     bool   `json:"leveledUp"`
	CurrentLevel  int    `json:"currentLevel"`
	CurrentTitle  string `json:"currentTitle"`
	XPToNextLevel int    `json:"xpToNextLevel"`
	CurrentStreak int    `json:"currentStreak"`
}

// DailyInfo describes today's question without revealing the answer.
type DailyInfo struct {
	Question       domain.Question `json:"question"`
	ResetAt        time.Time       `json:"resetAt"`
	TimeUntilReset time.Duration   `json:"timeUntilReset"`
}

// ProgressionService composes the ledger, the level calculator and the daily
// selector into the submission use case.
type ProgressionService struct {
	ledger   AttemptLedger
	catalog  QuestionCatalog
	selector *daily.Selector
	sessions SessionRepository
	clock    func() time.Time
}

func NewProgressionService(ledger AttemptLedger, catalog QuestionCatalog, selector *daily.Selector, sessions SessionRepository) *ProgressionService {
	return &ProgressionService{
		ledger:   ledger,
		catalog:  catalog,
		selector: selector,
		sessions: sessions,
		clock:    time.Now,
	}
}

// NewProgressionServiceWithClock is test-only for deterministic timestamps.
func NewProgressionServiceWithClock(ledger AttemptLedger, catalog QuestionCatalog, selector *daily.Selector, sessions SessionRepository, now func() time.Time) *ProgressionService {
	s := NewProgressionService(ledger, catalog, selector, sessions)
	s.clock = now
	return s
}

// SubmitAttempt validates and records one answer. Validation and the daily
// guard run before any transaction: they depend only on the clock and the
// read-only question set, never on contested per-user state.
func (s *ProgressionService) SubmitAttempt(ctx context.Context, sub domain.Submission) (SubmissionResult, error) {
	if !domain.ValidOption(sub.SelectedOption) {
		return SubmissionResult{}, domain.ErrInvalidOption
	}

	question, err := s.catalog.GetQuestion(ctx, sub.QuestionID)
	if err != nil {
		return SubmissionResult{}, err
	}
	if !question.IsActive {
		return SubmissionResult{}, domain.ErrQuestionInactive
	}

	now := s.clock()
	if sub.IsDaily {
		if err := s.checkDaily(ctx, sub, now); err != nil {
			return SubmissionResult{}, err
		}
	}

	outcome, err := s.ledger.RecordAttempt(ctx, question, sub)
	if err != nil {
		return SubmissionResult{}, err
	}

	result := SubmissionResult{
		AttemptID:     outcome.Attempt.ID,
		QuestionID:    question.ID,
		IsCorrect:     outcome.Attempt.IsCorrect,
		CorrectOption: question.CorrectOption,
		XPEarned:      outcome.XPEarned,
		LeveledUp:     level.DidLevelUp(outcome.PrevXP, outcome.Stats.TotalXP),
		CurrentLevel:  outcome.Stats.CurrentLevel,
		CurrentTitle:  outcome.Stats.CurrentTitle,
		XPToNextLevel: level.XPToNext(outcome.Stats.CurrentLevel, outcome.Stats.TotalXP),
		CurrentStreak: outcome.Stats.CurrentStreak,
	}

	s.publish(sub.UserID, outcome.Stats, &result)
	return result, nil
}

// checkDaily enforces that a daily submission targets today's question and
// that the user has not already used up the current reset window.
func (s *ProgressionService) checkDaily(ctx context.Context, sub domain.Submission, now time.Time) error {
	selection, err := s.selector.Resolve(ctx, now)
	if err != nil {
		return err
	}
	if selection.Question.ID != sub.QuestionID {
		return domain.ErrNotDailyQuestion
	}

	attempted, err := s.ledger.HasAttemptSince(ctx, sub.UserID, sub.QuestionID, s.selector.LastReset(now))
	if err != nil {
		return err
	}
	if attempted {
		return domain.ErrDailyAlreadyAttempted
	}
	return nil
}

// DailyQuestionInfo returns today's question and when it rotates next.
func (s *ProgressionService) DailyQuestionInfo(ctx context.Context) (DailyInfo, error) {
	now := s.clock()
	selection, err := s.selector.Resolve(ctx, now)
	if err != nil {
		return DailyInfo{}, err
	}
	question := selection.Question
	question.CorrectOption = "" // answers never leave the service early
	return DailyInfo{
		Question:       question,
		ResetAt:        selection.ResetAt,
		TimeUntilReset: selection.ResetAt.Sub(now),
	}, nil
}

// UserStats returns the current aggregate for a user; a user with no
// attempts yet gets a fresh zero aggregate rather than an error.
func (s *ProgressionService) UserStats(ctx context.Context, userID, userEmail string) (domain.UserStats, error) {
	stats, err := s.ledger.GetUserStats(ctx, userID)
	if errors.Is(err, domain.ErrUserStatsNotFound) {
		return NewUserStats(userID, userEmail), nil
	}
	return stats, err
}

// Join registers a progress session for the user and returns the current
// stats snapshot.
func (s *ProgressionService) Join(ctx context.Context, userID, userEmail string) (domain.UserStats, error) {
	stats, err := s.UserStats(ctx, userID, userEmail)
	if err != nil {
		return domain.UserStats{}, err
	}
	s.sessions.GetOrCreate(userID)
	return stats, nil
}

// Subscribe returns a channel that receives progress updates for a user.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *ProgressionService) Subscribe(_ context.Context, userID string) (<-chan ProgressUpdate, func(), error) {
	session := s.sessions.GetOrCreate(userID)
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Leave drops the user's session once its last subscriber is gone.
func (s *ProgressionService) Leave(_ context.Context, userID string) {
	s.sessions.DeleteIfEmpty(userID)
}

func (s *ProgressionService) publish(userID string, stats domain.UserStats, result *SubmissionResult) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return
	}
	session.publish(ProgressUpdate{
		Stats:     stats,
		Result:    result,
		UpdatedAt: s.clock(),
	})
}
