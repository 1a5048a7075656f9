package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-progression-service/internal/app"
	"quiz-progression-service/internal/domain"
)

// serializationFailure is the SQLSTATE Postgres reports when a serializable
// transaction must be retried.
const serializationFailure = "40001"

const defaultMaxRetries = 3

// AttemptLedger is the Postgres implementation of app.AttemptLedger. Every
// recorded attempt runs inside one serializable transaction: the in-tx
// existence check, the attempt insert and the stats upsert commit together
// or not at all, so no application-level lock is needed and concurrent
// submissions from any replica serialize behind the first correct one.
type AttemptLedger struct {
	pool       *pgxpool.Pool
	maxRetries int
	clock      func() time.Time
}

func NewAttemptLedger(pool *pgxpool.Pool, maxRetries int) *AttemptLedger {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &AttemptLedger{pool: pool, maxRetries: maxRetries, clock: time.Now}
}

const existsCorrectSQL = `SELECT EXISTS (
	SELECT 1 FROM attempts WHERE user_id=$1 AND question_id=$2 AND is_correct
)`

// HasCorrectAttempt is the non-transactional fast path. It shares its query
// shape with the authoritative in-transaction check but is advisory only;
// correctness never depends on it.
func (l *AttemptLedger) HasCorrectAttempt(ctx context.Context, userID string, questionID int64) (bool, error) {
	var exists bool
	if err := l.pool.QueryRow(ctx, existsCorrectSQL, userID, questionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check correct attempt: %w", err)
	}
	return exists, nil
}

func (l *AttemptLedger) HasAttemptSince(ctx context.Context, userID string, questionID int64, since time.Time) (bool, error) {
	var exists bool
	err := l.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM attempts WHERE user_id=$1 AND question_id=$2 AND answered_at>=$3
	)`, userID, questionID, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attempt since: %w", err)
	}
	return exists, nil
}

// RecordAttempt validates against prior attempts and persists the new one.
// Serialization conflicts are retried here with the same inputs; nothing
// escapes an aborted transaction, so the retry is idempotent.
func (l *AttemptLedger) RecordAttempt(ctx context.Context, question domain.Question, sub domain.Submission) (domain.AttemptOutcome, error) {
	solved, err := l.HasCorrectAttempt(ctx, sub.UserID, sub.QuestionID)
	if err != nil {
		return domain.AttemptOutcome{}, err
	}
	if solved {
		return domain.AttemptOutcome{}, domain.ErrAlreadySolved
	}

	var lastErr error
	for try := 0; try <= l.maxRetries; try++ {
		outcome, err := l.recordOnce(ctx, question, sub)
		if err == nil || !isSerializationFailure(err) {
			return outcome, err
		}
		lastErr = err
		log.Printf("attempt for user %s question %d hit a serialization conflict, retrying (%d/%d)",
			sub.UserID, sub.QuestionID, try+1, l.maxRetries)
	}
	return domain.AttemptOutcome{}, fmt.Errorf("%w: %v", domain.ErrConflictRetry, lastErr)
}

func (l *AttemptLedger) recordOnce(ctx context.Context, question domain.Question, sub domain.Submission) (domain.AttemptOutcome, error) {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return domain.AttemptOutcome{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// The authoritative re-check. Two concurrent first-correct submissions
	// both pass it, but serializable isolation aborts one of them at commit.
	var solved bool
	if err := tx.QueryRow(ctx, existsCorrectSQL, sub.UserID, sub.QuestionID).Scan(&solved); err != nil {
		return domain.AttemptOutcome{}, fmt.Errorf("recheck correct attempt: %w", err)
	}
	if solved {
		return domain.AttemptOutcome{}, domain.ErrAlreadySolved
	}

	isCorrect := sub.SelectedOption == question.CorrectOption
	xpEarned := app.FirstCorrectXP(question, isCorrect, solved)

	attempt := domain.Attempt{
		QuestionID:     sub.QuestionID,
		UserID:         sub.UserID,
		UserEmail:      sub.UserEmail,
		SelectedOption: sub.SelectedOption,
		IsCorrect:      isCorrect,
		AnsweredAt:     l.clock().UTC(),
	}
	err = tx.QueryRow(ctx, `INSERT INTO attempts
		(question_id, user_id, user_email, selected_option, is_correct, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		attempt.QuestionID, attempt.UserID, attempt.UserEmail,
		attempt.SelectedOption, attempt.IsCorrect, attempt.AnsweredAt,
	).Scan(&attempt.ID)
	if err != nil {
		return domain.AttemptOutcome{}, fmt.Errorf("insert attempt: %w", err)
	}

	stats, err := statsForUpdate(ctx, tx, sub.UserID, sub.UserEmail)
	if err != nil {
		return domain.AttemptOutcome{}, err
	}
	prevXP := stats.TotalXP
	app.ApplyAttempt(&stats, question, attempt, xpEarned)

	if err := upsertStats(ctx, tx, stats); err != nil {
		return domain.AttemptOutcome{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.AttemptOutcome{}, fmt.Errorf("commit: %w", err)
	}

	return domain.AttemptOutcome{
		Attempt:      attempt,
		Stats:        stats,
		XPEarned:     xpEarned,
		PrevXP:       prevXP,
		FirstCorrect: isCorrect,
	}, nil
}

func (l *AttemptLedger) GetUserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	return scanStats(l.pool.QueryRow(ctx, selectStatsSQL, userID))
}

// RebuildUserStats replays the user's full attempt log through the same fold
// the hot path uses and replaces the aggregate with the result. It is the
// repair tool for an aggregate suspected of drifting from the log.
func (l *AttemptLedger) RebuildUserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT a.id, a.question_id, a.user_id, a.user_email,
		a.selected_option, a.is_correct, a.answered_at,
		q.number, q.difficulty
		FROM attempts a JOIN questions q ON q.id = a.question_id
		WHERE a.user_id=$1 ORDER BY a.answered_at, a.id`, userID)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("load attempts: %w", err)
	}

	var attempts []domain.Attempt
	questions := make(map[int64]domain.Question)
	email := ""
	for rows.Next() {
		var a domain.Attempt
		var q domain.Question
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.UserID, &a.UserEmail,
			&a.SelectedOption, &a.IsCorrect, &a.AnsweredAt,
			&q.Number, &q.Difficulty); err != nil {
			rows.Close()
			return domain.UserStats{}, fmt.Errorf("scan attempt: %w", err)
		}
		q.ID = a.QuestionID
		attempts = append(attempts, a)
		questions[q.ID] = q
		email = a.UserEmail
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.UserStats{}, fmt.Errorf("iterate attempts: %w", err)
	}
	if len(attempts) == 0 {
		return domain.UserStats{}, domain.ErrUserStatsNotFound
	}

	stats := app.RebuildStats(userID, email, attempts, questions)
	if err := upsertStats(ctx, tx, stats); err != nil {
		return domain.UserStats{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.UserStats{}, fmt.Errorf("commit: %w", err)
	}
	return stats, nil
}

const selectStatsSQL = `SELECT user_id, user_email,
	total_answered, total_correct,
	easy_answered, easy_correct, medium_answered, medium_correct, hard_answered, hard_correct,
	current_streak, longest_streak, last_answered_at,
	total_xp, current_level, current_title
	FROM user_stats WHERE user_id=$1`

func statsForUpdate(ctx context.Context, tx pgx.Tx, userID, userEmail string) (domain.UserStats, error) {
	stats, err := scanStats(tx.QueryRow(ctx, selectStatsSQL, userID))
	if errors.Is(err, domain.ErrUserStatsNotFound) {
		return app.NewUserStats(userID, userEmail), nil
	}
	return stats, err
}

func scanStats(row pgx.Row) (domain.UserStats, error) {
	var stats domain.UserStats
	var lastAnswered *time.Time
	err := row.Scan(&stats.UserID, &stats.UserEmail,
		&stats.TotalQuestionsAnswered, &stats.TotalCorrectAnswers,
		&stats.EasyAnswered, &stats.EasyCorrect,
		&stats.MediumAnswered, &stats.MediumCorrect,
		&stats.HardAnswered, &stats.HardCorrect,
		&stats.CurrentStreak, &stats.LongestStreak, &lastAnswered,
		&stats.TotalXP, &stats.CurrentLevel, &stats.CurrentTitle,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserStats{}, domain.ErrUserStatsNotFound
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("scan user stats: %w", err)
	}
	if lastAnswered != nil {
		stats.LastAnsweredAt = *lastAnswered
	}
	return stats, nil
}

func upsertStats(ctx context.Context, tx pgx.Tx, stats domain.UserStats) error {
	var lastAnswered *time.Time
	if !stats.LastAnsweredAt.IsZero() {
		t := stats.LastAnsweredAt
		lastAnswered = &t
	}
	_, err := tx.Exec(ctx, `INSERT INTO user_stats
		(user_id, user_email, total_answered, total_correct,
		 easy_answered, easy_correct, medium_answered, medium_correct, hard_answered, hard_correct,
		 current_streak, longest_streak, last_answered_at, total_xp, current_level, current_title)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (user_id) DO UPDATE SET
		 user_email=EXCLUDED.user_email,
		 total_answered=EXCLUDED.total_answered,
		 total_correct=EXCLUDED.total_correct,
		 easy_answered=EXCLUDED.easy_answered,
		 easy_correct=EXCLUDED.easy_correct,
		 medium_answered=EXCLUDED.medium_answered,
		 medium_correct=EXCLUDED.medium_correct,
		 hard_answered=EXCLUDED.hard_answered,
		 hard_correct=EXCLUDED.hard_correct,
		 current_streak=EXCLUDED.current_streak,
		 longest_streak=EXCLUDED.longest_streak,
		 last_answered_at=EXCLUDED.last_answered_at,
		 total_xp=EXCLUDED.total_xp,
		 current_level=EXCLUDED.current_level,
		 current_title=EXCLUDED.current_title`,
		stats.UserID, stats.UserEmail,
		stats.TotalQuestionsAnswered, stats.TotalCorrectAnswers,
		stats.EasyAnswered, stats.EasyCorrect,
		stats.MediumAnswered, stats.MediumCorrect,
		stats.HardAnswered, stats.HardCorrect,
		stats.CurrentStreak, stats.LongestStreak, lastAnswered,
		stats.TotalXP, stats.CurrentLevel, stats.CurrentTitle,
	)
	if err != nil {
		return fmt.Errorf("upsert user stats: %w", err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}
