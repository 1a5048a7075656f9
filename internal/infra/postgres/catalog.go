package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-progression-service/internal/domain"
)

// Catalog reads question content from Postgres. The engine never writes to
// the questions table; it is owned by the catalog side of the system.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

const questionColumns = `id, number, text, option_a, option_b, option_c, option_d, correct_option, difficulty, is_active`

func (c *Catalog) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, id)
	return scanQuestion(row)
}

func (c *Catalog) CountActiveQuestions(ctx context.Context) (int, error) {
	var count int
	if err := c.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE is_active`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active questions: %w", err)
	}
	return count, nil
}

func (c *Catalog) FindActiveQuestionByNumber(ctx context.Context, number int, match domain.NumberMatch) (domain.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE is_active AND number=$1`
	if match == domain.MatchGTE {
		query = `SELECT ` + questionColumns + ` FROM questions WHERE is_active AND number>=$1 ORDER BY number LIMIT 1`
	}
	return scanQuestion(c.pool.QueryRow(ctx, query, number))
}

// ListActiveQuestions returns the full active set ordered by number; the
// caching layer uses it to build its index in one round trip.
func (c *Catalog) ListActiveQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := c.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE is_active ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("list active questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(
			&q.ID, &q.Number, &q.Text,
			&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectOption, &q.Difficulty, &q.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	err := row.Scan(
		&q.ID, &q.Number, &q.Text,
		&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
		&q.CorrectOption, &q.Difficulty, &q.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	return q, nil
}
