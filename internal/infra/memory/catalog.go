package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-progression-service/internal/domain"
)

// Catalog is an in-memory question catalog (useful for tests/demos and
// redis-less runs).
type Catalog struct {
	mu        sync.RWMutex
	questions map[int64]domain.Question
}

func NewCatalog(questions []domain.Question) *Catalog {
	byID := make(map[int64]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &Catalog{questions: byID}
}

func (c *Catalog) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	question, ok := c.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, nil
}

func (c *Catalog) CountActiveQuestions(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	count := 0
	for _, q := range c.questions {
		if q.IsActive {
			count++
		}
	}
	return count, nil
}

func (c *Catalog) FindActiveQuestionByNumber(_ context.Context, number int, match domain.NumberMatch) (domain.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	active := make([]domain.Question, 0, len(c.questions))
	for _, q := range c.questions {
		if q.IsActive {
			active = append(active, q)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Number < active[j].Number })

	for _, q := range active {
		if q.Number == number || (match == domain.MatchGTE && q.Number > number) {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

// ListActiveQuestions returns the active set ordered by number.
func (c *Catalog) ListActiveQuestions(_ context.Context) ([]domain.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	active := make([]domain.Question, 0, len(c.questions))
	for _, q := range c.questions {
		if q.IsActive {
			active = append(active, q)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Number < active[j].Number })
	return active, nil
}

// SetActive flips a question's active flag; tests use it to shrink or grow
// the daily selection pool.
func (c *Catalog) SetActive(id int64, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok := c.questions[id]; ok {
		q.IsActive = active
		c.questions[id] = q
	}
}
