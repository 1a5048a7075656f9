package daily_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-progression-service/internal/daily"
	"quiz-progression-service/internal/domain"
	"quiz-progression-service/internal/infra/memory"
)

func tenQuestions() []domain.Question {
	questions := make([]domain.Question, 0, 10)
	for i := 1; i <= 10; i++ {
		questions = append(questions, domain.Question{
			ID:            int64(i),
			Number:        i,
			CorrectOption: "A",
			Difficulty:    domain.DifficultyEasy,
			IsActive:      true,
		})
	}
	return questions
}

func gmt7() *time.Location {
	return time.FixedZone("GMT+7", 7*3600)
}

func TestResolveIsDeterministic(t *testing.T) {
	ctx := context.Background()
	catalog := memory.NewCatalog(tenQuestions())
	selector := daily.NewSelector(catalog, daily.Config{})

	date := time.Date(2024, 6, 1, 12, 0, 0, 0, gmt7())
	first, err := selector.Resolve(ctx, date)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.DateKey != "2024-06-01" {
		t.Fatalf("expected date key 2024-06-01, got %s", first.DateKey)
	}
	if first.TargetIndex < 1 || first.TargetIndex > 10 {
		t.Fatalf("target out of range: %d", first.TargetIndex)
	}
	for i := 0; i < 20; i++ {
		again, err := selector.Resolve(ctx, date)
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if again.Question.ID != first.Question.ID || again.TargetIndex != first.TargetIndex {
			t.Fatalf("resolution drifted: %+v vs %+v", again, first)
		}
	}
}

func TestIndexIgnoresActiveSet(t *testing.T) {
	ctx := context.Background()
	catalog := memory.NewCatalog(tenQuestions())
	selector := daily.NewSelector(catalog, daily.Config{})
	date := time.Date(2024, 6, 1, 12, 0, 0, 0, gmt7())

	indexBefore := selector.Index(date)
	before, err := selector.Resolve(ctx, date)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Shrinking the active set changes which question is served, but not the
	// underlying pseudo-index.
	for id := int64(6); id <= 10; id++ {
		catalog.SetActive(id, false)
	}
	after, err := selector.Resolve(ctx, date)
	if err != nil {
		t.Fatalf("resolve after deactivation: %v", err)
	}
	if selector.Index(date) != indexBefore {
		t.Fatalf("index changed with active set")
	}
	if after.TargetIndex == before.TargetIndex && before.TargetIndex > 5 {
		t.Fatalf("target should be reduced modulo the new count")
	}
	if after.TargetIndex < 1 || after.TargetIndex > 5 {
		t.Fatalf("target out of range for 5 active questions: %d", after.TargetIndex)
	}
}

func TestIndexVariesByDateAndSalt(t *testing.T) {
	catalog := memory.NewCatalog(tenQuestions())
	defaultSelector := daily.NewSelector(catalog, daily.Config{})
	saltedSelector := daily.NewSelector(catalog, daily.Config{Salt: "other-salt"})

	d1 := time.Date(2024, 6, 1, 12, 0, 0, 0, gmt7())
	d2 := time.Date(2024, 6, 2, 12, 0, 0, 0, gmt7())
	if defaultSelector.Index(d1) == defaultSelector.Index(d2) {
		t.Fatalf("index constant across dates")
	}
	if defaultSelector.Index(d1) == saltedSelector.Index(d1) {
		t.Fatalf("expected salt to perturb the index")
	}
}

func TestResolveFallsBackOverGaps(t *testing.T) {
	ctx := context.Background()
	// Numbers 2, 5, 9: count=3, so targets are 1..3 and never match exactly
	// except target 2.
	catalog := memory.NewCatalog([]domain.Question{
		{ID: 20, Number: 2, CorrectOption: "A", Difficulty: domain.DifficultyEasy, IsActive: true},
		{ID: 50, Number: 5, CorrectOption: "A", Difficulty: domain.DifficultyEasy, IsActive: true},
		{ID: 90, Number: 9, CorrectOption: "A", Difficulty: domain.DifficultyEasy, IsActive: true},
	})
	selector := daily.NewSelector(catalog, daily.Config{})

	// Scan a window of dates so every target ordinal comes up.
	for day := 1; day <= 14; day++ {
		date := time.Date(2024, 6, day, 12, 0, 0, 0, gmt7())
		selection, err := selector.Resolve(ctx, date)
		if err != nil {
			t.Fatalf("resolve day %d: %v", day, err)
		}
		switch selection.Question.ID {
		case 20, 50, 90:
		default:
			t.Fatalf("resolved unknown question %+v", selection.Question)
		}
		if selection.Question.Number < selection.TargetIndex {
			t.Fatalf("fallback went below target: %+v", selection)
		}
	}
}

// wrappingCatalog simulates the active set shrinking between the count and
// the by-number lookups, which forces the final any-active fallback.
type wrappingCatalog struct {
	first domain.Question
}

func (c wrappingCatalog) CountActiveQuestions(context.Context) (int, error) {
	return 7, nil
}

func (c wrappingCatalog) FindActiveQuestionByNumber(_ context.Context, number int, match domain.NumberMatch) (domain.Question, error) {
	if number == 1 && match == domain.MatchGTE {
		return c.first, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func TestResolveWrapsToAnyActive(t *testing.T) {
	first := domain.Question{ID: 42, Number: 1, CorrectOption: "A", Difficulty: domain.DifficultyEasy, IsActive: true}
	selector := daily.NewSelector(wrappingCatalog{first: first}, daily.Config{})

	selection, err := selector.Resolve(context.Background(), time.Date(2024, 7, 1, 12, 0, 0, 0, gmt7()))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if selection.Question.ID != 42 {
		t.Fatalf("expected wrap to the first active question, got %+v", selection.Question)
	}
}

func TestResolveNoActiveQuestions(t *testing.T) {
	catalog := memory.NewCatalog(nil)
	selector := daily.NewSelector(catalog, daily.Config{})
	_, err := selector.Resolve(context.Background(), time.Now())
	if !errors.Is(err, domain.ErrNoDailyQuestion) {
		t.Fatalf("expected no daily question, got %v", err)
	}
}

func TestNextReset(t *testing.T) {
	catalog := memory.NewCatalog(nil)
	selector := daily.NewSelector(catalog, daily.Config{})

	before := time.Date(2024, 6, 1, 7, 30, 0, 0, gmt7())
	reset := selector.NextReset(before)
	if !reset.Equal(time.Date(2024, 6, 1, 8, 0, 0, 0, gmt7())) {
		t.Fatalf("expected same-day reset, got %v", reset)
	}

	after := time.Date(2024, 6, 1, 8, 0, 0, 0, gmt7())
	reset = selector.NextReset(after)
	if !reset.Equal(time.Date(2024, 6, 2, 8, 0, 0, 0, gmt7())) {
		t.Fatalf("expected next-day reset at the boundary, got %v", reset)
	}

	last := selector.LastReset(after)
	if !last.Equal(time.Date(2024, 6, 1, 8, 0, 0, 0, gmt7())) {
		t.Fatalf("expected last reset this morning, got %v", last)
	}
}
