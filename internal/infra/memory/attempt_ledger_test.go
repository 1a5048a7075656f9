package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"quiz-progression-service/internal/domain"
)

func easyQuestion() domain.Question {
	return domain.Question{
		ID:            1,
		Number:        1,
		Text:          "Pick B",
		OptionA:       "no",
		OptionB:       "yes",
		OptionC:       "no",
		OptionD:       "no",
		CorrectOption: "B",
		Difficulty:    domain.DifficultyEasy,
		IsActive:      true,
	}
}

func TestRecordAttemptFirstCorrectEarnsXP(t *testing.T) {
	ctx := context.Background()
	ledger := NewAttemptLedger()
	q := easyQuestion()

	out, err := ledger.RecordAttempt(ctx, q, domain.Submission{
		UserID: "u1", UserEmail: "u1@example.com", QuestionID: q.ID, SelectedOption: "B",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !out.FirstCorrect || out.XPEarned != 10 {
		t.Fatalf("expected first correct worth 10 XP, got %+v", out)
	}
	if out.Stats.TotalXP != 10 || out.Stats.TotalCorrectAnswers != 1 || out.Stats.EasyCorrect != 1 {
		t.Fatalf("unexpected stats: %+v", out.Stats)
	}
}

func TestRecordAttemptRejectsResubmitAfterSolved(t *testing.T) {
	ctx := context.Background()
	ledger := NewAttemptLedger()
	q := easyQuestion()
	sub := domain.Submission{UserID: "u1", UserEmail: "u1@example.com", QuestionID: q.ID, SelectedOption: "B"}

	if _, err := ledger.RecordAttempt(ctx, q, sub); err != nil {
		t.Fatalf("first record: %v", err)
	}
	before, _ := ledger.GetUserStats(ctx, "u1")

	_, err := ledger.RecordAttempt(ctx, q, sub)
	if !errors.Is(err, domain.ErrAlreadySolved) {
		t.Fatalf("expected already solved, got %v", err)
	}

	after, _ := ledger.GetUserStats(ctx, "u1")
	if after != before {
		t.Fatalf("rejection changed stats: before %+v after %+v", before, after)
	}
}

func TestRecordAttemptAllowsRetryAfterIncorrect(t *testing.T) {
	ctx := context.Background()
	ledger := NewAttemptLedger()
	q := easyQuestion()

	wrong := domain.Submission{UserID: "u1", UserEmail: "u1@example.com", QuestionID: q.ID, SelectedOption: "A"}
	out, err := ledger.RecordAttempt(ctx, q, wrong)
	if err != nil {
		t.Fatalf("record wrong: %v", err)
	}
	if out.Attempt.IsCorrect || out.XPEarned != 0 {
		t.Fatalf("expected incorrect zero-XP attempt, got %+v", out)
	}

	right := wrong
	right.SelectedOption = "B"
	out, err = ledger.RecordAttempt(ctx, q, right)
	if err != nil {
		t.Fatalf("record right: %v", err)
	}
	if !out.FirstCorrect || out.XPEarned != 10 {
		t.Fatalf("expected retry to earn XP, got %+v", out)
	}
	if out.Stats.TotalQuestionsAnswered != 2 {
		t.Fatalf("expected both attempts counted, got %+v", out.Stats)
	}
}

func TestConcurrentSubmissionsCreditExactlyOne(t *testing.T) {
	ctx := context.Background()
	ledger := NewAttemptLedger()
	q := easyQuestion()

	const submitters = 50
	var wg sync.WaitGroup
	wg.Add(submitters)
	for i := 0; i < submitters; i++ {
		go func() {
			defer wg.Done()
			_, _ = ledger.RecordAttempt(ctx, q, domain.Submission{
				UserID: "u1", UserEmail: "u1@example.com", QuestionID: q.ID, SelectedOption: "B",
			})
		}()
	}
	wg.Wait()

	if got := ledger.CorrectAttemptCount("u1", q.ID); got != 1 {
		t.Fatalf("expected exactly 1 correct attempt, got %d", got)
	}
	stats, err := ledger.GetUserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalCorrectAnswers != 1 || stats.TotalXP != 10 {
		t.Fatalf("expected one credited submission, got %+v", stats)
	}
}

func TestRebuildUserStatsMatchesIncremental(t *testing.T) {
	ctx := context.Background()
	ledger := NewAttemptLedger()
	easy := easyQuestion()
	hard := domain.Question{ID: 2, Number: 2, CorrectOption: "D", Difficulty: domain.DifficultyHard, IsActive: true}

	subs := []domain.Submission{
		{UserID: "u1", UserEmail: "u1@example.com", QuestionID: 1, SelectedOption: "A"},
		{UserID: "u1", UserEmail: "u1@example.com", QuestionID: 1, SelectedOption: "B"},
		{UserID: "u1", UserEmail: "u1@example.com", QuestionID: 2, SelectedOption: "D"},
	}
	questions := map[int64]domain.Question{1: easy, 2: hard}
	for _, sub := range subs {
		if _, err := ledger.RecordAttempt(ctx, questions[sub.QuestionID], sub); err != nil {
			t.Fatalf("record %+v: %v", sub, err)
		}
	}

	incremental, _ := ledger.GetUserStats(ctx, "u1")
	rebuilt, err := ledger.RebuildUserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if rebuilt != incremental {
		t.Fatalf("rebuild diverged:\nincremental %+v\nrebuilt     %+v", incremental, rebuilt)
	}
	if rebuilt.TotalXP != 60 {
		t.Fatalf("expected 60 XP (easy 10 + hard 50), got %d", rebuilt.TotalXP)
	}
}

func TestRebuildUserStatsUnknownUser(t *testing.T) {
	ledger := NewAttemptLedger()
	if _, err := ledger.RebuildUserStats(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserStatsNotFound) {
		t.Fatalf("expected stats not found, got %v", err)
	}
}
