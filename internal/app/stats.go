package app

import (
	"sort"

	"quiz-progression-service/internal/domain"
	"quiz-progression-service/internal/level"
)

// ApplyAttempt folds one attempt into a stats aggregate. Both ledger
// implementations and the rebuild path share this single fold so the
// incremental aggregate and the replayed one cannot diverge.
func ApplyAttempt(stats *domain.UserStats, question domain.Question, attempt domain.Attempt, xpEarned int) {
	stats.TotalQuestionsAnswered++
	switch question.Difficulty {
	case domain.DifficultyEasy:
		stats.EasyAnswered++
	case domain.DifficultyMedium:
		stats.MediumAnswered++
	case domain.DifficultyHard:
		stats.HardAnswered++
	}

	if attempt.IsCorrect {
		stats.TotalCorrectAnswers++
		switch question.Difficulty {
		case domain.DifficultyEasy:
			stats.EasyCorrect++
		case domain.DifficultyMedium:
			stats.MediumCorrect++
		case domain.DifficultyHard:
			stats.HardCorrect++
		}
		stats.CurrentStreak++
		if stats.CurrentStreak > stats.LongestStreak {
			stats.LongestStreak = stats.CurrentStreak
		}
		stats.LastAnsweredAt = attempt.AnsweredAt
	} else {
		stats.CurrentStreak = 0
	}

	stats.TotalXP += xpEarned
	lvl := level.LevelFor(stats.TotalXP)
	stats.CurrentLevel = lvl.Level
	stats.CurrentTitle = lvl.Title
}

// NewUserStats seeds an empty aggregate for a user's first attempt.
func NewUserStats(userID, userEmail string) domain.UserStats {
	lvl := level.LevelFor(0)
	return domain.UserStats{
		UserID:       userID,
		UserEmail:    userEmail,
		CurrentLevel: lvl.Level,
		CurrentTitle: lvl.Title,
	}
}

// RebuildStats replays a user's attempt log from scratch and returns the
// aggregate it implies. It is the correctness oracle for the incremental
// path and the basis of the rebuild-stats reconciliation command. Attempts
// are replayed in submission order; XP is credited on the first correct
// attempt per question only.
func RebuildStats(userID, userEmail string, attempts []domain.Attempt, questions map[int64]domain.Question) domain.UserStats {
	ordered := make([]domain.Attempt, len(attempts))
	copy(ordered, attempts)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].AnsweredAt.Equal(ordered[j].AnsweredAt) {
			return ordered[i].AnsweredAt.Before(ordered[j].AnsweredAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	stats := NewUserStats(userID, userEmail)
	solved := make(map[int64]bool)
	for _, attempt := range ordered {
		question := questions[attempt.QuestionID]
		xp := 0
		if attempt.IsCorrect && !solved[attempt.QuestionID] {
			xp = level.XPForDifficulty(question.Difficulty)
			solved[attempt.QuestionID] = true
		}
		ApplyAttempt(&stats, question, attempt, xp)
	}
	return stats
}

// FirstCorrectXP returns the XP a submission earns given its correctness and
// whether a correct attempt already existed.
func FirstCorrectXP(question domain.Question, isCorrect, solvedBefore bool) int {
	if !isCorrect || solvedBefore {
		return 0
	}
	return level.XPForDifficulty(question.Difficulty)
}
