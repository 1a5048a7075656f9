package domain

import "time"

// Difficulty buckets questions and drives the XP award table.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Valid reports whether d is one of the known difficulty buckets.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ValidOption reports whether key is one of the four option keys A-D.
func ValidOption(key string) bool {
	switch key {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

// NumberMatch selects how FindActiveQuestionByNumber resolves an ordinal.
type NumberMatch int

const (
	// MatchExact requires an active question with exactly the given number.
	MatchExact NumberMatch = iota
	// MatchGTE accepts the active question with the smallest number greater
	// than or equal to the given one.
	MatchGTE
)

// Question is catalog content; the engine reads it but never writes it.
// Number is a stable 1-based ordinal used by the daily selector; deactivated
// questions leave gaps, so Number values are not contiguous.
type Question struct {
	ID            int64      `json:"id"`
	Number        int        `json:"number"`
	Text          string     `json:"text"`
	OptionA       string     `json:"optionA"`
	OptionB       string     `json:"optionB"`
	OptionC       string     `json:"optionC"`
	OptionD       string     `json:"optionD"`
	CorrectOption string     `json:"-"`
	Difficulty    Difficulty `json:"difficulty"`
	IsActive      bool       `json:"isActive"`
}

// Attempt is an append-only fact: one row per submission, never mutated.
// At most one attempt per (user, question) may have IsCorrect set; the
// ledger's transaction enforces that, not a uniqueness constraint.
type Attempt struct {
	ID             int64     `json:"id"`
	QuestionID     int64     `json:"questionId"`
	UserID         string    `json:"userId"`
	UserEmail      string    `json:"userEmail"`
	SelectedOption string    `json:"selectedOption"`
	IsCorrect      bool      `json:"isCorrect"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// UserStats is the mutable per-user aggregate, lazily created on first
// attempt. It is a materialized summary of the attempt log and can always be
// rebuilt by replaying that log.
type UserStats struct {
	UserID                 string    `json:"userId"`
	UserEmail              string    `json:"userEmail"`
	TotalQuestionsAnswered int       `json:"totalQuestionsAnswered"`
	TotalCorrectAnswers    int       `json:"totalCorrectAnswers"`
	EasyAnswered           int       `json:"easyAnswered"`
	EasyCorrect            int       `json:"easyCorrect"`
	MediumAnswered         int       `json:"mediumAnswered"`
	MediumCorrect          int       `json:"mediumCorrect"`
	HardAnswered           int       `json:"hardAnswered"`
	HardCorrect            int       `json:"hardCorrect"`
	CurrentStreak          int       `json:"currentStreak"`
	LongestStreak          int       `json:"longestStreak"`
	LastAnsweredAt         time.Time `json:"lastAnsweredAt"`
	TotalXP                int       `json:"totalXp"`
	CurrentLevel           int       `json:"currentLevel"`
	CurrentTitle           string    `json:"currentTitle"`
}

// Submission is one incoming answer. Identity fields are opaque; the engine
// records whatever identity it is handed.
type Submission struct {
	UserID         string
	UserEmail      string
	QuestionID     int64
	SelectedOption string
	IsDaily        bool
}

// AttemptOutcome is what the ledger returns after a committed unit of work.
// PrevXP is the user's XP before this attempt so callers can derive level-up
// from XP values alone.
type AttemptOutcome struct {
	Attempt      Attempt
	Stats        UserStats
	XPEarned     int
	PrevXP       int
	FirstCorrect bool
}
