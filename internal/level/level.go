// Package level maps cumulative XP to levels and titles. Everything here is
// pure and safe for concurrent use; the table is fixed reference data, not
// per-user state.
package level

import "quiz-progression-service/internal/domain"

// Level is one row of the progression table.
type Level struct {
	Level        int
	Title        string
	CumulativeXP int
}

// table is ordered by level; CumulativeXP is strictly increasing. Level 1 is
// the floor for any XP value, level 20 the ceiling.
var table = []Level{
	{1, "Newbie", 0},
	{2, "Intern", 100},
	{3, "Senior Intern", 200},
	{4, "Fresher", 300},
	{5, "Junior Developer", 450},
	{6, "Developer", 600},
	{7, "Mid-level Developer", 800},
	{8, "Senior Developer", 1000},
	{9, "Team Lead", 1300},
	{10, "Tech Lead", 1600},
	{11, "Staff Engineer", 2000},
	{12, "Senior Staff Engineer", 2500},
	{13, "Principal Engineer", 3000},
	{14, "Distinguished Engineer", 3600},
	{15, "Architect", 4300},
	{16, "Senior Architect", 5100},
	{17, "Chief Architect", 6000},
	{18, "VP of Engineering", 7000},
	{19, "CTO", 8500},
	{20, "Tech Legend", 10000},
}

// MaxLevel is the highest attainable level.
const MaxLevel = 20

// xp awarded for a first-ever correct attempt, by difficulty.
const (
	xpEasy   = 10
	xpMedium = 25
	xpHard   = 50
)

// XPForDifficulty returns the XP a first correct attempt at a question of the
// given difficulty is worth. Repeat corrects and incorrect attempts earn 0;
// that policy is applied by the ledger, not here.
func XPForDifficulty(d domain.Difficulty) int {
	switch d {
	case domain.DifficultyEasy:
		return xpEasy
	case domain.DifficultyMedium:
		return xpMedium
	case domain.DifficultyHard:
		return xpHard
	}
	return 0
}

// LevelFor returns the highest level whose cumulative XP requirement is at
// most totalXP. Negative XP is clamped to zero.
func LevelFor(totalXP int) Level {
	if totalXP < 0 {
		totalXP = 0
	}
	current := table[0]
	for _, row := range table {
		if row.CumulativeXP > totalXP {
			break
		}
		current = row
	}
	return current
}

// XPToNext returns how much XP is still needed to reach the next level, 0 at
// or above the ceiling.
func XPToNext(lvl, totalXP int) int {
	if lvl >= MaxLevel {
		return 0
	}
	need := table[lvl].CumulativeXP - totalXP // table[lvl] is the row for lvl+1
	if need < 0 {
		return 0
	}
	return need
}

// DidLevelUp reports whether moving from prevXP to newXP crosses a level
// boundary. It is computed from XP values only, never from stored level
// numbers, so revisions to the table cannot cause drift.
func DidLevelUp(prevXP, newXP int) bool {
	return LevelFor(newXP).Level > LevelFor(prevXP).Level
}
