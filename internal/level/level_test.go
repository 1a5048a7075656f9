package level

import (
	"testing"

	"quiz-progression-service/internal/domain"
)

func TestLevelForFloorAndCeiling(t *testing.T) {
	if got := LevelFor(-50); got.Level != 1 || got.Title != "Newbie" {
		t.Fatalf("expected negative XP to clamp to level 1 Newbie, got %+v", got)
	}
	if got := LevelFor(0); got.Level != 1 {
		t.Fatalf("expected level 1 at 0 XP, got %+v", got)
	}
	if got := LevelFor(10000); got.Level != 20 {
		t.Fatalf("expected level 20 at threshold, got %+v", got)
	}
	if got := LevelFor(1 << 30); got.Level != 20 {
		t.Fatalf("expected XP beyond the table to stay at level 20, got %+v", got)
	}
}

func TestLevelForBoundaries(t *testing.T) {
	if got := LevelFor(299); got.Level != 3 || got.Title != "Senior Intern" {
		t.Fatalf("expected level 3 Senior Intern at 299 XP, got %+v", got)
	}
	if got := LevelFor(300); got.Level != 4 || got.Title != "Fresher" {
		t.Fatalf("expected level 4 Fresher at 300 XP, got %+v", got)
	}
}

func TestLevelForIsDeterministic(t *testing.T) {
	first := LevelFor(1234)
	for i := 0; i < 100; i++ {
		if got := LevelFor(1234); got != first {
			t.Fatalf("levelFor not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestXPToNext(t *testing.T) {
	if got := XPToNext(3, 290); got != 10 {
		t.Fatalf("expected 10 XP to level 4 from 290, got %d", got)
	}
	if got := XPToNext(20, 10000); got != 0 {
		t.Fatalf("expected 0 at max level, got %d", got)
	}
	// Stale level input combined with XP past the threshold floors at 0.
	if got := XPToNext(3, 500); got != 0 {
		t.Fatalf("expected floor at 0, got %d", got)
	}
}

func TestDidLevelUp(t *testing.T) {
	// 290 XP is level 3; one easy question later the user crosses 300.
	if !DidLevelUp(290, 300) {
		t.Fatalf("expected level up from 290 to 300 XP")
	}
	if DidLevelUp(300, 310) {
		t.Fatalf("did not expect level up within level 4")
	}
	if DidLevelUp(300, 300) {
		t.Fatalf("did not expect level up with unchanged XP")
	}
}

func TestXPForDifficulty(t *testing.T) {
	cases := map[domain.Difficulty]int{
		domain.DifficultyEasy:   10,
		domain.DifficultyMedium: 25,
		domain.DifficultyHard:   50,
		domain.Difficulty("??"): 0,
	}
	for d, want := range cases {
		if got := XPForDifficulty(d); got != want {
			t.Fatalf("difficulty %s: expected %d XP, got %d", d, want, got)
		}
	}
}

func TestTableIsMonotonic(t *testing.T) {
	prev := table[0]
	for _, row := range table[1:] {
		if row.Level != prev.Level+1 {
			t.Fatalf("levels not consecutive at %+v", row)
		}
		if row.CumulativeXP <= prev.CumulativeXP {
			t.Fatalf("cumulative XP not increasing at %+v", row)
		}
		prev = row
	}
	if prev.Level != MaxLevel {
		t.Fatalf("expected table to end at level %d, got %d", MaxLevel, prev.Level)
	}
}
