// Package daily picks the question of the day. The pick is a pure function of
// the calendar date, a fixed salt, and the live set of active questions, so
// every replica serves the same question without any shared mutable state.
package daily

import (
	"context"
	"errors"
	"time"

	"quiz-progression-service/internal/domain"
)

// DefaultSalt matches the reference deployment; override it via Config only
// if you want a different rotation of daily questions.
const DefaultSalt = "anton-daily-question-2024"

// Defaults for the reset schedule: 08:00 in GMT+7.
const (
	DefaultUTCOffsetHours = 7
	DefaultResetHour      = 8
)

// Catalog is the read-only slice of the question catalog the selector needs.
type Catalog interface {
	CountActiveQuestions(ctx context.Context) (int, error)
	FindActiveQuestionByNumber(ctx context.Context, number int, match domain.NumberMatch) (domain.Question, error)
}

// Config fixes the timezone, reset hour and salt for a selector. Zero values
// fall back to the reference defaults.
type Config struct {
	UTCOffsetHours int
	ResetHour      int
	Salt           string
}

func (c Config) withDefaults() Config {
	if c.UTCOffsetHours == 0 {
		c.UTCOffsetHours = DefaultUTCOffsetHours
	}
	if c.ResetHour == 0 {
		c.ResetHour = DefaultResetHour
	}
	if c.Salt == "" {
		c.Salt = DefaultSalt
	}
	return c
}

// Selection describes the resolved question of the day.
type Selection struct {
	Question    domain.Question
	DateKey     string
	ResetAt     time.Time
	TargetIndex int
}

// Selector resolves daily questions against a catalog. Safe for concurrent
// use; it holds no mutable state.
type Selector struct {
	catalog   Catalog
	loc       *time.Location
	resetHour int
	salt      string
}

func NewSelector(catalog Catalog, cfg Config) *Selector {
	cfg = cfg.withDefaults()
	return &Selector{
		catalog:   catalog,
		loc:       time.FixedZone("daily", cfg.UTCOffsetHours*3600),
		resetHour: cfg.ResetHour,
		salt:      cfg.Salt,
	}
}

// DateKey formats now as YYYY-MM-DD in the selector's timezone.
func (s *Selector) DateKey(now time.Time) string {
	return now.In(s.loc).Format("2006-01-02")
}

// Index hashes the date key plus salt into a non-negative integer. The hash
// is a 32-bit rolling hash; it only needs to be stable, not strong.
func (s *Selector) Index(now time.Time) int {
	return stringHash(s.DateKey(now) + s.salt)
}

// Resolve picks the question of the day. The pseudo-index is reduced modulo
// the active-question count into a 1-based target ordinal, then resolved in
// three tiers: exact number match, smallest active number at or above the
// target, then any active question. The fallbacks exist because deactivated
// questions leave gaps in the number sequence.
func (s *Selector) Resolve(ctx context.Context, now time.Time) (Selection, error) {
	count, err := s.catalog.CountActiveQuestions(ctx)
	if err != nil {
		return Selection{}, err
	}
	if count == 0 {
		return Selection{}, domain.ErrNoDailyQuestion
	}

	target := s.Index(now)%count + 1

	question, err := s.catalog.FindActiveQuestionByNumber(ctx, target, domain.MatchExact)
	if errors.Is(err, domain.ErrQuestionNotFound) {
		question, err = s.catalog.FindActiveQuestionByNumber(ctx, target, domain.MatchGTE)
	}
	if errors.Is(err, domain.ErrQuestionNotFound) {
		question, err = s.catalog.FindActiveQuestionByNumber(ctx, 1, domain.MatchGTE)
	}
	if errors.Is(err, domain.ErrQuestionNotFound) {
		// Count said there were active questions; the set changed under us.
		return Selection{}, domain.ErrNoDailyQuestion
	}
	if err != nil {
		return Selection{}, err
	}

	return Selection{
		Question:    question,
		DateKey:     s.DateKey(now),
		ResetAt:     s.NextReset(now),
		TargetIndex: target,
	}, nil
}

// NextReset returns the next reset instant: today's reset hour in the
// configured timezone if now is before it, else tomorrow's.
func (s *Selector) NextReset(now time.Time) time.Time {
	local := now.In(s.loc)
	reset := time.Date(local.Year(), local.Month(), local.Day(), s.resetHour, 0, 0, 0, s.loc)
	if !local.Before(reset) {
		reset = reset.AddDate(0, 0, 1)
	}
	return reset
}

// LastReset returns the most recent reset instant at or before now. Attempts
// made after it belong to the current daily window.
func (s *Selector) LastReset(now time.Time) time.Time {
	return s.NextReset(now).AddDate(0, 0, -1)
}

// stringHash is the classic 31-based rolling hash truncated to 32 bits, made
// non-negative. Same input always yields the same output across processes.
func stringHash(input string) int {
	var h int32
	for _, c := range []byte(input) {
		h = h*31 + int32(c)
	}
	if h < 0 {
		h = -h
	}
	if h < 0 { // -MinInt32 overflows back to itself
		h = 0
	}
	return int(h)
}
