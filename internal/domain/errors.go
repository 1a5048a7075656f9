package domain

import "errors"

var (
	// ErrQuestionNotFound indicates the submitted question ID is unknown.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuestionInactive indicates the question exists but is deactivated.
	ErrQuestionInactive = errors.New("question is not active")
	// ErrInvalidOption indicates the selected option is not one of A-D.
	ErrInvalidOption = errors.New("invalid answer option")
	// ErrAlreadySolved is returned when the user already has a correct
	// attempt for the question.
	ErrAlreadySolved = errors.New("question already answered correctly")
	// ErrNotDailyQuestion is returned when a daily submission targets a
	// question other than today's selection.
	ErrNotDailyQuestion = errors.New("not today's daily question")
	// ErrDailyAlreadyAttempted is returned when the user already submitted
	// an answer for today's daily question in the current reset window.
	ErrDailyAlreadyAttempted = errors.New("daily question already attempted today")
	// ErrNoDailyQuestion is returned when no active questions exist to
	// select a daily question from.
	ErrNoDailyQuestion = errors.New("no daily question available")
	// ErrUserStatsNotFound is returned by read paths when a user has no
	// stats row yet (no attempts recorded).
	ErrUserStatsNotFound = errors.New("user stats not found")
	// ErrConflictRetry is returned when the ledger exhausted its retries on
	// serialization conflicts; the whole submission is safe to retry.
	ErrConflictRetry = errors.New("submission conflicted, retry")
)

// IsValidation reports whether err is a pre-transaction validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrQuestionInactive) ||
		errors.Is(err, ErrInvalidOption)
}

// IsDomainConflict reports whether err is an ordinary domain rejection, as
// opposed to a system fault. Rejections are final for the given input and
// must not be retried.
func IsDomainConflict(err error) bool {
	return errors.Is(err, ErrAlreadySolved) ||
		errors.Is(err, ErrNotDailyQuestion) ||
		errors.Is(err, ErrDailyAlreadyAttempted)
}

// IsTransient reports whether err may succeed if the caller resubmits.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConflictRetry)
}
