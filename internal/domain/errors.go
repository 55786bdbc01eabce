package domain

import "errors"

var (
	// ErrAssessmentNotFound is returned when a code does not resolve to a live assessment.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrStudentNotFound is returned when a student ID is unknown to the assessment.
	ErrStudentNotFound = errors.New("student not found")
	// ErrQuestionSetNotFound indicates an imported question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")

	// ErrInvalidInput is the parent of every request validation failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCode is returned when a supplied code violates the code format.
	ErrInvalidCode = wrapInvalid("invalid code format")
	// ErrNoQuestions is returned when an assessment would be created without questions.
	ErrNoQuestions = wrapInvalid("no questions provided")
	// ErrInvalidBet is returned for wagers on unknown options or with negative amounts.
	ErrInvalidBet = wrapInvalid("invalid bet")
	// ErrInvalidName is returned when a student joins without a usable name.
	ErrInvalidName = wrapInvalid("student name is required")
	// ErrInvalidSettings is returned for out-of-range coins, multiplier or duration.
	ErrInvalidSettings = wrapInvalid("invalid assessment settings")
	// ErrInvalidUpload is returned when an uploaded question file cannot be used.
	ErrInvalidUpload = wrapInvalid("invalid upload")

	// ErrCodeConflict is returned when a requested code already resolves to an assessment.
	ErrCodeConflict = errors.New("code already in use")
	// ErrIsTeacherCode is returned when a student tries to join with the teacher code.
	ErrIsTeacherCode = errors.New("this is a teacher code, students should use the short code")
	// ErrForbidden is returned when a non-teacher code asks for teacher-only data.
	ErrForbidden = errors.New("teacher code required")

	// ErrInsufficientCoins is returned when the total wager exceeds the balance.
	ErrInsufficientCoins = errors.New("insufficient coins")
	// ErrNoMoreQuestions is returned when a submit arrives after the last question.
	ErrNoMoreQuestions = errors.New("no more questions")

	// ErrPersistenceDisabled is returned when an operation needs Postgres but none is configured.
	ErrPersistenceDisabled = errors.New("no database configured")
)

type invalidError struct {
	msg string
}

func (e *invalidError) Error() string { return e.msg }

func (e *invalidError) Unwrap() error { return ErrInvalidInput }

func wrapInvalid(msg string) error {
	return &invalidError{msg: msg}
}
