package types

import (
	"errors"
	"fmt"
	"strings"

	"dreamplan/internal/dayrange"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict is matched by every StateConflictError.
	ErrStateConflict = errors.New("state conflict")

	// ErrDayNotReady: tasks were requested for a later day while the
	// current day's tasks are unfinished.
	ErrDayNotReady = errors.New("current day's tasks are not completed")

	// ErrDuplicateGoal: the owner already has a goal with this title.
	ErrDuplicateGoal = errors.New("goal with this title already exists")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports bad caller input. Nothing was written.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Message))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Add records a field problem.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns e when it holds problems, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid builds a single-field ValidationError.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// NotFoundError reports a stale or unknown id.
type NotFoundError struct {
	Kind string // goal, task, roadmap item, profile
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// StateConflictError reports an operation refused in the goal's current
// state. The caller may retry with an explicit override where one exists.
type StateConflictError struct {
	Reason error // ErrDayNotReady or ErrDuplicateGoal
	Detail string
}

func (e *StateConflictError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%v: %s", e.Reason, e.Detail)
}

func (e *StateConflictError) Is(target error) bool { return target == ErrStateConflict }

func (e *StateConflictError) Unwrap() error { return e.Reason }

// IsValidation reports whether err is caller input error, including an
// unparseable day label.
func IsValidation(err error) bool {
	var pe *dayrange.ParseError
	return errors.Is(err, ErrValidation) || errors.As(err, &pe)
}

// IsNotFound reports whether err is a missing-record error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsStateConflict reports whether err is a recoverable state conflict.
func IsStateConflict(err error) bool { return errors.Is(err, ErrStateConflict) }
