package tracker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies engine failures so callers can react without
// parsing messages. Storage failures keep their own kind so a caller
// can decide to retry; the engine itself never retries.
type ErrorKind string

const (
	ErrNotFound          ErrorKind = "not_found"
	ErrInvalidTransition ErrorKind = "invalid_transition"
	ErrUnknownDependency ErrorKind = "unknown_dependency"
	ErrSelfDependency    ErrorKind = "self_dependency"
	ErrCyclicDependency  ErrorKind = "cyclic_dependency"
	ErrValidation        ErrorKind = "validation"
	ErrIntegrity         ErrorKind = "integrity"
	ErrStorage           ErrorKind = "storage"
)

// Error is the typed error surfaced by the engine. Cycle is populated
// only for cyclic dependency failures.
type Error struct {
	Kind    ErrorKind
	Message string
	Cycle   []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is (or wraps) a tracker Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}

func notFoundError(kind EntityKind, id string) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s %s not found", kind, id)}
}

func invalidTransitionError(kind EntityKind, from, to string) *Error {
	return &Error{
		Kind:    ErrInvalidTransition,
		Message: fmt.Sprintf("%s cannot transition from %q to %q", kind, from, to),
	}
}

func unknownDependencyError(depID string) *Error {
	return &Error{Kind: ErrUnknownDependency, Message: fmt.Sprintf("dependency task %s not found", depID)}
}

func selfDependencyError(taskID string) *Error {
	return &Error{Kind: ErrSelfDependency, Message: fmt.Sprintf("task %s cannot depend on itself", taskID)}
}

func cyclicDependencyError(cycle []string) *Error {
	return &Error{
		Kind:    ErrCyclicDependency,
		Message: fmt.Sprintf("dependency cycle: %s", strings.Join(cycle, " -> ")),
		Cycle:   cycle,
	}
}

func validationError(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func integrityError(msg string) *Error {
	return &Error{Kind: ErrIntegrity, Message: msg}
}

func storageError(op string, err error) *Error {
	return &Error{Kind: ErrStorage, Message: fmt.Sprintf("storage: %s", op), Err: err}
}
