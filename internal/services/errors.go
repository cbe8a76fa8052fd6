package services

import (
	"errors"
	"fmt"

	"xenith/internal/barcode"
	"xenith/internal/database"
)

// ─── Error Kinds ──────────────────────────────────────────────────────────────

var (
	// ErrNotFound is returned when an operation targets a key that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation is returned when a uniqueness, foreign-key or check
	// constraint rejects a write. Nothing is persisted.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrInvalidField is a ConstraintViolation caused by the input itself
	// (empty required field, quantity below 1, malformed ISBN) rather than by
	// other stored rows.
	ErrInvalidField = errors.New("invalid field")

	// ErrStorage wraps transport and engine failures. The unit of work has
	// already been rolled back when it is returned.
	ErrStorage = errors.New("storage error")
)

type NotFoundError struct {
	Entity string
	Key    interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConstraintError names the violated constraint when it is known.
type ConstraintError struct {
	Constraint string
	Reason     string
	Invalid    bool
	Err        error
}

func (e *ConstraintError) Error() string {
	msg := "constraint violation"
	if e.Constraint != "" {
		msg += " (" + e.Constraint + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraintViolation || (e.Invalid && target == ErrInvalidField)
}

type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage error: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func invalid(constraint, reason string) error {
	return &ConstraintError{Constraint: constraint, Reason: reason, Invalid: true}
}

func conflict(constraint, reason string) error {
	return &ConstraintError{Constraint: constraint, Reason: reason}
}

func notFound(entity string, key interface{}) error {
	return &NotFoundError{Entity: entity, Key: key}
}

// translate maps an error escaping a unit of work onto the service error kinds.
// Errors that already carry a kind pass through unchanged.
func translate(op, entity string, key interface{}, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConstraintViolation),
		errors.Is(err, ErrStorage),
		errors.Is(err, barcode.ErrEncoding):
		return err
	case database.IsNotFound(err):
		return notFound(entity, key)
	}
	if name, ok := database.ConstraintName(err); ok {
		return &ConstraintError{Constraint: name, Err: err}
	}
	// context cancellation lands here too; callers can still errors.Is it.
	return &StorageError{Op: op, Err: err}
}
