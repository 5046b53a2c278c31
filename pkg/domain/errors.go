package domain

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a referenced record does not exist.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError reports a caller mistake such as a missing vendor id or a
// malformed request body.
type ValidationError struct {
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e ValidationError) Unwrap() error { return e.Err }

// PersistenceError wraps a storage backend failure with the operation that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError unless it is nil or already one.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return PersistenceError{Op: op, Err: err}
}

// IsNotFound reports whether err is a NotFoundError for the given entity.
// An empty entity matches any NotFoundError.
func IsNotFound(err error, entity EntityType) bool {
	var nf NotFoundError
	if !errors.As(err, &nf) {
		return false
	}
	return entity == "" || nf.Entity == entity
}
