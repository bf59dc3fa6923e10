// Package common defines the error taxonomy shared by every layer of the
// record store together with a few small helpers. Callers should classify
// errors with errors.Is / errors.As rather than by message.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidValue matches every *InvalidValueError.
	ErrInvalidValue = errors.New("invalid value")

	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence error")

	// ErrForbidden matches every *ForbiddenError.
	ErrForbidden = errors.New("forbidden")
)

// InvalidValueError reports that a value failed domain validation.
// Name identifies the value object (or field) that rejected the input.
type InvalidValueError struct {
	Name string
}

func NewInvalidValue(name string) *InvalidValueError {
	return &InvalidValueError{Name: name}
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %s", e.Name)
}

func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

// PersistenceError wraps a backend failure: connectivity loss, constraint
// violations, aborted transactions.
type PersistenceError struct {
	Err error
}

func NewPersistence(err error) *PersistenceError {
	return &PersistenceError{Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// ForbiddenError is a textual authorization denial.
type ForbiddenError struct {
	Reason string
}

func NewForbidden(reason string) *ForbiddenError {
	return &ForbiddenError{Reason: reason}
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// AsPersistence wraps err into a *PersistenceError unless it already is one.
// A nil err stays nil.
func AsPersistence(err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return NewPersistence(err)
}
