// Package imerr defines the error taxonomy shared by the import engine:
// StoreError for relational-store failures and IntegrityError for fatal
// consistency violations (unsafe table names, unknown relationship types).
package imerr

import (
	"errors"
	"fmt"
)

// StoreError wraps a failure talking to the relational store. The current
// chunk aborts; row statuses already committed stay committed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStore wraps err as a StoreError for the given operation.
func NewStore(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// IntegrityError marks a fatal consistency violation. It aborts processing
// before any row is touched and is never recovered locally.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return e.Reason
}

// NewIntegrity creates an IntegrityError with the given reason.
func NewIntegrity(format string, args ...any) *IntegrityError {
	return &IntegrityError{Reason: fmt.Sprintf(format, args...)}
}

// IsStore reports whether any error in the chain is a StoreError.
func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsIntegrity reports whether any error in the chain is an IntegrityError.
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
