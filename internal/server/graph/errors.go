package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrorKind classifies engine errors
type ErrorKind string

const (
	KindValidation  ErrorKind = "VALIDATION"
	KindNotFound    ErrorKind = "NOT_FOUND"
	KindStorage     ErrorKind = "STORAGE"
	KindTimeout     ErrorKind = "TIMEOUT"
	KindConsistency ErrorKind = "CONSISTENCY"
)

// Error is the error type returned by every engine operation
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

// Sentinels for errors.Is
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrStorage     = &Error{Kind: KindStorage}
	ErrTimeout     = &Error{Kind: KindTimeout}
	ErrConsistency = &Error{Kind: KindConsistency}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can compare against the sentinels
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

func validationError(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(op, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func consistencyError(op, format string, args ...any) error {
	return &Error{Kind: KindConsistency, Op: op, Message: fmt.Sprintf(format, args...)}
}

// storageError wraps a driver error. Engine errors pass through untouched and
// deadline / transaction timeouts become TIMEOUT.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return err
	}
	kind := KindStorage
	if isTimeout(err) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) {
		return nerr.Code == "Neo.ClientError.Transaction.TransactionTimedOut" ||
			nerr.Code == "Neo.ClientError.Transaction.TransactionTimedOutClientConfiguration"
	}
	return false
}

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a normal not-found outcome
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConsistency reports whether err rejects an unsupported entity combination
func IsConsistency(err error) bool { return errors.Is(err, ErrConsistency) }

// IsTimeout reports whether err is a storage timeout
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsStorage reports whether err came from the storage layer, timeouts included
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrTimeout)
}
