// Package dberr holds the error vocabulary shared by every layer of the engine.
package dberr

import (
	"errors"
	"fmt"
)

// NotFound class.
var (
	ErrNoSuchTable  = errors.New("coldb: no such table")
	ErrNoSuchColumn = errors.New("coldb: no such column")
	ErrNoSuchIndex  = errors.New("coldb: no such index")
	ErrNoSuchRow    = errors.New("coldb: no such row")
)

// Conflict class.
var (
	ErrTableAlreadyExists       = errors.New("coldb: table already exists")
	ErrColumnAlreadyExists      = errors.New("coldb: column already exists")
	ErrIndexAlreadyExists       = errors.New("coldb: index already exists")
	ErrTransactionAlreadyActive = errors.New("coldb: transaction already active")
)

// StateConflict class.
var ErrNoTransactionActive = errors.New("coldb: no transaction active")

// InputInvalid class.
var (
	ErrInvalidKey       = errors.New("coldb: invalid key")
	ErrInvalidRange     = errors.New("coldb: invalid range")
	ErrInvalidValue     = errors.New("coldb: invalid value")
	ErrTypeMismatch     = errors.New("coldb: type mismatch")
	ErrInvalidName      = errors.New("coldb: invalid name")
	ErrInvalidPredicate = errors.New("coldb: invalid predicate")
	ErrCorruptImage     = errors.New("coldb: corrupt table image")
)

// CapabilityMissing class.
var ErrRangeQueryNotSupported = errors.New("coldb: range query not supported by index")

type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindStateConflict
	KindInputInvalid
	KindCapabilityMissing
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStateConflict:
		return "state_conflict"
	case KindInputInvalid:
		return "input_invalid"
	case KindCapabilityMissing:
		return "capability_missing"
	default:
		return "unknown"
	}
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNoSuchTable, KindNotFound},
	{ErrNoSuchColumn, KindNotFound},
	{ErrNoSuchIndex, KindNotFound},
	{ErrNoSuchRow, KindNotFound},
	{ErrTableAlreadyExists, KindConflict},
	{ErrColumnAlreadyExists, KindConflict},
	{ErrIndexAlreadyExists, KindConflict},
	{ErrTransactionAlreadyActive, KindConflict},
	{ErrNoTransactionActive, KindStateConflict},
	{ErrInvalidKey, KindInputInvalid},
	{ErrInvalidRange, KindInputInvalid},
	{ErrInvalidValue, KindInputInvalid},
	{ErrTypeMismatch, KindInputInvalid},
	{ErrInvalidName, KindInputInvalid},
	{ErrInvalidPredicate, KindInputInvalid},
	{ErrCorruptImage, KindInputInvalid},
	{ErrRangeQueryNotSupported, KindCapabilityMissing},
}

// KindOf classifies err by the first sentinel found in its chain.
// I/O and other foreign errors report KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// QueryExecutionError is the single error type surfaced by the executor.
// Cause keeps the original lower-layer error for errors.Is / errors.As.
type QueryExecutionError struct {
	Statement string
	Cause     error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("coldb: executing %s: %v", e.Statement, e.Cause)
}

func (e *QueryExecutionError) Unwrap() error { return e.Cause }

// Kind reports the class of the wrapped cause.
func (e *QueryExecutionError) Kind() Kind { return KindOf(e.Cause) }

// Execution wraps err for the given statement label. A nil err stays nil and
// an error that is already a QueryExecutionError is returned unchanged.
func Execution(statement string, err error) error {
	if err == nil {
		return nil
	}
	var qe *QueryExecutionError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryExecutionError{Statement: statement, Cause: err}
}
