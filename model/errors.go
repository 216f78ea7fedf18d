package model

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind (or the typed errors below) rather than
// matching error strings.
type Kind string

const (
	KindConfig       Kind = "Config"
	KindTransport    Kind = "Transport"
	KindPreCheck     Kind = "PreCheck"
	KindReceipt      Kind = "Receipt"
	KindDecode       Kind = "Decode"
	KindPartialChunk Kind = "PartialChunk"
	KindChecksum     Kind = "Checksum"
	KindTimeout      Kind = "Timeout"
	KindInternal     Kind = "Internal"
)

// Error is the engine's structured error type.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is lets errors.Is match two structured errors of the same kind and message,
// which is how the package-level sentinels below are compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func NewError(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func WrapError(kind Kind, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, msg)
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an error of the given Kind.
//
// The typed errors below report their own kinds.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if k, ok := err.(interface{ ErrorKind() Kind }); ok && k.ErrorKind() == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

func (e *Error) ErrorKind() Kind { return e.Kind }

var (
	ErrNoNodeAccountIDs              = NewError(KindConfig, "transaction requires node account ids to be set or a client with a network")
	ErrNoPayerAccountOrTransactionID = NewError(KindConfig, "transaction requires an explicit transaction id or a client operator")
	ErrZeroChunkSize                 = NewError(KindConfig, "chunk size must be greater than zero")
	ErrSignerSetMismatch             = NewError(KindDecode, "envelopes carry different signer sets")
	ErrEmptyTransactionList          = NewError(KindDecode, "transaction list is empty")
	ErrMaxAttemptsExceeded           = NewError(KindTransport, "exceeded maximum attempts for request")
	ErrTimedOut                      = NewError(KindTimeout, "request timed out")
)

// PrecheckError is a terminal, non-success precheck status returned by a node.
type PrecheckError struct {
	Status        Status
	TransactionID *TransactionID
	// Cost is set when the node reported the fee it would have charged.
	Cost *Hbar
}

func (e *PrecheckError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "transaction pre-check status %s", e.Status)
	if e.TransactionID != nil {
		fmt.Fprintf(&b, " for %s", e.TransactionID)
	}
	if e.Cost != nil {
		fmt.Fprintf(&b, " (cost %s)", *e.Cost)
	}
	return b.String()
}

func (e *PrecheckError) ErrorKind() Kind { return KindPreCheck }

// ReceiptStatusError reports a receipt whose consensus status is not Success.
type ReceiptStatusError struct {
	Status        Status
	TransactionID *TransactionID
}

func (e *ReceiptStatusError) Error() string {
	if e.TransactionID == nil {
		return fmt.Sprintf("receipt status %s", e.Status)
	}
	return fmt.Sprintf("receipt for %s contained status %s", e.TransactionID, e.Status)
}

func (e *ReceiptStatusError) ErrorKind() Kind { return KindReceipt }

// PartialChunkError is returned when a chunked submission fails after some
// chunks were already accepted. Accepted chunks are not rolled back.
type PartialChunkError struct {
	Completed int
	Total     int
	// Responses holds one entry per accepted chunk, in order. Callers that
	// know the concrete response type assert it.
	Responses []any
	Cause     error
}

func (e *PartialChunkError) Error() string {
	return fmt.Sprintf("chunk %d of %d failed after %d chunk(s) were already submitted and not rolled back: %v",
		e.Completed+1, e.Total, e.Completed, e.Cause)
}

func (e *PartialChunkError) Unwrap() error { return e.Cause }

func (e *PartialChunkError) ErrorKind() Kind { return KindPartialChunk }

// ChecksumMismatchError is returned when an entity id checksum does not
// match the ledger it is being used against.
type ChecksumMismatchError struct {
	Entity   string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %q, got %q", e.Entity, e.Expected, e.Actual)
}

func (e *ChecksumMismatchError) ErrorKind() Kind { return KindChecksum }
