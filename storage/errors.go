package storage

import "errors"

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrInvalidCID  = errors.New("storage: invalid cid")
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	ErrImmutable   = errors.New("storage: immutable object mismatch")
	ErrNoBackends  = errors.New("storage: no backends configured")

	// ErrNotTransaction is returned when stored bytes do not decode as a
	// transaction list.
	ErrNotTransaction = errors.New("storage: not a transaction")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
