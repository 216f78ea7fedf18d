package execute

import (
	"errors"
	"syscall"

	"golang.org/x/net/http2"

	"xdao.co/ledgertx/model"
)

// TransportError is a failure of the channel itself, as opposed to a status
// the remote service chose to return.
type TransportError struct {
	// Canceled is set when the transport tore the stream down on its own,
	// not when the caller's context was cancelled.
	Canceled bool
	Cause    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Cause == nil && e.Canceled:
		return "transport: stream cancelled"
	case e.Cause == nil:
		return "transport: failure"
	case e.Canceled:
		return "transport: stream cancelled: " + e.Cause.Error()
	default:
		return "transport: " + e.Cause.Error()
	}
}

func (e *TransportError) Unwrap() error { return e.Cause }

func (e *TransportError) ErrorKind() model.Kind { return model.KindTransport }

// IsTransientIO reports whether an I/O failure is safe to retry. Only a
// broken pipe qualifies; refused connections and timeouts do not.
func IsTransientIO(err error) bool {
	return err != nil && errors.Is(err, syscall.EPIPE)
}

// IsTransient reports whether err is a transport failure that is safe to
// retry: the transport reported cancellation, its I/O cause is transient, or
// the server sent GOAWAY.
//
// Status-layer errors, including Canceled and Aborted codes, are never
// transient.
func IsTransient(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	if te.Canceled || IsTransientIO(te.Cause) {
		return true
	}
	var goAway http2.GoAwayError
	return errors.As(te.Cause, &goAway)
}
