package execute

import (
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/net/http2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/ledgertx/model"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"transport cancelled", &TransportError{Canceled: true}, true},
		{"broken pipe", &TransportError{Cause: syscall.EPIPE}, true},
		{"wrapped broken pipe", &TransportError{Cause: fmt.Errorf("write: %w", syscall.EPIPE)}, true},
		{"goaway", &TransportError{Cause: http2.GoAwayError{ErrCode: http2.ErrCodeNo}}, true},
		{"wrapped transport", fmt.Errorf("send: %w", &TransportError{Canceled: true}), true},
		{"connection refused", &TransportError{Cause: syscall.ECONNREFUSED}, false},
		{"eof", &TransportError{Cause: io.EOF}, false},
		{"status cancelled", status.Error(codes.Canceled, "cancelled"), false},
		{"status aborted", status.Error(codes.Aborted, "aborted"), false},
		{"unwrapped broken pipe", syscall.EPIPE, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestIsTransientIO(t *testing.T) {
	assert.True(t, IsTransientIO(syscall.EPIPE))
	assert.False(t, IsTransientIO(syscall.ECONNRESET))
	assert.False(t, IsTransientIO(syscall.ETIMEDOUT))
	assert.False(t, IsTransientIO(nil))
}

func TestTransportErrorKind(t *testing.T) {
	err := fmt.Errorf("x: %w", &TransportError{Cause: syscall.EPIPE})
	assert.True(t, model.IsKind(err, model.KindTransport))
	assert.ErrorIs(t, err, syscall.EPIPE)
}
