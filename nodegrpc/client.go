package nodegrpc

import (
	"context"
	"fmt"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"xdao.co/ledgertx/execute"
	"xdao.co/ledgertx/wire"
)

type DialOptions struct {
	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// KeepAlive, when non-zero, pings idle connections at this interval.
	KeepAlive time.Duration
}

// Dial creates a lazily connecting channel to a node at target
// ("host:port"). The channel speaks Codec by default.
func Dial(target string, opts DialOptions, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	callOpts := []grpc.CallOption{grpc.ForceCodec(Codec{})}
	if opts.MaxMsgBytes > 0 {
		callOpts = append(callOpts,
			grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
			grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
		)
	}
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(callOpts...),
	}
	if opts.KeepAlive > 0 {
		dialOpts = append(dialOpts, grpc.WithKeepaliveParams(keepalive.ClientParameters{Time: opts.KeepAlive}))
	}
	dialOpts = append(dialOpts, extra...)

	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("nodegrpc: dial %s: %w", target, err)
	}
	return cc, nil
}

// SubmitTransaction sends tx over method and returns the node's precheck
// response. Failures are reported as *execute.TransportError.
func SubmitTransaction(ctx context.Context, cc grpc.ClientConnInterface, method string, tx *wire.Transaction) (*wire.TransactionResponse, error) {
	out := new(wire.TransactionResponse)
	if err := cc.Invoke(ctx, method, tx, out, grpc.ForceCodec(Codec{})); err != nil {
		return nil, mapRPC(err)
	}
	return out, nil
}

// GetTransactionReceipt asks a node for the receipt named in q.
func GetTransactionReceipt(ctx context.Context, cc grpc.ClientConnInterface, q *wire.Query) (*wire.Response, error) {
	out := new(wire.Response)
	if err := cc.Invoke(ctx, MethodGetTransactionReceipts, q, out, grpc.ForceCodec(Codec{})); err != nil {
		return nil, mapRPC(err)
	}
	return out, nil
}

// mapRPC turns a gRPC failure into a transport error, recovering the
// underlying cause from Unavailable messages where grpc flattened it.
func mapRPC(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return &execute.TransportError{Cause: err}
	}
	if st.Code() != codes.Unavailable {
		return &execute.TransportError{Cause: err}
	}
	msg := st.Message()
	switch {
	case strings.Contains(msg, "broken pipe"):
		return &execute.TransportError{Cause: fmt.Errorf("%s: %w", msg, syscall.EPIPE)}
	case strings.Contains(msg, "GOAWAY"):
		return &execute.TransportError{Cause: http2.GoAwayError{ErrCode: http2.ErrCodeNo, DebugData: msg}}
	case strings.Contains(msg, "connection refused"):
		return &execute.TransportError{Cause: fmt.Errorf("%s: %w", msg, syscall.ECONNREFUSED)}
	case strings.Contains(msg, "transport is closing"):
		return &execute.TransportError{Canceled: true, Cause: err}
	default:
		return &execute.TransportError{Cause: err}
	}
}
