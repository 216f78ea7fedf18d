// Package execute drives one request against a set of nodes until it reaches
// a terminal outcome. Node selection, retry, backoff and transaction-id
// regeneration live here; request construction and response interpretation
// are supplied by the caller through Executable.
package execute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/ledgertx/model"
)

const (
	DefaultMaxAttempts = 10
	DefaultMinBackoff  = 250 * time.Millisecond
	DefaultMaxBackoff  = 8 * time.Second
)

// Network is the node set an execution runs against.
type Network interface {
	// NodeAccountIDs returns the nodes to try when the request names none.
	NodeAccountIDs() []model.AccountID
	// Channel returns the transport for node. An unknown node is an error.
	Channel(node model.AccountID) (grpc.ClientConnInterface, error)
	IsHealthy(node model.AccountID) bool
	MarkHealthy(node model.AccountID)
	MarkUnhealthy(node model.AccountID)
}

// Executable supplies the request-specific halves of an execution.
type Executable[Req, Resp, Out any] interface {
	// Method names the request in logs and metrics.
	Method() string
	NodeAccountIDs() []model.AccountID
	// TransactionID is nil for requests not bound to a transaction.
	TransactionID() *model.TransactionID
	OperatorAccountID() *model.AccountID
	// RegenerateTransactionID overrides Options.RegenerateTransactionID
	// when non-nil.
	RegenerateTransactionID() *bool
	// MakeRequest builds the request for node. The hash is nil for
	// requests that carry no transaction.
	MakeRequest(txID *model.TransactionID, node model.AccountID) (Req, *model.TransactionHash, error)
	Send(ctx context.Context, ch grpc.ClientConnInterface, req Req) (Resp, error)
	Status(resp Resp) model.Status
	MakeResponse(resp Resp, out Outcome) (Out, error)
	MakeError(status model.Status, txID *model.TransactionID, resp Resp) error
}

// ResponseRetrier is implemented by executables that need another attempt
// even though the node accepted the request, such as a receipt that is not
// yet available.
type ResponseRetrier[Resp any] interface {
	ShouldRetry(resp Resp) bool
}

// Outcome describes the attempt that produced a response.
type Outcome struct {
	NodeID        model.AccountID
	TransactionID *model.TransactionID
	Hash          *model.TransactionHash
	Attempts      int
}

// Options bound and observe an execution.
type Options struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	// Timeout bounds the whole execution when ctx carries no deadline.
	Timeout                 time.Duration
	RegenerateTransactionID bool
	Logger                  *zap.Logger
	Metrics                 *Metrics
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.MinBackoff <= 0 {
		o.MinBackoff = DefaultMinBackoff
	}
	if o.MaxBackoff < o.MinBackoff {
		o.MaxBackoff = DefaultMaxBackoff
		if o.MaxBackoff < o.MinBackoff {
			o.MaxBackoff = o.MinBackoff
		}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Execute runs e against network until a node returns a terminal answer,
// the attempt budget is spent, or ctx ends.
//
// Busy and platform-not-ready statuses, transient transport failures, and
// responses the executable asks to retry move on to the next node after a
// backoff. An expired transaction id is replaced and retried only when
// regeneration is enabled. Anything else is returned at once.
func Execute[Req, Resp, Out any](ctx context.Context, network Network, e Executable[Req, Resp, Out], opts Options) (Out, error) {
	var zero Out
	opts = opts.withDefaults()
	if opts.Timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}
	}

	method := e.Method()
	log := opts.Logger.With(zap.String("method", method), zap.String("request_id", uuid.NewString()))
	start := time.Now()
	defer opts.Metrics.observe(method, start)

	nodes := e.NodeAccountIDs()
	if len(nodes) == 0 {
		nodes = network.NodeAccountIDs()
	}
	if len(nodes) == 0 {
		return zero, model.ErrNoNodeAccountIDs
	}

	txID := e.TransactionID()
	regenerate := opts.RegenerateTransactionID
	if r := e.RegenerateTransactionID(); r != nil {
		regenerate = *r
	}
	retrier, _ := any(e).(ResponseRetrier[Resp])
	wait := newBackoff(opts.MinBackoff, opts.MaxBackoff)

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := wait.wait(ctx); err != nil {
				return zero, contextError(err, lastErr)
			}
		} else if err := ctx.Err(); err != nil {
			return zero, contextError(err, nil)
		}

		node := pickNode(network, nodes, attempt-1)
		alog := log.With(zap.Int("attempt", attempt), zap.Stringer("node", node))

		ch, err := network.Channel(node)
		if err != nil {
			return zero, model.WrapError(model.KindConfig, fmt.Sprintf("no channel for node %s", node), err)
		}
		req, hash, err := e.MakeRequest(txID, node)
		if err != nil {
			return zero, err
		}

		resp, err := e.Send(ctx, ch, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, contextError(ctxErr, err)
			}
			network.MarkUnhealthy(node)
			if IsTransient(err) {
				alog.Debug("transient transport failure, retrying", zap.Error(err))
				opts.Metrics.attempt(method, "retry")
				opts.Metrics.retry("transport")
				lastErr = err
				continue
			}
			alog.Warn("transport failure", zap.Error(err))
			opts.Metrics.attempt(method, "error")
			return zero, model.WrapError(model.KindTransport, fmt.Sprintf("request to node %s failed", node), err)
		}
		network.MarkHealthy(node)

		status := e.Status(resp)
		if retrier != nil && retrier.ShouldRetry(resp) {
			alog.Debug("response not final, retrying", zap.Stringer("status", status))
			opts.Metrics.attempt(method, "retry")
			opts.Metrics.retry("response")
			lastErr = e.MakeError(status, txID, resp)
			continue
		}

		switch status {
		case model.StatusOK:
			opts.Metrics.attempt(method, "success")
			alog.Debug("request accepted")
			return e.MakeResponse(resp, Outcome{NodeID: node, TransactionID: txID, Hash: hash, Attempts: attempt})

		case model.StatusBusy, model.StatusPlatformTransactionNotCreated, model.StatusPlatformNotActive:
			alog.Debug("node not ready, retrying", zap.Stringer("status", status))
			opts.Metrics.attempt(method, "retry")
			opts.Metrics.retry("busy")
			lastErr = e.MakeError(status, txID, resp)
			continue

		case model.StatusTransactionExpired:
			if regenerate && txID != nil {
				payer := txID.AccountID
				if op := e.OperatorAccountID(); op != nil {
					payer = *op
				}
				fresh := model.GenerateTransactionID(payer)
				alog.Info("transaction expired, regenerating id", zap.Stringer("old", *txID), zap.Stringer("new", fresh))
				opts.Metrics.attempt(method, "retry")
				opts.Metrics.retry("expired")
				lastErr = e.MakeError(status, txID, resp)
				txID = &fresh
				continue
			}
		}

		opts.Metrics.attempt(method, "error")
		alog.Debug("request rejected", zap.Stringer("status", status))
		return zero, e.MakeError(status, txID, resp)
	}

	log.Warn("attempt budget exhausted", zap.Int("max_attempts", opts.MaxAttempts), zap.Error(lastErr))
	if lastErr == nil {
		return zero, model.ErrMaxAttemptsExceeded
	}
	return zero, fmt.Errorf("%w: %w", model.ErrMaxAttemptsExceeded, lastErr)
}

// pickNode returns the first healthy node in rotation order starting at i,
// or the plain rotation choice when none is healthy.
func pickNode(network Network, nodes []model.AccountID, i int) model.AccountID {
	n := len(nodes)
	for k := 0; k < n; k++ {
		node := nodes[(i+k)%n]
		if network.IsHealthy(node) {
			return node
		}
	}
	return nodes[i%n]
}

func contextError(ctxErr, last error) error {
	cause := ctxErr
	if last != nil {
		cause = errors.Join(ctxErr, last)
	}
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return model.WrapError(model.KindTimeout, "request timed out", cause)
	}
	return fmt.Errorf("request cancelled: %w", cause)
}
