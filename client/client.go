// Package client holds the network collaborator transactions execute
// against: a static address book of node channels with per-node health,
// the operator that pays for and signs transactions, and the defaults
// applied when a transaction is frozen.
package client

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/ledgertx/execute"
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/nodegrpc"
)

const DefaultValidDuration = 120 * time.Second

// Dialer opens the channel for a node address.
type Dialer func(node model.AccountID, address string) (grpc.ClientConnInterface, error)

// Option configures a Client at construction.
type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithMetrics(m *execute.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithDialer replaces the default gRPC dialer. Tests use it to hand out
// in-process channels.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

func defaultDialer(_ model.AccountID, address string) (grpc.ClientConnInterface, error) {
	return nodegrpc.Dial(address, nodegrpc.DialOptions{})
}

// Client is safe for concurrent use.
type Client struct {
	log     *zap.Logger
	metrics *execute.Metrics
	dialer  Dialer

	mu                   sync.RWMutex
	nodes                map[model.AccountID]*node
	order                []model.AccountID
	operator             *keys.Operator
	ledger               model.LedgerID
	defaultMaxFee        *model.Hbar
	defaultValidDuration time.Duration
	autoValidate         bool
	regenerate           bool
	maxAttempts          int
	minBackoff           time.Duration
	maxBackoff           time.Duration
	requestTimeout       time.Duration
	nodeMinBackoff       time.Duration
	nodeMaxBackoff       time.Duration
	now                  func() time.Time
}

// New dials every node in network, keyed by node account id. Channels
// connect lazily, so an unreachable node is reported on first use.
func New(network map[model.AccountID]string, opts ...Option) (*Client, error) {
	c := &Client{
		log:                  zap.NewNop(),
		dialer:               defaultDialer,
		nodes:                make(map[model.AccountID]*node, len(network)),
		defaultValidDuration: DefaultValidDuration,
		regenerate:           true,
		nodeMinBackoff:       DefaultNodeMinBackoff,
		nodeMaxBackoff:       DefaultNodeMaxBackoff,
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(network) == 0 {
		return nil, model.NewError(model.KindConfig, "client: network is empty")
	}

	for id, address := range network {
		id = id.WithoutChecksum()
		ch, err := c.dialer(id, address)
		if err != nil {
			_ = c.Close()
			return nil, model.WrapError(model.KindConfig, fmt.Sprintf("client: dial node %s at %s", id, address), err)
		}
		c.nodes[id] = &node{address: address, conn: ch}
		c.order = append(c.order, id)
	}
	sort.Slice(c.order, func(i, j int) bool { return lessAccount(c.order[i], c.order[j]) })
	return c, nil
}

func lessAccount(a, b model.AccountID) bool {
	if a.Shard != b.Shard {
		return a.Shard < b.Shard
	}
	if a.Realm != b.Realm {
		return a.Realm < b.Realm
	}
	if a.Num != b.Num {
		return a.Num < b.Num
	}
	return a.Alias < b.Alias
}

// Close closes every channel the client dialed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, n := range c.nodes {
		if closer, ok := n.conn.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	c.nodes = map[model.AccountID]*node{}
	c.order = nil
	return errors.Join(errs...)
}

func (c *Client) Logger() *zap.Logger { return c.log }

// SetOperator sets the account that pays for transactions and the signer
// that signs for it.
func (c *Client) SetOperator(account model.AccountID, signer keys.Signer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operator = &keys.Operator{AccountID: account, Signer: signer}
}

func (c *Client) Operator() *keys.Operator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.operator == nil {
		return nil
	}
	op := *c.operator
	return &op
}

func (c *Client) SetLedgerID(id model.LedgerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledger = append(model.LedgerID(nil), id...)
}

func (c *Client) LedgerID() model.LedgerID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger
}

func (c *Client) SetDefaultMaxTransactionFee(fee model.Hbar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultMaxFee = &fee
}

// DefaultMaxTransactionFee is nil when unset; transactions then fall back
// to their kind's default.
func (c *Client) DefaultMaxTransactionFee() *model.Hbar {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.defaultMaxFee == nil {
		return nil
	}
	fee := *c.defaultMaxFee
	return &fee
}

func (c *Client) SetDefaultValidDuration(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultValidDuration = d
}

func (c *Client) DefaultValidDuration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultValidDuration
}

func (c *Client) SetAutoValidateChecksums(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoValidate = v
}

func (c *Client) AutoValidateChecksums() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.autoValidate
}

// SetRegenerateTransactionID sets whether expired transaction ids are
// replaced and retried. Transactions may override it.
func (c *Client) SetRegenerateTransactionID(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regenerate = v
}

func (c *Client) SetMaxAttempts(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxAttempts = n
}

func (c *Client) SetBackoff(min, max time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.minBackoff, c.maxBackoff = min, max
}

// SetRequestTimeout bounds each execution when the caller's context has no
// deadline.
func (c *Client) SetRequestTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestTimeout = d
}

func (c *Client) ExecuteOptions() execute.Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return execute.Options{
		MaxAttempts:             c.maxAttempts,
		MinBackoff:              c.minBackoff,
		MaxBackoff:              c.maxBackoff,
		Timeout:                 c.requestTimeout,
		RegenerateTransactionID: c.regenerate,
		Logger:                  c.log,
		Metrics:                 c.metrics,
	}
}

// NodeAccountIDs returns every configured node in account order.
func (c *Client) NodeAccountIDs() []model.AccountID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.AccountID(nil), c.order...)
}

// Channel returns the channel for node, ignoring any checksum on the id.
func (c *Client) Channel(id model.AccountID) (grpc.ClientConnInterface, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[id.WithoutChecksum()]
	if !ok {
		return nil, fmt.Errorf("client: node %s is not in the network", id)
	}
	return n.conn, nil
}

// SampleNodeAccountIDs picks a random third (at least one) of the healthy
// nodes, or of all nodes when none is healthy.
func (c *Client) SampleNodeAccountIDs() []model.AccountID {
	c.mu.RLock()
	now := c.now()
	var healthy []model.AccountID
	for _, id := range c.order {
		if c.nodes[id].healthy(now) {
			healthy = append(healthy, id)
		}
	}
	if len(healthy) == 0 {
		healthy = append(healthy, c.order...)
	}
	c.mu.RUnlock()

	rand.Shuffle(len(healthy), func(i, j int) { healthy[i], healthy[j] = healthy[j], healthy[i] })
	n := (len(healthy) + 2) / 3
	return healthy[:n]
}
