package client

import (
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/ledgertx/model"
)

const (
	DefaultNodeMinBackoff = 8 * time.Second
	DefaultNodeMaxBackoff = time.Hour
)

// node is one address book entry. Health fields are guarded by Client.mu.
type node struct {
	address string
	conn    grpc.ClientConnInterface

	backoff   time.Duration
	readmitAt time.Time
}

func (n *node) healthy(now time.Time) bool {
	return !now.Before(n.readmitAt)
}

// SetNodeBackoff bounds how long an unhealthy node is skipped. Each
// consecutive failure doubles the wait from min up to max.
func (c *Client) SetNodeBackoff(min, max time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodeMinBackoff, c.nodeMaxBackoff = min, max
}

func (c *Client) IsHealthy(id model.AccountID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[id.WithoutChecksum()]
	return ok && n.healthy(c.now())
}

func (c *Client) MarkHealthy(id model.AccountID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id.WithoutChecksum()]
	if !ok {
		return
	}
	if n.backoff != 0 {
		c.log.Info("node readmitted", zap.Stringer("node", id))
	}
	n.backoff = 0
	n.readmitAt = time.Time{}
}

func (c *Client) MarkUnhealthy(id model.AccountID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id.WithoutChecksum()]
	if !ok {
		return
	}
	switch {
	case n.backoff == 0:
		n.backoff = c.nodeMinBackoff
	default:
		n.backoff *= 2
	}
	if n.backoff > c.nodeMaxBackoff {
		n.backoff = c.nodeMaxBackoff
	}
	n.readmitAt = c.now().Add(n.backoff)
	c.log.Warn("node marked unhealthy",
		zap.Stringer("node", id),
		zap.String("address", n.address),
		zap.Duration("backoff", n.backoff),
	)
}
