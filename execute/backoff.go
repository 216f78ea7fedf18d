package execute

import (
	"context"
	"time"
)

// backoff doubles from min up to max between attempts.
type backoff struct {
	min, max time.Duration
	next     time.Duration
}

func newBackoff(min, max time.Duration) *backoff {
	return &backoff{min: min, max: max, next: min}
}

func (b *backoff) duration() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// wait sleeps for the next interval or until ctx is done.
func (b *backoff) wait(ctx context.Context) error {
	t := time.NewTimer(b.duration())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
