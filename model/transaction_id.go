package model

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TransactionID identifies a transaction by its payer and valid-start time.
// Nonce and Scheduled distinguish child and scheduled transactions.
type TransactionID struct {
	AccountID  AccountID
	ValidStart time.Time
	Nonce      int32
	Scheduled  bool
}

var lastValidStart struct {
	sync.Mutex
	t time.Time
}

// GenerateTransactionID returns a fresh id for payer. The valid start is
// backdated by a random 5 to 8 seconds so small clock skew against the
// network does not reject it, and is kept strictly increasing within the
// process so two calls never produce the same id.
func GenerateTransactionID(payer AccountID) TransactionID {
	jitter := 5*time.Second + time.Duration(rand.Int64N(int64(3*time.Second)))
	start := time.Now().UTC().Add(-jitter)

	lastValidStart.Lock()
	if !start.After(lastValidStart.t) {
		start = lastValidStart.t.Add(time.Nanosecond)
	}
	lastValidStart.t = start
	lastValidStart.Unlock()

	return TransactionID{AccountID: payer, ValidStart: start}
}

// ChunkTransactionID derives the id of chunk k from the initial chunk id.
// Chunk 0 is the initial id itself.
func (id TransactionID) ChunkTransactionID(k int) TransactionID {
	out := id
	out.Nonce = id.Nonce + int32(k)
	return out
}

// Equal compares every field, ignoring the payer's display checksum.
func (id TransactionID) Equal(other TransactionID) bool {
	return id.AccountID.Equal(other.AccountID) &&
		id.ValidStart.Equal(other.ValidStart) &&
		id.Nonce == other.Nonce &&
		id.Scheduled == other.Scheduled
}

// EqualPtr treats two nil ids as equal.
func EqualPtr(a, b *TransactionID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (id TransactionID) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s@%d.%09d", id.AccountID, id.ValidStart.Unix(), id.ValidStart.Nanosecond())
	if id.Scheduled {
		b.WriteString("?scheduled")
	}
	if id.Nonce != 0 {
		fmt.Fprintf(&b, "/%d", id.Nonce)
	}
	return b.String()
}

// ParseTransactionID parses the String form.
func ParseTransactionID(s string) (TransactionID, error) {
	var id TransactionID
	account, rest, ok := strings.Cut(s, "@")
	if !ok {
		return id, fmt.Errorf("invalid transaction id %q: missing '@'", s)
	}
	payer, err := ParseAccountID(account)
	if err != nil {
		return id, err
	}
	id.AccountID = payer

	if r, nonce, ok := strings.Cut(rest, "/"); ok {
		n, err := strconv.ParseInt(nonce, 10, 32)
		if err != nil {
			return TransactionID{}, fmt.Errorf("invalid transaction id %q: %w", s, err)
		}
		id.Nonce = int32(n)
		rest = r
	}
	if r, ok := strings.CutSuffix(rest, "?scheduled"); ok {
		id.Scheduled = true
		rest = r
	}

	secs, nanos, ok := strings.Cut(rest, ".")
	if !ok {
		return TransactionID{}, fmt.Errorf("invalid transaction id %q: valid start must be seconds.nanos", s)
	}
	sec, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return TransactionID{}, fmt.Errorf("invalid transaction id %q: %w", s, err)
	}
	nsec, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil || nsec >= int64(time.Second) {
		return TransactionID{}, fmt.Errorf("invalid transaction id %q: bad nanos", s)
	}
	id.ValidStart = time.Unix(sec, nsec).UTC()
	return id, nil
}
