package model

import (
	"fmt"
	"strconv"
	"strings"
)

// AccountID names an account as shard.realm.num. Alias, when set, holds the
// raw alias bytes (a serialized key or a 20 byte EVM address) and replaces Num
// on the wire.
//
// Checksum is carried for validation only and is ignored by Equal.
type AccountID struct {
	Shard    uint64
	Realm    uint64
	Num      uint64
	Alias    string
	Checksum string
}

func NewAccountID(shard, realm, num uint64) AccountID {
	return AccountID{Shard: shard, Realm: realm, Num: num}
}

// ParseAccountID parses "shard.realm.num" with an optional "-checksum" suffix.
func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	body, checksum, hasChecksum := strings.Cut(strings.TrimSpace(s), "-")
	parts := strings.Split(body, ".")
	if len(parts) != 3 {
		return id, fmt.Errorf("invalid account id %q: expected shard.realm.num", s)
	}
	nums := make([]uint64, 3)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return id, fmt.Errorf("invalid account id %q: %w", s, err)
		}
		nums[i] = n
	}
	id = AccountID{Shard: nums[0], Realm: nums[1], Num: nums[2]}
	if hasChecksum {
		if len(checksum) != 5 {
			return AccountID{}, fmt.Errorf("invalid account id %q: checksum must be 5 letters", s)
		}
		id.Checksum = checksum
	}
	return id, nil
}

func (a AccountID) String() string {
	return fmt.Sprintf("%d.%d.%d", a.Shard, a.Realm, a.Num)
}

// ToStringWithChecksum renders the id with the checksum computed for ledger.
func (a AccountID) ToStringWithChecksum(ledger LedgerID) string {
	return a.String() + "-" + checksumFor(a.String(), ledger)
}

// Equal compares ids ignoring the checksum.
func (a AccountID) Equal(b AccountID) bool {
	return a.WithoutChecksum() == b.WithoutChecksum()
}

func (a AccountID) WithoutChecksum() AccountID {
	a.Checksum = ""
	return a
}

// ValidateChecksum succeeds when no checksum is set or when it matches ledger.
func (a AccountID) ValidateChecksum(ledger LedgerID) error {
	if a.Checksum == "" || a.Alias != "" {
		return nil
	}
	expected := checksumFor(a.String(), ledger)
	if expected != a.Checksum {
		return &ChecksumMismatchError{Entity: a.String(), Expected: expected, Actual: a.Checksum}
	}
	return nil
}

// checksumFor implements the HIP-15 entity id checksum.
func checksumFor(addr string, ledger LedgerID) string {
	const (
		p3 = 26 * 26 * 26
		p5 = 26 * 26 * 26 * 26 * 26
		m  = 1_000_003
		w  = 31
	)

	var sd0, sd1, sd, sh uint64
	for i := 0; i < len(addr); i++ {
		var d uint64 = 10
		if addr[i] != '.' {
			d = uint64(addr[i] - '0')
		}
		sd = (w*sd + d) % p3
		if i%2 == 0 {
			sd0 = (sd0 + d) % 11
		} else {
			sd1 = (sd1 + d) % 11
		}
	}

	h := append(append([]byte(nil), ledger...), 0, 0, 0, 0, 0, 0)
	for _, b := range h {
		sh = (w*sh + uint64(b)) % p5
	}

	c := ((((uint64(len(addr))%5)*11+sd0)*11+sd1)*p3 + sd + sh) % p5
	c = (c * m) % p5

	out := make([]byte, 5)
	for i := 4; i >= 0; i-- {
		out[i] = byte('a' + c%26)
		c /= 26
	}
	return string(out)
}

// EntityID names a topic, file, token or schedule.
type EntityID struct {
	Shard    uint64
	Realm    uint64
	Num      uint64
	Checksum string
}

func ParseEntityID(s string) (EntityID, error) {
	a, err := ParseAccountID(s)
	if err != nil {
		return EntityID{}, err
	}
	return EntityID{Shard: a.Shard, Realm: a.Realm, Num: a.Num, Checksum: a.Checksum}, nil
}

func (e EntityID) String() string {
	return fmt.Sprintf("%d.%d.%d", e.Shard, e.Realm, e.Num)
}

func (e EntityID) ValidateChecksum(ledger LedgerID) error {
	if e.Checksum == "" {
		return nil
	}
	expected := checksumFor(e.String(), ledger)
	if expected != e.Checksum {
		return &ChecksumMismatchError{Entity: e.String(), Expected: expected, Actual: e.Checksum}
	}
	return nil
}

func (e EntityID) ToStringWithChecksum(ledger LedgerID) string {
	return e.String() + "-" + checksumFor(e.String(), ledger)
}
