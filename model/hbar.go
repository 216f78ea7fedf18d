package model

import (
	"fmt"
	"strconv"
	"strings"
)

// TinybarsPerHbar is the fixed-point scale of Hbar.
const TinybarsPerHbar = 100_000_000

// Hbar is an amount of the network currency, stored as tinybars.
type Hbar int64

func NewHbar(hbar int64) Hbar { return Hbar(hbar * TinybarsPerHbar) }

func HbarFromTinybars(tinybars int64) Hbar { return Hbar(tinybars) }

func (h Hbar) Tinybars() int64 { return int64(h) }

// ParseHbar accepts "2", "1.5" (hbar) or "500t" (tinybars).
func ParseHbar(s string) (Hbar, error) {
	s = strings.TrimSpace(s)
	if t, ok := strings.CutSuffix(s, "t"); ok {
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid tinybar amount %q: %w", s, err)
		}
		return Hbar(n), nil
	}
	whole, frac, _ := strings.Cut(s, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hbar amount %q: %w", s, err)
	}
	if len(frac) > 8 {
		return 0, fmt.Errorf("invalid hbar amount %q: more than 8 decimal places", s)
	}
	var f int64
	if frac != "" {
		f, err = strconv.ParseInt(frac+strings.Repeat("0", 8-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid hbar amount %q: %w", s, err)
		}
	}
	if strings.HasPrefix(whole, "-") {
		f = -f
	}
	return Hbar(w*TinybarsPerHbar + f), nil
}

func (h Hbar) String() string {
	t := int64(h)
	if t%TinybarsPerHbar == 0 {
		return fmt.Sprintf("%d ℏ", t/TinybarsPerHbar)
	}
	return fmt.Sprintf("%d tℏ", t)
}
