package model

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// LedgerID identifies a network instance. It seeds entity id checksums.
type LedgerID []byte

var (
	Mainnet    = LedgerID{0}
	Testnet    = LedgerID{1}
	Previewnet = LedgerID{2}
)

// LedgerIDFromString accepts "mainnet", "testnet", "previewnet" or a hex string.
func LedgerIDFromString(s string) (LedgerID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet":
		return Mainnet, nil
	case "testnet":
		return Testnet, nil
	case "previewnet":
		return Previewnet, nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(b) == 0 {
		return nil, fmt.Errorf("invalid ledger id %q", s)
	}
	return LedgerID(b), nil
}

func (l LedgerID) Equal(other LedgerID) bool { return bytes.Equal(l, other) }

func (l LedgerID) String() string {
	switch {
	case l.Equal(Mainnet):
		return "mainnet"
	case l.Equal(Testnet):
		return "testnet"
	case l.Equal(Previewnet):
		return "previewnet"
	default:
		return hex.EncodeToString(l)
	}
}
