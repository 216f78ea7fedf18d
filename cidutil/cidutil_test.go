package cidutil

import (
	"crypto/sha512"
	"testing"
)

func TestTransactionHashIsSHA384(t *testing.T) {
	data := []byte("signed transaction bytes")
	want := sha512.Sum384(data)
	got := TransactionHash(data)
	if got != want {
		t.Fatalf("hash mismatch: got %s", got)
	}
}

func TestCIDv1RawSHA256Stable(t *testing.T) {
	a := CIDv1RawSHA256([]byte("list"))
	b := CIDv1RawSHA256([]byte("list"))
	if a == "" || a != b {
		t.Fatalf("expected stable non-empty cid, got %q and %q", a, b)
	}
	if a == CIDv1RawSHA256([]byte("other")) {
		t.Fatalf("different bytes produced the same cid")
	}
}
