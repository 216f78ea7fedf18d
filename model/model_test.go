package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountID(t *testing.T) {
	id, err := ParseAccountID("0.0.1234")
	require.NoError(t, err)
	assert.Equal(t, NewAccountID(0, 0, 1234), id)
	assert.Equal(t, "0.0.1234", id.String())

	_, err = ParseAccountID("0.0")
	require.Error(t, err)
	_, err = ParseAccountID("0.0.x")
	require.Error(t, err)
	_, err = ParseAccountID("0.0.5-abc")
	require.Error(t, err)
}

func TestChecksumRoundTrip(t *testing.T) {
	id := NewAccountID(0, 0, 123)
	withChecksum := id.ToStringWithChecksum(Mainnet)

	parsed, err := ParseAccountID(withChecksum)
	require.NoError(t, err)
	require.NoError(t, parsed.ValidateChecksum(Mainnet))
	assert.True(t, parsed.Equal(id), "checksum must not affect equality")

	err = parsed.ValidateChecksum(Testnet)
	if err != nil {
		var mismatch *ChecksumMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.True(t, IsKind(err, KindChecksum))
	}
	assert.NotEqual(t, id.ToStringWithChecksum(Mainnet), id.ToStringWithChecksum(Previewnet))
}

func TestChecksumWithoutChecksumAlwaysValid(t *testing.T) {
	require.NoError(t, NewAccountID(0, 0, 9).ValidateChecksum(Testnet))
	require.NoError(t, EntityID{Num: 9}.ValidateChecksum(Testnet))
}

func TestGenerateTransactionIDUnique(t *testing.T) {
	payer := NewAccountID(0, 0, 5)
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := GenerateTransactionID(payer)
		s := id.String()
		_, dup := seen[s]
		require.False(t, dup, "duplicate id %s", s)
		seen[s] = struct{}{}
		assert.True(t, id.ValidStart.Before(time.Now()))
	}
}

func TestTransactionIDStringRoundTrip(t *testing.T) {
	id := TransactionID{
		AccountID:  NewAccountID(0, 0, 5),
		ValidStart: time.Unix(1700000000, 42).UTC(),
		Nonce:      3,
		Scheduled:  true,
	}
	assert.Equal(t, "0.0.5@1700000000.000000042?scheduled/3", id.String())

	parsed, err := ParseTransactionID(id.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(id))
}

func TestChunkTransactionID(t *testing.T) {
	initial := GenerateTransactionID(NewAccountID(0, 0, 7))
	assert.True(t, initial.ChunkTransactionID(0).Equal(initial))

	second := initial.ChunkTransactionID(1)
	assert.False(t, second.Equal(initial))
	assert.Equal(t, initial.ValidStart, second.ValidStart)
	assert.Equal(t, int32(1), second.Nonce)
}

func TestHbar(t *testing.T) {
	assert.Equal(t, int64(200_000_000), NewHbar(2).Tinybars())
	assert.Equal(t, "2 ℏ", NewHbar(2).String())
	assert.Equal(t, "500 tℏ", HbarFromTinybars(500).String())

	h, err := ParseHbar("1.5")
	require.NoError(t, err)
	assert.Equal(t, int64(150_000_000), h.Tinybars())

	h, err = ParseHbar("500t")
	require.NoError(t, err)
	assert.Equal(t, int64(500), h.Tinybars())
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("freeze: %w", ErrNoNodeAccountIDs)
	assert.True(t, errors.Is(wrapped, ErrNoNodeAccountIDs))
	assert.True(t, IsKind(wrapped, KindConfig))
	assert.False(t, IsKind(wrapped, KindDecode))

	pre := &PrecheckError{Status: StatusBusy}
	assert.True(t, IsKind(fmt.Errorf("x: %w", pre), KindPreCheck))

	partial := &PartialChunkError{Completed: 1, Total: 3, Cause: pre}
	assert.True(t, IsKind(partial, KindPartialChunk))
	assert.True(t, IsKind(partial, KindPreCheck), "cause kind is visible through Unwrap")
}

func TestLedgerIDFromString(t *testing.T) {
	l, err := LedgerIDFromString("testnet")
	require.NoError(t, err)
	assert.True(t, l.Equal(Testnet))
	assert.Equal(t, "testnet", l.String())

	l, err = LedgerIDFromString("0x03")
	require.NoError(t, err)
	assert.Equal(t, LedgerID{3}, l)

	_, err = LedgerIDFromString("nope")
	require.Error(t, err)
}
