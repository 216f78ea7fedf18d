// Package storagetest is a conformance suite for storage.Store
// implementations.
package storagetest

import (
	"context"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/ledgertx/cidutil"
	"xdao.co/ledgertx/storage"
)

// NewStore constructs a fresh, empty store for one test. The returned store
// MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

func Run(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []byte("signed transaction list")

		id, err := s.Put(ctx, want)
		require.NoError(t, err)
		wantID, err := cidutil.CIDv1RawSHA256CID(want)
		require.NoError(t, err)
		assert.Equal(t, wantID, id)

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := []byte("same bytes")

		id1, err := s.Put(ctx, b)
		require.NoError(t, err)
		id2, err := s.Put(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, id1, id2)
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := []byte("missing")
		id, err := cidutil.CIDv1RawSHA256CID(b)
		require.NoError(t, err)

		ok, err := s.Has(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = s.Get(ctx, id)
		assert.True(t, storage.IsNotFound(err), "got %v", err)

		_, err = s.Put(ctx, b)
		require.NoError(t, err)
		ok, err = s.Has(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		s := newStore(t)
		var undef cid.Cid
		ok, _ := s.Has(ctx, undef)
		assert.False(t, ok)
		_, err := s.Get(ctx, undef)
		assert.Error(t, err)
	})

	t.Run("EmptyObject", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Put(ctx, nil)
		require.NoError(t, err)
		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
