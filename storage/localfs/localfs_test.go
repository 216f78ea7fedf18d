package localfs

import (
	"context"
	"os"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/ledgertx/storage"
	"xdao.co/ledgertx/storage/storagetest"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := New(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestRejectsMutationByOverwrite(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	orig := []byte("original")
	id, err := s.Put(ctx, orig)
	require.NoError(t, err)

	// Corrupt the stored object out-of-band.
	path := s.pathFor(id)
	require.NoError(t, os.Chmod(path, 0o644))
	require.NoError(t, os.WriteFile(path, []byte("corrupted"), 0o644))

	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, storage.ErrCIDMismatch)

	// Put must not repair or overwrite the corrupted object.
	_, err = s.Put(ctx, orig)
	assert.ErrorIs(t, err, storage.ErrImmutable)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	a, err := s.Put(ctx, []byte("a"))
	require.NoError(t, err)
	b, err := s.Put(ctx, []byte("b"))
	require.NoError(t, err)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []cid.Cid{a, b}, ids)
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Put(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
