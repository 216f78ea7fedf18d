package grpcstore

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/storage"
	"xdao.co/ledgertx/storage/localfs"
	"xdao.co/ledgertx/storage/storagetest"
	"xdao.co/ledgertx/transaction"
)

func serve(t *testing.T, srv *Server) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterStoreServer(s, srv)
	go func() {
		_ = s.Serve(lis)
	}()
	t.Cleanup(s.Stop)

	c, err := Dial("passthrough:///bufnet", DialOptions{Timeout: 2 * time.Second},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		fs, err := localfs.New(t.TempDir())
		require.NoError(t, err)
		return serve(t, &Server{Store: fs, AcceptAny: true})
	})
}

func TestServerRequiresTransactions(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemory()
	c := serve(t, &Server{Store: backing})

	_, err := c.Put(ctx, []byte("junk"))
	assert.ErrorIs(t, err, storage.ErrNotTransaction)
	assert.Zero(t, backing.Len())

	key, err := keys.Ed25519FromSeed(make([]byte, 32))
	require.NoError(t, err)
	payer := model.NewAccountID(0, 0, 1001)
	tx := transaction.NewPrng(10).
		SetTransactionID(model.TransactionID{AccountID: payer, ValidStart: time.Now().UTC()}).
		SetNodeAccountIDs([]model.AccountID{model.NewAccountID(0, 0, 3)})
	require.NoError(t, tx.Freeze())
	tx.Sign(key)

	id, err := storage.PutTransaction(ctx, c, tx)
	require.NoError(t, err)
	ok, err := c.Has(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := storage.GetTransaction(ctx, c, id)
	require.NoError(t, err)
	assert.Equal(t, transaction.Prng{Range: 10}, got.Payload())
}

func TestServerWithoutStore(t *testing.T) {
	c := serve(t, &Server{})
	_, err := c.Put(context.Background(), []byte("x"))
	assert.Error(t, err)
}

func TestMissingObjectMapsToNotFound(t *testing.T) {
	c := serve(t, &Server{Store: storage.NewMemory()})
	id, err := storage.NewMemory().Put(context.Background(), []byte("elsewhere"))
	require.NoError(t, err)
	_, err = c.Get(context.Background(), id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
