package bundle_test

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/ledgertx/cidutil"
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/storage"
	"xdao.co/ledgertx/storage/bundle"
	"xdao.co/ledgertx/storage/localfs"
	"xdao.co/ledgertx/transaction"
)

func signedPrng(t *testing.T, rangeN int32) *transaction.Transaction {
	t.Helper()
	key, err := keys.Ed25519FromSeed(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	tx := transaction.NewPrng(rangeN).
		SetTransactionID(model.TransactionID{AccountID: model.NewAccountID(0, 0, 1001), ValidStart: time.Unix(1700000000, 0).UTC()}).
		SetNodeAccountIDs([]model.AccountID{model.NewAccountID(0, 0, 3)})
	require.NoError(t, tx.Freeze())
	return tx.Sign(key)
}

func storeTwo(t *testing.T, s storage.Store) (cid.Cid, cid.Cid) {
	t.Helper()
	ctx := context.Background()
	id1, err := storage.PutTransaction(ctx, s, signedPrng(t, 10))
	require.NoError(t, err)
	id2, err := storage.PutTransaction(ctx, s, signedPrng(t, 20))
	require.NoError(t, err)
	return id1, id2
}

func TestExportIsDeterministic(t *testing.T) {
	ctx := context.Background()
	s, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	id1, id2 := storeTwo(t, s)

	var a, b bytes.Buffer
	require.NoError(t, bundle.Export(ctx, &a, s, []cid.Cid{id2, id1}, bundle.ExportOptions{IncludeIndex: true}))
	require.NoError(t, bundle.Export(ctx, &b, s, []cid.Cid{id1, id2, id1}, bundle.ExportOptions{IncludeIndex: true}))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestExportIndexDescribesTransactions(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory()
	id1, _ := storeTwo(t, s)

	var out bytes.Buffer
	require.NoError(t, bundle.Export(ctx, &out, s, []cid.Cid{id1}, bundle.ExportOptions{
		IncludeIndex: true,
		Labels:       map[string]cid.Cid{"draw": id1},
	}))

	tr := tar.NewReader(&out)
	var names []string
	var index []byte
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, h.Name)
		assert.True(t, h.ModTime.Equal(time.Unix(0, 0)))
		if h.Name == "index.json" {
			index, err = io.ReadAll(tr)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, []string{"transactions/" + id1.String(), "index.json"}, names)

	var idx struct {
		Version      int `json:"version"`
		Transactions []struct {
			CID           string `json:"cid"`
			Kind          string `json:"kind"`
			TransactionID string `json:"transactionId"`
			Chunks        int    `json:"chunks"`
			Signers       int    `json:"signers"`
		} `json:"transactions"`
		Labels []struct {
			Name string `json:"name"`
			CID  string `json:"cid"`
		} `json:"labels"`
	}
	require.NoError(t, json.Unmarshal(index, &idx))
	assert.Equal(t, bundle.FormatVersion, idx.Version)
	require.Len(t, idx.Transactions, 1)
	entry := idx.Transactions[0]
	assert.Equal(t, id1.String(), entry.CID)
	assert.Equal(t, transaction.NewPrng(0).Payload().Kind(), entry.Kind)
	assert.NotEmpty(t, entry.TransactionID)
	assert.Equal(t, 1, entry.Chunks)
	assert.Equal(t, 1, entry.Signers)
	require.Len(t, idx.Labels, 1)
	assert.Equal(t, "draw", idx.Labels[0].Name)
}

func TestImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := storage.NewMemory()
	id1, id2 := storeTwo(t, src)

	var out bytes.Buffer
	require.NoError(t, bundle.Export(ctx, &out, src, []cid.Cid{id1, id2}, bundle.ExportOptions{IncludeIndex: true}))

	dst, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	ids, err := bundle.Import(ctx, bytes.NewReader(out.Bytes()), dst, bundle.ImportOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []cid.Cid{id1, id2}, ids)

	tx, err := storage.GetTransaction(ctx, dst, id2)
	require.NoError(t, err)
	assert.Equal(t, int32(20), tx.Payload().(transaction.Prng).Range)
}

func TestExportRejectsNonTransactions(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory()
	id, err := s.Put(ctx, []byte("not a transaction"))
	require.NoError(t, err)

	err = bundle.Export(ctx, io.Discard, s, []cid.Cid{id}, bundle.ExportOptions{})
	assert.True(t, errors.Is(err, storage.ErrNotTransaction))
}

func TestExportMissingObject(t *testing.T) {
	id, err := cidutil.CIDv1RawSHA256CID([]byte("absent"))
	require.NoError(t, err)
	err = bundle.Export(context.Background(), io.Discard, storage.NewMemory(), []cid.Cid{id}, bundle.ExportOptions{})
	assert.True(t, storage.IsNotFound(err))
}

func TestImportRejectsCIDMismatch(t *testing.T) {
	tx := signedPrng(t, 1)
	b, err := tx.ToBytes()
	require.NoError(t, err)
	wrong, err := cidutil.CIDv1RawSHA256CID([]byte("other"))
	require.NoError(t, err)

	archive := makeTar(t, "transactions/"+wrong.String(), b)
	_, err = bundle.Import(context.Background(), bytes.NewReader(archive), storage.NewMemory(), bundle.ImportOptions{})
	assert.True(t, errors.Is(err, storage.ErrCIDMismatch))
}

func TestImportRejectsNonTransactions(t *testing.T) {
	junk := []byte("junk")
	id, err := cidutil.CIDv1RawSHA256CID(junk)
	require.NoError(t, err)

	s := storage.NewMemory()
	_, err = bundle.Import(context.Background(), bytes.NewReader(makeTar(t, "transactions/"+id.String(), junk)), s, bundle.ImportOptions{})
	assert.True(t, errors.Is(err, storage.ErrNotTransaction))
	assert.Equal(t, 0, s.Len())
}

func TestImportUnknownEntries(t *testing.T) {
	archive := makeTar(t, "notes.txt", []byte("hello"))

	_, err := bundle.Import(context.Background(), bytes.NewReader(archive), storage.NewMemory(), bundle.ImportOptions{})
	require.Error(t, err)

	ids, err := bundle.Import(context.Background(), bytes.NewReader(archive), storage.NewMemory(), bundle.ImportOptions{IgnoreUnknown: true})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestImportRejectsPathTraversal(t *testing.T) {
	archive := makeTar(t, "transactions/../../etc/passwd", []byte("x"))
	_, err := bundle.Import(context.Background(), bytes.NewReader(archive), storage.NewMemory(), bundle.ImportOptions{IgnoreUnknown: true})
	require.Error(t, err)
}

func makeTar(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  time.Unix(0, 0).UTC(),
		Typeflag: tar.TypeReg,
		Format:   tar.FormatPAX,
	}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	return buf.Bytes()
}
