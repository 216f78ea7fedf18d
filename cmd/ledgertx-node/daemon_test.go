package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"xdao.co/ledgertx/client"
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/storage"
	"xdao.co/ledgertx/storage/grpcstore"
	"xdao.co/ledgertx/transaction"
)

var (
	testPayer = model.NewAccountID(0, 0, 1001)
	testNode  = model.NewAccountID(0, 0, 3)
)

func testKey(t *testing.T) keys.PrivateKey {
	t.Helper()
	key, err := keys.Ed25519FromSeed(bytes.Repeat([]byte{4}, 32))
	require.NoError(t, err)
	return key
}

func TestDaemonServesNodeStoreAndMetrics(t *testing.T) {
	key := testKey(t)
	d, err := start(config{
		Listen:        "127.0.0.1:0",
		Account:       testNode.String(),
		Payers:        []string{testPayer.String() + "=" + key.PublicKey().String()},
		StoreListen:   "127.0.0.1:0",
		StoreDir:      t.TempDir(),
		MetricsListen: "127.0.0.1:0",
	}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	waitCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- d.Wait(waitCtx) }()

	cl, err := client.New(map[model.AccountID]string{testNode: d.NodeAddr()})
	require.NoError(t, err)
	defer cl.Close()
	cl.SetOperator(testPayer, key)

	resp, err := transaction.NewPrng(10).Execute(ctx, cl)
	require.NoError(t, err)
	receipt, err := resp.GetReceipt(ctx, cl)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, receipt.Status)

	sc, err := grpcstore.Dial(d.StoreAddr(), grpcstore.DialOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer sc.Close()
	tx := transaction.NewPrng(3)
	require.NoError(t, tx.FreezeWith(cl))
	id, err := storage.PutTransaction(ctx, sc, tx.Sign(key))
	require.NoError(t, err)
	got, err := storage.GetTransaction(ctx, sc, id)
	require.NoError(t, err)
	assert.Equal(t, "Prng", got.Payload().Kind())

	res, err := http.Get("http://" + d.MetricsAddr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, res.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "ledgertx_simulator_transactions_total")
	assert.Contains(t, string(body), "go_goroutines")

	stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		require.FailNow(t, "daemon did not stop")
	}
}

func TestStartRejectsBadConfig(t *testing.T) {
	cases := map[string]config{
		"account":         {Listen: "127.0.0.1:0", Account: "three"},
		"fee":             {Listen: "127.0.0.1:0", Account: "0.0.3", Fee: "lots"},
		"payer":           {Listen: "127.0.0.1:0", Account: "0.0.3", Payers: []string{"0.0.1001"}},
		"store backing":   {Listen: "127.0.0.1:0", Account: "0.0.3", StoreListen: "127.0.0.1:0"},
		"listen":          {Listen: "not an address", Account: "0.0.3"},
		"store directory": {Listen: "127.0.0.1:0", Account: "0.0.3", StoreListen: "127.0.0.1:0", StoreConfig: "/nonexistent/store.json"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := start(cfg, zap.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestParsePayers(t *testing.T) {
	key := testKey(t)
	pub := key.PublicKey().String()

	got, err := parsePayers([]string{"0.0.1001=" + pub})
	require.NoError(t, err)
	require.Contains(t, got, testPayer)
	assert.True(t, got[testPayer].Equal(key.PublicKey()))

	_, err = parsePayers([]string{"0.0.1001=" + pub, "0.0.1001=" + pub})
	assert.Error(t, err)
	_, err = parsePayers([]string{"0.0.1001=zz"})
	assert.Error(t, err)
}

func TestKeyStorePayers(t *testing.T) {
	dir := t.TempDir()
	ks, err := keys.OpenKeyStore(dir)
	require.NoError(t, err)
	key := testKey(t)
	_, err = ks.Save("operator", key, &testPayer, false)
	require.NoError(t, err)
	_, err = ks.Save("loose", key, nil, false)
	require.NoError(t, err)

	var cfg config
	require.NoError(t, cfg.addKeyStorePayers(dir, []string{"operator"}))
	assert.Equal(t, []string{testPayer.String() + "=" + key.PublicKey().String()}, cfg.Payers)

	assert.Error(t, cfg.addKeyStorePayers(dir, []string{"loose"}))
}
