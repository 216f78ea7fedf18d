package client

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
)

type fakeConn struct {
	address string
	closed  bool
}

func (f *fakeConn) Invoke(context.Context, string, any, any, ...grpc.CallOption) error { return nil }
func (f *fakeConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, nil
}
func (f *fakeConn) Close() error { f.closed = true; return nil }

func fakeDialer(conns map[string]*fakeConn) Dialer {
	return func(_ model.AccountID, address string) (grpc.ClientConnInterface, error) {
		c := &fakeConn{address: address}
		conns[address] = c
		return c, nil
	}
}

func testNetwork(n int) map[model.AccountID]string {
	network := map[model.AccountID]string{}
	for i := 0; i < n; i++ {
		network[model.NewAccountID(0, 0, uint64(3+i))] = "node" + string(rune('a'+i))
	}
	return network
}

func TestNewOrdersNodesAndResolvesChannels(t *testing.T) {
	conns := map[string]*fakeConn{}
	c, err := New(testNetwork(3), WithDialer(fakeDialer(conns)))
	require.NoError(t, err)

	ids := c.NodeAccountIDs()
	require.Len(t, ids, 3)
	for i, id := range ids {
		assert.Equal(t, uint64(3+i), id.Num)
	}

	withChecksum := ids[0]
	withChecksum.Checksum = "abcde"
	ch, err := c.Channel(withChecksum)
	require.NoError(t, err)
	assert.Equal(t, "nodea", ch.(*fakeConn).address)

	_, err = c.Channel(model.NewAccountID(0, 0, 99))
	assert.Error(t, err)

	require.NoError(t, c.Close())
	for _, conn := range conns {
		assert.True(t, conn.closed)
	}
}

func TestNewRejectsEmptyNetwork(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindConfig))
}

func TestNodeHealthBackoff(t *testing.T) {
	c, err := New(testNetwork(1), WithDialer(fakeDialer(map[string]*fakeConn{})))
	require.NoError(t, err)
	c.SetNodeBackoff(time.Second, 3*time.Second)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	id := model.NewAccountID(0, 0, 3)

	assert.True(t, c.IsHealthy(id))
	c.MarkUnhealthy(id)
	assert.False(t, c.IsHealthy(id))

	now = now.Add(time.Second)
	assert.True(t, c.IsHealthy(id), "readmitted after min backoff")

	c.MarkUnhealthy(id)
	now = now.Add(time.Second)
	assert.False(t, c.IsHealthy(id), "second failure doubles the backoff")
	now = now.Add(time.Second)
	assert.True(t, c.IsHealthy(id))

	c.MarkUnhealthy(id)
	assert.Equal(t, 3*time.Second, c.nodes[id].backoff, "backoff is capped")

	c.MarkHealthy(id)
	assert.True(t, c.IsHealthy(id))
	assert.Zero(t, c.nodes[id].backoff)
}

func TestSampleNodeAccountIDs(t *testing.T) {
	c, err := New(testNetwork(6), WithDialer(fakeDialer(map[string]*fakeConn{})))
	require.NoError(t, err)

	sample := c.SampleNodeAccountIDs()
	assert.Len(t, sample, 2)

	all := c.NodeAccountIDs()
	for _, id := range all[:5] {
		c.MarkUnhealthy(id)
	}
	sample = c.SampleNodeAccountIDs()
	require.Len(t, sample, 1)
	assert.Equal(t, all[5], sample[0])

	c.MarkUnhealthy(all[5])
	assert.Len(t, c.SampleNodeAccountIDs(), 2, "falls back to all nodes when none is healthy")
}

func TestExecuteOptionsReflectSettings(t *testing.T) {
	c, err := New(testNetwork(1), WithDialer(fakeDialer(map[string]*fakeConn{})))
	require.NoError(t, err)
	c.SetMaxAttempts(4)
	c.SetBackoff(time.Millisecond, time.Second)
	c.SetRequestTimeout(time.Minute)
	c.SetRegenerateTransactionID(false)

	opts := c.ExecuteOptions()
	assert.Equal(t, 4, opts.MaxAttempts)
	assert.Equal(t, time.Millisecond, opts.MinBackoff)
	assert.Equal(t, time.Second, opts.MaxBackoff)
	assert.Equal(t, time.Minute, opts.Timeout)
	assert.False(t, opts.RegenerateTransactionID)
	assert.NotNil(t, opts.Logger)
}

func TestLoadConfigFileAndOpen(t *testing.T) {
	key, err := keys.Ed25519FromSeed(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "client.json")
	cfg := `{
	  "network": {"0.0.3": "127.0.0.1:50211", "0.0.4": "127.0.0.1:50212"},
	  "ledger_id": "testnet",
	  "operator": {"account_id": "0.0.1001", "key": "` + key.String() + `"},
	  "default_max_transaction_fee": "3",
	  "default_valid_duration": "90s",
	  "max_attempts": 5,
	  "min_backoff": "10ms",
	  "max_backoff": "1s",
	  "auto_validate_checksums": true,
	  "regenerate_transaction_id": false
	}`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)

	c, err := loaded.Open(WithDialer(fakeDialer(map[string]*fakeConn{})))
	require.NoError(t, err)
	defer c.Close()

	assert.Len(t, c.NodeAccountIDs(), 2)
	assert.True(t, c.LedgerID().Equal(model.Testnet))
	op := c.Operator()
	require.NotNil(t, op)
	assert.Equal(t, uint64(1001), op.AccountID.Num)
	assert.True(t, op.Signer.PublicKey().Equal(key.PublicKey()))
	require.NotNil(t, c.DefaultMaxTransactionFee())
	assert.Equal(t, model.NewHbar(3), *c.DefaultMaxTransactionFee())
	assert.Equal(t, 90*time.Second, c.DefaultValidDuration())
	assert.True(t, c.AutoValidateChecksums())

	opts := c.ExecuteOptions()
	assert.Equal(t, 5, opts.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, opts.MinBackoff)
	assert.False(t, opts.RegenerateTransactionID)
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		return Config{Network: map[string]string{"0.0.3": "127.0.0.1:50211"}}
	}
	require.NoError(t, base().Validate())

	cases := map[string]func(*Config){
		"empty network":   func(c *Config) { c.Network = nil },
		"bad node id":     func(c *Config) { c.Network = map[string]string{"three": "x"} },
		"empty address":   func(c *Config) { c.Network = map[string]string{"0.0.3": ""} },
		"bad ledger":      func(c *Config) { c.LedgerID = "nope" },
		"operator no key": func(c *Config) { c.Operator = &OperatorConfig{AccountID: "0.0.2"} },
		"operator two keys": func(c *Config) {
			c.Operator = &OperatorConfig{AccountID: "0.0.2", Key: "x", KeyFile: "y"}
		},
		"bad fee":      func(c *Config) { c.DefaultMaxTransactionFee = "lots" },
		"bad duration": func(c *Config) { c.MinBackoff = "soon" },
		"neg attempts": func(c *Config) { c.MaxAttempts = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, model.IsKind(err, model.KindConfig))
		})
	}

	_, err := LoadConfigFile("")
	assert.Error(t, err)
}
