package transaction

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/ledgertx/client"
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/nodegrpc"
	"xdao.co/ledgertx/wire"
)

var (
	payer   = model.NewAccountID(0, 0, 1001)
	node3   = model.NewAccountID(0, 0, 3)
	node4   = model.NewAccountID(0, 0, 4)
	node5   = model.NewAccountID(0, 0, 5)
	topicID = model.EntityID{Num: 5005}
	fileID  = model.EntityID{Num: 6006}
)

func seededKey(t *testing.T, seed byte) keys.PrivateKey {
	t.Helper()
	key, err := keys.Ed25519FromSeed(bytes.Repeat([]byte{seed}, 32))
	require.NoError(t, err)
	return key
}

func testTxID() model.TransactionID {
	return model.TransactionID{AccountID: payer, ValidStart: time.Now().Add(-10 * time.Second).UTC().Truncate(time.Microsecond)}
}

type testNet struct {
	client *client.Client
	sims   map[model.AccountID]*nodegrpc.Simulator
	key    keys.PrivateKey
}

// newTestNet starts one simulator per node, all requiring the operator's
// signature for payer, behind a client that retries fast.
func newTestNet(t *testing.T, nodes []model.AccountID, opts nodegrpc.SimulatorOptions) *testNet {
	t.Helper()
	key := seededKey(t, 9)
	tn := &testNet{sims: map[model.AccountID]*nodegrpc.Simulator{}, key: key}

	listeners := map[string]*bufconn.Listener{}
	network := map[model.AccountID]string{}
	for _, id := range nodes {
		o := opts
		o.AccountID = id
		o.Accounts = map[model.AccountID]keys.PublicKey{payer: key.PublicKey()}
		sim := nodegrpc.NewSimulator(o)
		tn.sims[id] = sim

		lis := bufconn.Listen(1 << 20)
		srv := nodegrpc.NewServer()
		nodegrpc.RegisterNodeServer(srv, sim)
		go func() {
			_ = srv.Serve(lis)
		}()
		t.Cleanup(srv.Stop)

		address := fmt.Sprintf("node-%d", id.Num)
		listeners[address] = lis
		network[id] = address
	}

	dialer := func(_ model.AccountID, address string) (grpc.ClientConnInterface, error) {
		lis := listeners[address]
		return nodegrpc.Dial("passthrough:///"+address, nodegrpc.DialOptions{},
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	}
	c, err := client.New(network, client.WithDialer(dialer))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	c.SetOperator(payer, key)
	c.SetBackoff(time.Millisecond, 5*time.Millisecond)
	c.SetNodeBackoff(time.Millisecond, 5*time.Millisecond)
	tn.client = c
	return tn
}

func (tn *testNet) hookAll(h nodegrpc.Hook) {
	for _, sim := range tn.sims {
		sim.SetHook(h)
	}
}

// fakeClient supplies freeze defaults without a network.
type fakeClient struct {
	operator *keys.Operator
	fee      *model.Hbar
	valid    time.Duration
	ledger   model.LedgerID
	validate bool
	nodes    []model.AccountID
}

func (f *fakeClient) Operator() *keys.Operator                { return f.operator }
func (f *fakeClient) DefaultMaxTransactionFee() *model.Hbar   { return f.fee }
func (f *fakeClient) DefaultValidDuration() time.Duration     { return f.valid }
func (f *fakeClient) LedgerID() model.LedgerID                { return f.ledger }
func (f *fakeClient) AutoValidateChecksums() bool             { return f.validate }
func (f *fakeClient) SampleNodeAccountIDs() []model.AccountID { return f.nodes }

func newFakeClient(t *testing.T) *fakeClient {
	return &fakeClient{
		operator: &keys.Operator{AccountID: payer, Signer: seededKey(t, 9)},
		nodes:    []model.AccountID{node3, node4},
	}
}

func testTransfer() *Transaction {
	return NewTransfer(
		HbarTransfer{AccountID: payer, Amount: model.HbarFromTinybars(-100)},
		HbarTransfer{AccountID: model.NewAccountID(0, 0, 1002), Amount: model.HbarFromTinybars(100)},
	)
}

// frozenTransfer is frozen without a client and carries no signatures.
func frozenTransfer(t *testing.T, nodes ...model.AccountID) *Transaction {
	t.Helper()
	tx := testTransfer().SetTransactionID(testTxID()).SetNodeAccountIDs(nodes)
	require.NoError(t, tx.Freeze())
	return tx
}

func decodeBody(t *testing.T, env wire.Transaction) (wire.SignedTransaction, wire.TransactionBody) {
	t.Helper()
	st, err := env.Signed()
	require.NoError(t, err)
	var body wire.TransactionBody
	require.NoError(t, body.Unmarshal(st.BodyBytes))
	return st, body
}

func topicChunkInfo(body *wire.TransactionBody) *wire.ConsensusMessageChunkInfo {
	if body.Data.Field != wire.DataConsensusSubmitMessage {
		return nil
	}
	var m wire.ConsensusSubmitMessageTransactionBody
	if err := m.Unmarshal(body.Data.Bytes); err != nil {
		return nil
	}
	return m.ChunkInfo
}
