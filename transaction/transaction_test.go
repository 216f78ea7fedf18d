package transaction

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/ledgertx/cidutil"
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/wire"
)

func TestSettersPanicOnceFrozen(t *testing.T) {
	setters := map[string]func(*Transaction){
		"payload":        func(tx *Transaction) { tx.SetPayload(Prng{}) },
		"nodes":          func(tx *Transaction) { tx.SetNodeAccountIDs([]model.AccountID{node4}) },
		"valid duration": func(tx *Transaction) { tx.SetValidDuration(time.Minute) },
		"max fee":        func(tx *Transaction) { tx.SetMaxTransactionFee(model.NewHbar(3)) },
		"memo":           func(tx *Transaction) { tx.SetMemo("late") },
		"transaction id": func(tx *Transaction) { tx.SetTransactionID(testTxID()) },
		"regenerate":     func(tx *Transaction) { tx.SetRegenerateTransactionID(false) },
		"custom fees":    func(tx *Transaction) { tx.SetCustomFeeLimits(nil) },
		"add custom fee": func(tx *Transaction) { tx.AddCustomFeeLimit(model.CustomFeeLimit{}) },
		"schedule":       func(tx *Transaction) { _, _ = tx.Schedule() },
		"chunk size":     func(tx *Transaction) { tx.SetChunkSize(10) },
		"max chunks":     func(tx *Transaction) { tx.SetMaxChunks(10) },
	}
	for name, set := range setters {
		t.Run(name, func(t *testing.T) {
			tx := NewTopicMessageSubmit(topicID, []byte("m")).
				SetTransactionID(testTxID()).
				SetNodeAccountIDs([]model.AccountID{node3})
			require.NoError(t, tx.Freeze())
			assert.Panics(t, func() { set(tx) })
		})
	}
}

func TestSignersAreAllowedAfterFreeze(t *testing.T) {
	tx := frozenTransfer(t, node3)
	key := seededKey(t, 1)
	assert.NotPanics(t, func() { tx.Sign(key) })
	tx.Sign(key).AddSigner(key)
	tx.SignWith(key.PublicKey(), key.Sign)
	assert.Len(t, tx.Signers(), 1, "signers are deduplicated by public key")
}

func TestEmptyNodeListIsIgnored(t *testing.T) {
	tx := testTransfer().SetNodeAccountIDs([]model.AccountID{node3})
	tx.SetNodeAccountIDs(nil)
	assert.Equal(t, []model.AccountID{node3}, tx.NodeAccountIDs())
}

func TestChunkSettersRejectUnchunkedKinds(t *testing.T) {
	assert.Panics(t, func() { testTransfer().SetChunkSize(10) })
}

func TestFreezeNeedsIDAndNodes(t *testing.T) {
	err := testTransfer().SetNodeAccountIDs([]model.AccountID{node3}).Freeze()
	assert.True(t, errors.Is(err, model.ErrNoPayerAccountOrTransactionID))

	err = testTransfer().SetTransactionID(testTxID()).Freeze()
	assert.True(t, errors.Is(err, model.ErrNoNodeAccountIDs))

	c := newFakeClient(t)
	c.nodes = nil
	tx := testTransfer()
	err = tx.FreezeWith(c)
	assert.True(t, errors.Is(err, model.ErrNoNodeAccountIDs))
	assert.False(t, tx.IsFrozen())
	assert.Nil(t, tx.TransactionID(), "a failed freeze commits nothing")
}

func TestFreezeWithFillsFromClient(t *testing.T) {
	c := newFakeClient(t)
	fee := model.NewHbar(7)
	c.fee = &fee
	c.valid = 90 * time.Second

	tx := testTransfer()
	require.NoError(t, tx.FreezeWith(c))
	require.NotNil(t, tx.TransactionID())
	assert.True(t, tx.TransactionID().AccountID.Equal(payer))
	assert.Equal(t, []model.AccountID{node3, node4}, tx.NodeAccountIDs())
	assert.Equal(t, fee, *tx.MaxTransactionFee())
	assert.Equal(t, 90*time.Second, tx.ValidDuration())

	id := *tx.TransactionID()
	other := newFakeClient(t)
	other.nodes = []model.AccountID{node5}
	require.NoError(t, tx.FreezeWith(other))
	assert.True(t, tx.TransactionID().Equal(id), "freezing twice changes nothing")
	assert.Equal(t, []model.AccountID{node3, node4}, tx.NodeAccountIDs())
}

func TestFreezeKeepsExplicitSettings(t *testing.T) {
	c := newFakeClient(t)
	id := testTxID()
	tx := testTransfer().
		SetTransactionID(id).
		SetNodeAccountIDs([]model.AccountID{node5}).
		SetMaxTransactionFee(model.NewHbar(2))
	require.NoError(t, tx.FreezeWith(c))
	assert.True(t, tx.TransactionID().Equal(id))
	assert.Equal(t, []model.AccountID{node5}, tx.NodeAccountIDs())
	assert.Equal(t, model.NewHbar(2), *tx.MaxTransactionFee())
}

func TestFreezeValidatesChecksums(t *testing.T) {
	good, err := model.ParseAccountID(node3.ToStringWithChecksum(model.Testnet))
	require.NoError(t, err)
	bad := node3
	bad.Checksum = "aaaaa"

	c := newFakeClient(t)
	c.validate = true
	c.ledger = model.Testnet

	tx := testTransfer().SetNodeAccountIDs([]model.AccountID{good})
	require.NoError(t, tx.FreezeWith(c))

	tx = testTransfer().SetNodeAccountIDs([]model.AccountID{bad})
	err = tx.FreezeWith(c)
	var mismatch *model.ChecksumMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.False(t, tx.IsFrozen())

	topic := topicID
	topic.Checksum = "zzzzz"
	err = NewTopicMessageSubmit(topic, []byte("x")).FreezeWith(c)
	assert.True(t, errors.As(err, &mismatch))

	c.ledger = nil
	err = testTransfer().FreezeWith(c)
	assert.True(t, model.IsKind(err, model.KindConfig))
}

func TestBodyUsesFeeAndValidityDefaults(t *testing.T) {
	tx := NewFileAppend(fileID, []byte("x")).SetTransactionID(testTxID()).SetNodeAccountIDs([]model.AccountID{node3})
	require.NoError(t, tx.Freeze())
	src := sourcesOf(t, tx)
	_, body := decodeBody(t, src.Transactions()[0])
	assert.Equal(t, uint64(model.NewHbar(5).Tinybars()), body.TransactionFee)
	assert.Equal(t, DefaultValidDuration, body.ValidDuration.Duration())
	assert.False(t, body.GenerateRecord)
}

func TestBytesRoundTrip(t *testing.T) {
	k1, k2 := seededKey(t, 1), seededKey(t, 2)
	limits := []model.CustomFeeLimit{{
		AccountID: &payer,
		Fees:      []model.FixedFee{{Amount: 10}},
	}}
	tx := testTransfer().
		SetTransactionID(testTxID()).
		SetNodeAccountIDs([]model.AccountID{node3, node4}).
		SetMemo("round trip").
		SetMaxTransactionFee(model.NewHbar(3)).
		SetValidDuration(time.Minute).
		SetCustomFeeLimits(limits)
	require.NoError(t, tx.Freeze())
	tx.Sign(k1).Sign(k2)

	b, err := tx.ToBytes()
	require.NoError(t, err)
	decoded, err := FromBytes(b)
	require.NoError(t, err)

	assert.True(t, decoded.IsFrozen())
	assert.Equal(t, "round trip", decoded.Memo())
	assert.Equal(t, model.NewHbar(3), *decoded.MaxTransactionFee())
	assert.Equal(t, time.Minute, decoded.ValidDuration())
	assert.True(t, decoded.TransactionID().Equal(*tx.TransactionID()))
	assert.Equal(t, []model.AccountID{node3, node4}, decoded.NodeAccountIDs())
	assert.Equal(t, tx.Payload(), decoded.Payload())
	require.Len(t, decoded.CustomFeeLimits(), 1)
	assert.Equal(t, uint64(10), decoded.CustomFeeLimits()[0].Fees[0].Amount)
	assert.Len(t, decoded.Sources().Signers(), 2)

	again, err := decoded.ToBytes()
	require.NoError(t, err)
	assert.Equal(t, b, again, "decoded envelopes are re-emitted as they are")
}

func TestBytesRoundTripChunked(t *testing.T) {
	content := make([]byte, 2500)
	for i := range content {
		content[i] = byte(i)
	}
	tx := NewTopicMessageSubmit(topicID, content).
		SetTransactionID(testTxID()).
		SetNodeAccountIDs([]model.AccountID{node3})
	require.NoError(t, tx.Freeze())

	b, err := tx.ToBytes()
	require.NoError(t, err)
	decoded, err := FromBytes(b)
	require.NoError(t, err)

	msg, ok := decoded.Payload().(TopicMessageSubmit)
	require.True(t, ok)
	assert.Equal(t, content, msg.Message)
	assert.Equal(t, topicID, msg.TopicID)
	assert.Equal(t, DefaultTopicChunkSize, msg.ChunkSize)
	assert.Equal(t, 3, decoded.Sources().ChunkCount())
}

func TestFromBytesAcceptsSingleEnvelope(t *testing.T) {
	tx := frozenTransfer(t, node3).Sign(seededKey(t, 1))
	env := sourcesOf(t, tx).Transactions()[0]

	decoded, err := FromBytes(env.Marshal())
	require.NoError(t, err)
	assert.Equal(t, []model.AccountID{node3}, decoded.NodeAccountIDs())
	assert.True(t, decoded.IsFrozen())
}

func TestFromBytesAcceptsDeprecatedEnvelope(t *testing.T) {
	tx := frozenTransfer(t, node3).Sign(seededKey(t, 1))
	st, _ := decodeBody(t, sourcesOf(t, tx).Transactions()[0])
	legacy := wire.Transaction{BodyBytes: st.BodyBytes, SigMap: st.SigMap}
	list := wire.TransactionList{Transactions: []wire.Transaction{legacy}}

	decoded, err := FromBytes(list.Marshal())
	require.NoError(t, err)
	assert.Equal(t, tx.Payload(), decoded.Payload())
	assert.Len(t, decoded.Sources().Signers(), 1)
}

func TestFromBytesRejectsDivergentBodies(t *testing.T) {
	id := testTxID()
	a := testTransfer().SetTransactionID(id).SetNodeAccountIDs([]model.AccountID{node3}).SetMemo("a")
	require.NoError(t, a.Freeze())
	b := testTransfer().SetTransactionID(id).SetNodeAccountIDs([]model.AccountID{node4}).SetMemo("b")
	require.NoError(t, b.Freeze())

	list := wire.TransactionList{Transactions: append(sourcesOf(t, a).Transactions(), sourcesOf(t, b).Transactions()...)}
	_, err := FromBytes(list.Marshal())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindDecode))
}

func TestFromBytesRejectsGarbage(t *testing.T) {
	_, err := FromBytes([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
	_, err = FromBytes(nil)
	assert.Error(t, err)
}

func TestUnfrozenToBytes(t *testing.T) {
	b, err := testTransfer().SetMemo("draft").ToBytes()
	require.NoError(t, err)

	decoded, err := FromBytes(b)
	require.NoError(t, err)
	assert.False(t, decoded.IsFrozen())
	assert.Nil(t, decoded.TransactionID())
	assert.Empty(t, decoded.NodeAccountIDs())
	assert.Equal(t, "draft", decoded.Memo())

	decoded.SetMemo("edited")
	assert.Nil(t, decoded.Sources(), "editing drops the decoded envelopes")
	require.NoError(t, decoded.FreezeWith(newFakeClient(t)))

	_, err = NewTopicMessageSubmit(topicID, make([]byte, 3000)).ToBytes()
	assert.True(t, model.IsKind(err, model.KindConfig), "chunks need an id to link them")
}

func TestScheduleWrapsBody(t *testing.T) {
	id := testTxID()
	tx := testTransfer().SetTransactionID(id).SetMemo("later").SetMaxTransactionFee(model.NewHbar(4))
	scheduled, err := tx.Schedule()
	require.NoError(t, err)

	sc, ok := scheduled.Payload().(ScheduleCreate)
	require.True(t, ok)
	assert.Equal(t, wire.SchedulableCryptoTransfer, sc.ScheduledData().Field)
	assert.True(t, scheduled.TransactionID().Equal(id))
	assert.False(t, tx.IsFrozen())

	scheduled.SetNodeAccountIDs([]model.AccountID{node3})
	require.NoError(t, scheduled.Freeze())
	_, body := decodeBody(t, sourcesOf(t, scheduled).Transactions()[0])
	require.Equal(t, wire.DataScheduleCreate, body.Data.Field)
	var create wire.ScheduleCreateTransactionBody
	require.NoError(t, create.Unmarshal(body.Data.Bytes))
	require.NotNil(t, create.ScheduledTransactionBody)
	assert.Equal(t, "later", create.ScheduledTransactionBody.Memo)
	assert.Equal(t, uint64(model.NewHbar(4).Tinybars()), create.ScheduledTransactionBody.TransactionFee)

	_, err = NewPrng(10).Schedule()
	assert.NoError(t, err)
}

func TestScheduleRejections(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = testTransfer().SetNodeAccountIDs([]model.AccountID{node3}).Schedule()
	})

	create, err := testTransfer().Schedule()
	require.NoError(t, err)
	_, err = create.Schedule()
	assert.True(t, model.IsKind(err, model.KindConfig), "a schedule create cannot be scheduled")

	_, err = NewTopicMessageSubmit(topicID, make([]byte, 3000)).Schedule()
	assert.True(t, model.IsKind(err, model.KindConfig))
}

func TestTransactionHash(t *testing.T) {
	assert.Panics(t, func() { _, _ = testTransfer().TransactionHash() })

	tx := frozenTransfer(t, node3, node4).Sign(seededKey(t, 1))
	hash, err := tx.TransactionHash()
	require.NoError(t, err)

	b, err := tx.ToBytes()
	require.NoError(t, err)
	var list wire.TransactionList
	require.NoError(t, list.Unmarshal(b))
	assert.Equal(t, cidutil.TransactionHash(list.Transactions[0].SignedTransactionBytes), hash)

	perNode, err := tx.TransactionHashPerNode()
	require.NoError(t, err)
	require.Len(t, perNode, 2)
	assert.Equal(t, hash, perNode[node3])
	assert.Equal(t, cidutil.TransactionHash(list.Transactions[1].SignedTransactionBytes), perNode[node4])

	again, err := tx.TransactionHash()
	require.NoError(t, err)
	assert.Equal(t, hash, again, "hashing is stable once cached")
}

func TestAddSignature(t *testing.T) {
	signer := seededKey(t, 2)
	tx := frozenTransfer(t, node3).Sign(seededKey(t, 1))

	// An offline signer works from the serialized bytes.
	b, err := tx.ToBytes()
	require.NoError(t, err)
	offline, err := FromBytes(b)
	require.NoError(t, err)
	st, _ := decodeBody(t, offline.Sources().Transactions()[0])
	sig := signer.Sign(st.BodyBytes)

	require.NoError(t, tx.AddSignature(signer.PublicKey(), sig))
	require.NoError(t, tx.AddSignature(signer.PublicKey(), sig), "repeating a signature is a no-op")

	out, err := tx.ToBytes()
	require.NoError(t, err)
	decoded, err := FromBytes(out)
	require.NoError(t, err)
	st2, _ := decodeBody(t, decoded.Sources().Transactions()[0])
	require.Len(t, st2.SigMap.SigPairs, 2)
	for _, pair := range st2.SigMap.SigPairs {
		pub, err := keys.NewPublicKey(keys.KindEd25519, pair.PubKeyPrefix)
		require.NoError(t, err)
		assert.True(t, pub.Verify(st2.BodyBytes, pair.Signature))
	}
}

func TestAddSignatureRequiresOneBody(t *testing.T) {
	key := seededKey(t, 2)
	assert.Panics(t, func() { _ = testTransfer().AddSignature(key.PublicKey(), []byte{1}) }, "not frozen")
	assert.Panics(t, func() { _ = frozenTransfer(t, node3, node4).AddSignature(key.PublicKey(), []byte{1}) }, "two nodes")

	chunked := NewTopicMessageSubmit(topicID, make([]byte, 3000)).
		SetTransactionID(testTxID()).
		SetNodeAccountIDs([]model.AccountID{node3})
	require.NoError(t, chunked.Freeze())
	assert.Panics(t, func() { _ = chunked.AddSignature(key.PublicKey(), []byte{1}) }, "three chunks")
}

func TestConcurrentSigningKeepsEverySignature(t *testing.T) {
	tx := frozenTransfer(t, node3, node4).Sign(seededKey(t, 1))
	_, err := tx.TransactionHash()
	require.NoError(t, err)

	const signers = 8
	var wg sync.WaitGroup
	for i := 0; i < signers; i++ {
		wg.Add(1)
		go func(seed byte) {
			defer wg.Done()
			tx.Sign(seededKey(t, seed))
			_, err := tx.ToBytes()
			assert.NoError(t, err)
		}(byte(10 + i))
	}
	wg.Wait()

	b, err := tx.ToBytes()
	require.NoError(t, err)
	decoded, err := FromBytes(b)
	require.NoError(t, err)
	assert.Len(t, decoded.Sources().Signers(), signers+1)
}

func TestSequentialSigningInEitherOrder(t *testing.T) {
	a := seededKey(t, 1)
	b, err := keys.GenerateECDSA()
	require.NoError(t, err)

	orders := map[string][]keys.PrivateKey{"a then b": {a, b}, "b then a": {b, a}}
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			tx := NewTopicMessageSubmit(topicID, make([]byte, 2500)).
				SetTransactionID(testTxID()).
				SetNodeAccountIDs([]model.AccountID{node3, node4})
			require.NoError(t, tx.Freeze())

			for _, key := range order {
				tx.Sign(key)
				_, err := tx.ToBytes()
				require.NoError(t, err)
			}

			chunk := sourcesOf(t, tx).Chunks()[0]
			require.Len(t, chunk.Transactions, 2)
			for _, env := range chunk.Transactions {
				st, _ := decodeBody(t, env)
				require.Len(t, st.SigMap.SigPairs, 2)
				for _, key := range []keys.PrivateKey{a, b} {
					want := key.PublicKey().Bytes()
					n := 0
					for _, pair := range st.SigMap.SigPairs {
						if bytes.Equal(pair.PubKeyPrefix, want) {
							n++
							assert.True(t, key.PublicKey().Verify(st.BodyBytes, pair.Signature))
						}
					}
					assert.Equal(t, 1, n, "%s signed once", key.Kind())
				}
			}
		})
	}
}
