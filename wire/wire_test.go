package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"xdao.co/ledgertx/model"
)

func TestTransactionBodyKeepsDataAndFeeLimits(t *testing.T) {
	txID := model.TransactionID{
		AccountID:  model.NewAccountID(0, 0, 1001),
		ValidStart: time.Unix(1700000000, 123).UTC(),
	}
	msg := ConsensusSubmitMessageTransactionBody{
		TopicID: &EntityID{Num: 42},
		Message: []byte("hello"),
		ChunkInfo: &ConsensusMessageChunkInfo{
			InitialTransactionID: FromTransactionID(txID),
			Total:                2,
			Number:               1,
		},
	}
	body := TransactionBody{
		TransactionID:  FromTransactionID(txID),
		NodeAccountID:  &AccountID{Num: 3},
		TransactionFee: 200_000_000,
		ValidDuration:  FromDuration(120 * time.Second),
		Memo:           "memo",
		Data:           Data{Field: DataConsensusSubmitMessage, Bytes: msg.Marshal()},
		MaxCustomFees: []CustomFeeLimit{{
			AccountID: &AccountID{Num: 9},
			Fees:      []FixedFee{{Amount: 5}},
		}},
	}

	var got TransactionBody
	require.NoError(t, got.Unmarshal(body.Marshal()))

	assert.True(t, got.TransactionID.Model().Equal(txID))
	assert.Equal(t, int64(3), got.NodeAccountID.Num)
	assert.Equal(t, uint64(200_000_000), got.TransactionFee)
	assert.Equal(t, 120*time.Second, got.ValidDuration.Duration())
	assert.Equal(t, "memo", got.Memo)
	assert.True(t, got.Data.Equal(body.Data))
	require.Len(t, got.MaxCustomFees, 1)
	assert.Equal(t, int64(5), got.MaxCustomFees[0].Fees[0].Amount)

	var gotMsg ConsensusSubmitMessageTransactionBody
	require.NoError(t, gotMsg.Unmarshal(got.Data.Bytes))
	assert.Equal(t, []byte("hello"), gotMsg.Message)
	assert.Equal(t, int32(2), gotMsg.ChunkInfo.Total)
}

func TestUnknownFieldsAreSkipped(t *testing.T) {
	b := (&TransactionResponse{NodeTransactionPrecheckCode: 9, Cost: 500}).Marshal()
	b = protowire.AppendTag(b, 77, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 1)
	b = protowire.AppendTag(b, 78, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("ignored"))

	var resp TransactionResponse
	require.NoError(t, resp.Unmarshal(b))
	assert.Equal(t, int32(9), resp.NodeTransactionPrecheckCode)
	assert.Equal(t, uint64(500), resp.Cost)
}

func TestTruncatedInputIsDecodeError(t *testing.T) {
	b := (&TransactionList{Transactions: []Transaction{{SignedTransactionBytes: []byte("abc")}}}).Marshal()

	var list TransactionList
	err := list.Unmarshal(b[:len(b)-1])
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindDecode))
}

func TestWrongWireTypeIsDecodeError(t *testing.T) {
	b := protowire.AppendTag(nil, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	var st SignedTransaction
	err := st.Unmarshal(b)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindDecode))
}

func TestSignedLiftsDeprecatedEnvelope(t *testing.T) {
	sigMap := &SignatureMap{SigPairs: []SignaturePair{{
		PubKeyPrefix: []byte{1, 2, 3},
		Kind:         SignatureEd25519,
		Signature:    []byte("sig"),
	}}}

	direct := Transaction{BodyBytes: []byte("body"), SigMap: sigMap}
	st, err := direct.Signed()
	require.NoError(t, err)
	assert.Equal(t, []byte("body"), st.BodyBytes)
	assert.True(t, st.SigMap.HasPrefixFor([]byte{1, 2, 3, 4}))

	nested := Transaction{SignedTransactionBytes: (&SignedTransaction{BodyBytes: []byte("body"), SigMap: sigMap}).Marshal()}
	var decoded Transaction
	require.NoError(t, decoded.Unmarshal(nested.Marshal()))
	st, err = decoded.Signed()
	require.NoError(t, err)
	assert.Equal(t, []byte("body"), st.BodyBytes)
	require.Len(t, st.SigMap.SigPairs, 1)
	assert.Equal(t, SignatureEd25519, st.SigMap.SigPairs[0].Kind)
}

func TestReceiptResponse(t *testing.T) {
	resp := Response{
		PrecheckCode: int32(model.StatusOK),
		Receipt:      &TransactionReceipt{Status: int32(model.StatusSuccess), TopicSequenceNumber: 4},
	}
	var got Response
	require.NoError(t, got.Unmarshal(resp.Marshal()))
	require.NotNil(t, got.Receipt)
	assert.Equal(t, int32(model.StatusSuccess), got.Receipt.Status)
	assert.Equal(t, uint64(4), got.Receipt.TopicSequenceNumber)

	txID := FromTransactionID(model.GenerateTransactionID(model.NewAccountID(0, 0, 2)))
	var q Query
	require.NoError(t, q.Unmarshal((&Query{TransactionID: txID}).Marshal()))
	require.NotNil(t, q.TransactionID)
	assert.True(t, q.TransactionID.Model().Equal(txID.Model()))
}

func TestNegativeTransferAmount(t *testing.T) {
	body := CryptoTransferTransactionBody{AccountAmounts: []AccountAmount{
		{AccountID: &AccountID{Num: 2}, Amount: -10},
		{AccountID: &AccountID{Num: 3}, Amount: 10},
	}}
	var got CryptoTransferTransactionBody
	require.NoError(t, got.Unmarshal(body.Marshal()))
	require.Len(t, got.AccountAmounts, 2)
	assert.Equal(t, int64(-10), got.AccountAmounts[0].Amount)
}
