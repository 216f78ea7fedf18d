package transaction

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/ledgertx/model"
)

func TestUsedChunks(t *testing.T) {
	cases := []struct {
		name      string
		size      int
		chunkSize int
		want      int
	}{
		{"empty", 0, 10, 1},
		{"one byte", 1, 10, 1},
		{"exact", 30, 10, 3},
		{"remainder", 31, 10, 4},
		{"topic message", 2500, DefaultTopicChunkSize, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := ChunkData{Data: make([]byte, tc.size), ChunkSize: tc.chunkSize, MaxChunks: 20}
			assert.Equal(t, tc.want, c.UsedChunks())
		})
	}
}

func TestChunkSlices(t *testing.T) {
	data := []byte("abcdefghij")
	c, err := NewChunkData(data, 4, 3, false)
	require.NoError(t, err)

	var joined []byte
	for i := 0; i < c.UsedChunks(); i++ {
		joined = append(joined, c.Chunk(i)...)
	}
	assert.Equal(t, data, joined)
	assert.Equal(t, []byte("ij"), c.Chunk(2))
	assert.Nil(t, c.Chunk(3))
	assert.Equal(t, 12, c.MaxMessageLen())
}

func TestNewChunkDataRejectsBadPlans(t *testing.T) {
	_, err := NewChunkData([]byte("x"), 0, 20, false)
	assert.True(t, errors.Is(err, model.ErrZeroChunkSize))

	_, err = NewChunkData(bytes.Repeat([]byte{1}, 11), 5, 2, false)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindConfig))

	c, err := NewChunkData(nil, 5, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 1, c.UsedChunks())
	assert.Empty(t, c.Chunk(0))
}

func TestRestoredLayoutReproducesChunks(t *testing.T) {
	size, max := restoredLayout(2500, 1024, 3, DefaultTopicChunkSize, DefaultTopicMaxChunks)
	assert.Equal(t, 1024, size)
	assert.Equal(t, DefaultTopicMaxChunks, max)

	size, _ = restoredLayout(3000, 0, 1, DefaultTopicChunkSize, DefaultTopicMaxChunks)
	assert.Equal(t, 3000, size, "a single oversized chunk stays one chunk")

	_, max = restoredLayout(30*10, 10, 30, DefaultTopicChunkSize, DefaultTopicMaxChunks)
	assert.Equal(t, 30, max)
}

func TestFreezeRejectsZeroChunkSize(t *testing.T) {
	tx := New(TopicMessageSubmit{TopicID: topicID, Message: []byte("hi"), MaxChunks: 20}).
		SetTransactionID(testTxID()).
		SetNodeAccountIDs([]model.AccountID{node3})

	err := tx.Freeze()
	assert.True(t, errors.Is(err, model.ErrZeroChunkSize))
	assert.False(t, tx.IsFrozen())
}

func TestFreezeRejectsTooManyChunks(t *testing.T) {
	tx := NewTopicMessageSubmit(topicID, make([]byte, 100)).
		SetChunkSize(10).
		SetMaxChunks(5).
		SetTransactionID(testTxID()).
		SetNodeAccountIDs([]model.AccountID{node3})

	err := tx.Freeze()
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindConfig))
	assert.False(t, tx.IsFrozen())
}
