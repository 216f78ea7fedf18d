package transaction

import (
	"fmt"

	"xdao.co/ledgertx/model"
)

// ChunkData is a payload too large for one transaction, split into
// equal-size slices submitted in order.
type ChunkData struct {
	Data      []byte
	ChunkSize int
	MaxChunks int
	// WaitForReceipt makes execution await each chunk's receipt before
	// sending the next.
	WaitForReceipt bool
}

// NewChunkData validates the plan: the chunk size must be positive and the
// data must fit in maxChunks chunks.
func NewChunkData(data []byte, chunkSize, maxChunks int, waitForReceipt bool) (*ChunkData, error) {
	c := &ChunkData{Data: data, ChunkSize: chunkSize, MaxChunks: maxChunks, WaitForReceipt: waitForReceipt}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ChunkData) validate() error {
	if c.ChunkSize <= 0 {
		return model.ErrZeroChunkSize
	}
	if used := c.UsedChunks(); used > c.MaxChunks {
		return model.NewError(model.KindConfig, fmt.Sprintf(
			"message of %d bytes needs %d chunks of %d bytes, more than the maximum of %d",
			len(c.Data), used, c.ChunkSize, c.MaxChunks))
	}
	return nil
}

// UsedChunks is ceil(len(Data)/ChunkSize). An empty payload still occupies
// one empty chunk.
func (c *ChunkData) UsedChunks() int {
	if len(c.Data) == 0 || c.ChunkSize <= 0 {
		return 1
	}
	return (len(c.Data) + c.ChunkSize - 1) / c.ChunkSize
}

// MaxMessageLen is the largest payload the plan accepts.
func (c *ChunkData) MaxMessageLen() int { return c.ChunkSize * c.MaxChunks }

// Chunk returns the i-th slice of Data.
func (c *ChunkData) Chunk(i int) []byte {
	start := i * c.ChunkSize
	if start >= len(c.Data) {
		return nil
	}
	end := start + c.ChunkSize
	if end > len(c.Data) {
		end = len(c.Data)
	}
	return c.Data[start:end]
}

// ChunkInfo locates one request within a (possibly single-chunk) submission.
type ChunkInfo struct {
	Current              int
	Total                int
	InitialTransactionID model.TransactionID
	CurrentTransactionID model.TransactionID
	// NodeAccountID is nil for envelopes not bound to a node.
	NodeAccountID *model.AccountID
}
