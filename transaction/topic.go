package transaction

import (
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/nodegrpc"
	"xdao.co/ledgertx/wire"
)

const (
	DefaultTopicChunkSize = 1024
	DefaultTopicMaxChunks = 20
)

// TopicMessageSubmit appends Message to a consensus topic. Messages longer
// than ChunkSize are split and submitted as linked chunks without waiting
// for receipts in between.
type TopicMessageSubmit struct {
	TopicID   model.EntityID
	Message   []byte
	ChunkSize int
	MaxChunks int
}

// NewTopicMessageSubmit uses the default chunk size and chunk limit.
func NewTopicMessageSubmit(topic model.EntityID, message []byte) *Transaction {
	return New(TopicMessageSubmit{
		TopicID:   topic,
		Message:   message,
		ChunkSize: DefaultTopicChunkSize,
		MaxChunks: DefaultTopicMaxChunks,
	})
}

func (TopicMessageSubmit) Kind() string { return "TopicMessageSubmit" }

func (TopicMessageSubmit) DefaultMaxTransactionFee() model.Hbar { return model.NewHbar(2) }

func (TopicMessageSubmit) rpcMethod() string { return nodegrpc.MethodConsensusSubmitMessage }

func (m TopicMessageSubmit) clonePayload() Payload {
	m.Message = append([]byte(nil), m.Message...)
	return m
}

func (m TopicMessageSubmit) validateChecksums(ledger model.LedgerID) error {
	return m.TopicID.ValidateChecksum(ledger)
}

func (m TopicMessageSubmit) chunkData() *ChunkData {
	return &ChunkData{Data: m.Message, ChunkSize: m.ChunkSize, MaxChunks: m.MaxChunks}
}

func (m TopicMessageSubmit) encode(chunk ChunkInfo) []byte {
	body := wire.ConsensusSubmitMessageTransactionBody{
		TopicID: wire.FromEntityID(m.TopicID),
		Message: m.chunkData().Chunk(chunk.Current),
	}
	if chunk.Total > 1 {
		body.ChunkInfo = &wire.ConsensusMessageChunkInfo{
			InitialTransactionID: wire.FromTransactionID(chunk.InitialTransactionID),
			Total:                int32(chunk.Total),
			Number:               int32(chunk.Current + 1),
		}
	}
	return body.Marshal()
}

func (m TopicMessageSubmit) bodyData(chunk ChunkInfo) (wire.Data, error) {
	return wire.Data{Field: wire.DataConsensusSubmitMessage, Bytes: m.encode(chunk)}, nil
}

func (m TopicMessageSubmit) schedulableData() (wire.Data, error) {
	if n := m.chunkData().UsedChunks(); n > 1 {
		return wire.Data{}, model.NewError(model.KindConfig, "cannot schedule a topic message that spans more than one chunk")
	}
	body := wire.ConsensusSubmitMessageTransactionBody{TopicID: wire.FromEntityID(m.TopicID), Message: m.Message}
	return wire.Data{Field: wire.SchedulableConsensusSubmitMessage, Bytes: body.Marshal()}, nil
}

func (m TopicMessageSubmit) withContent(content []byte, chunkSize, chunks int) Payload {
	m.Message = content
	m.ChunkSize, m.MaxChunks = restoredLayout(len(content), chunkSize, chunks, DefaultTopicChunkSize, DefaultTopicMaxChunks)
	return m
}

func (TopicMessageSubmit) normalizeData(data wire.Data) (wire.Data, error) {
	var body wire.ConsensusSubmitMessageTransactionBody
	if err := body.Unmarshal(data.Bytes); err != nil {
		return data, model.WrapError(model.KindDecode, "consensus submit message body", err)
	}
	body.Message = nil
	if body.ChunkInfo != nil {
		body.ChunkInfo.Number = 0
	}
	return wire.Data{Field: data.Field, Bytes: body.Marshal()}, nil
}

func topicMessageFromData(chunks []wire.Data) (Payload, error) {
	parts := make([][]byte, 0, len(chunks))
	var first wire.ConsensusSubmitMessageTransactionBody
	for i, d := range chunks {
		var body wire.ConsensusSubmitMessageTransactionBody
		if err := body.Unmarshal(d.Bytes); err != nil {
			return nil, model.WrapError(model.KindDecode, "consensus submit message body", err)
		}
		if i == 0 {
			first = body
		}
		parts = append(parts, body.Message)
	}
	m := TopicMessageSubmit{}
	if first.TopicID != nil {
		m.TopicID = first.TopicID.Model()
	}
	content, chunkSize := reassemble(parts)
	return m.withContent(content, chunkSize, len(chunks)), nil
}

// restoredLayout picks a chunk size and limit that re-split content into
// exactly the chunks it arrived in.
func restoredLayout(contentLen, firstChunkLen, chunks, defaultSize, defaultMax int) (chunkSize, maxChunks int) {
	chunkSize = defaultSize
	switch {
	case chunks > 1 && firstChunkLen > 0:
		chunkSize = firstChunkLen
	case chunks <= 1 && contentLen > chunkSize:
		chunkSize = contentLen
	}
	maxChunks = defaultMax
	if chunks > maxChunks {
		maxChunks = chunks
	}
	return chunkSize, maxChunks
}
