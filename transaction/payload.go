package transaction

import (
	"fmt"

	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/wire"
)

// Payload is the kind-specific part of a transaction. The set of kinds is
// closed: Transfer, TopicMessageSubmit, FileAppend, ScheduleCreate and Prng.
type Payload interface {
	// Kind names the transaction kind.
	Kind() string
	DefaultMaxTransactionFee() model.Hbar

	bodyData(chunk ChunkInfo) (wire.Data, error)
	validateChecksums(ledger model.LedgerID) error
	rpcMethod() string
	clonePayload() Payload
}

// schedulablePayload is implemented by kinds that can be wrapped in a
// ScheduleCreate.
type schedulablePayload interface {
	schedulableData() (wire.Data, error)
}

// chunkedPayload is implemented by kinds whose content may span several
// transactions.
type chunkedPayload interface {
	chunkData() *ChunkData
	// withContent returns a copy carrying the reassembled content and the
	// chunk layout it arrived in.
	withContent(content []byte, chunkSize, chunks int) Payload
	// normalizeData clears the per-chunk parts of data so chunks of one
	// submission compare equal.
	normalizeData(data wire.Data) (wire.Data, error)
}

func chunkDataOf(p Payload) *ChunkData {
	if c, ok := p.(chunkedPayload); ok {
		return c.chunkData()
	}
	return nil
}

func usedChunks(p Payload) int {
	if c := chunkDataOf(p); c != nil {
		return c.UsedChunks()
	}
	return 1
}

// payloadFromData restores a payload from the data arm of each chunk's
// body, in chunk order.
func payloadFromData(chunks []wire.Data) (Payload, error) {
	if len(chunks) == 0 {
		return nil, model.ErrEmptyTransactionList
	}
	first := chunks[0]
	for _, d := range chunks[1:] {
		if d.Field != first.Field {
			return nil, model.NewError(model.KindDecode, "chunks carry different transaction kinds")
		}
	}

	var p Payload
	var err error
	switch first.Field {
	case wire.DataCryptoTransfer:
		p, err = transferFromData(first.Bytes)
	case wire.DataConsensusSubmitMessage:
		p, err = topicMessageFromData(chunks)
	case wire.DataFileAppend:
		p, err = fileAppendFromData(chunks)
	case wire.DataScheduleCreate:
		p, err = scheduleCreateFromData(first.Bytes)
	case wire.DataUtilPrng:
		p, err = prngFromData(first.Bytes)
	case 0:
		return nil, model.NewError(model.KindDecode, "transaction body has no data")
	default:
		return nil, model.NewError(model.KindDecode, fmt.Sprintf("unsupported transaction kind (body field %d)", first.Field))
	}
	if err != nil {
		return nil, err
	}
	if len(chunks) > 1 {
		if _, ok := p.(chunkedPayload); !ok {
			return nil, model.NewError(model.KindDecode, fmt.Sprintf("%s transaction cannot span %d chunks", p.Kind(), len(chunks)))
		}
	}
	return p, nil
}

// reassemble concatenates chunk contents and reports the chunk size the
// first chunk used.
func reassemble(parts [][]byte) (content []byte, chunkSize int) {
	for _, part := range parts {
		content = append(content, part...)
	}
	if len(parts) > 0 {
		chunkSize = len(parts[0])
	}
	return content, chunkSize
}
