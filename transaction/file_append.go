package transaction

import (
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/nodegrpc"
	"xdao.co/ledgertx/wire"
)

const (
	DefaultFileAppendChunkSize = 4096
	DefaultFileAppendMaxChunks = 20
)

// FileAppend appends Contents to a file. Chunks are submitted one at a
// time, each after the previous chunk's receipt.
type FileAppend struct {
	FileID    model.EntityID
	Contents  []byte
	ChunkSize int
	MaxChunks int
}

func NewFileAppend(file model.EntityID, contents []byte) *Transaction {
	return New(FileAppend{
		FileID:    file,
		Contents:  contents,
		ChunkSize: DefaultFileAppendChunkSize,
		MaxChunks: DefaultFileAppendMaxChunks,
	})
}

func (FileAppend) Kind() string { return "FileAppend" }

func (FileAppend) DefaultMaxTransactionFee() model.Hbar { return model.NewHbar(5) }

func (FileAppend) rpcMethod() string { return nodegrpc.MethodFileAppendContent }

func (f FileAppend) clonePayload() Payload {
	f.Contents = append([]byte(nil), f.Contents...)
	return f
}

func (f FileAppend) validateChecksums(ledger model.LedgerID) error {
	return f.FileID.ValidateChecksum(ledger)
}

func (f FileAppend) chunkData() *ChunkData {
	return &ChunkData{Data: f.Contents, ChunkSize: f.ChunkSize, MaxChunks: f.MaxChunks, WaitForReceipt: true}
}

func (f FileAppend) bodyData(chunk ChunkInfo) (wire.Data, error) {
	body := wire.FileAppendTransactionBody{
		FileID:   wire.FromEntityID(f.FileID),
		Contents: f.chunkData().Chunk(chunk.Current),
	}
	return wire.Data{Field: wire.DataFileAppend, Bytes: body.Marshal()}, nil
}

func (f FileAppend) schedulableData() (wire.Data, error) {
	if n := f.chunkData().UsedChunks(); n > 1 {
		return wire.Data{}, model.NewError(model.KindConfig, "cannot schedule a file append that spans more than one chunk")
	}
	body := wire.FileAppendTransactionBody{FileID: wire.FromEntityID(f.FileID), Contents: f.Contents}
	return wire.Data{Field: wire.SchedulableFileAppend, Bytes: body.Marshal()}, nil
}

func (f FileAppend) withContent(content []byte, chunkSize, chunks int) Payload {
	f.Contents = content
	f.ChunkSize, f.MaxChunks = restoredLayout(len(content), chunkSize, chunks, DefaultFileAppendChunkSize, DefaultFileAppendMaxChunks)
	return f
}

func (FileAppend) normalizeData(data wire.Data) (wire.Data, error) {
	var body wire.FileAppendTransactionBody
	if err := body.Unmarshal(data.Bytes); err != nil {
		return data, model.WrapError(model.KindDecode, "file append body", err)
	}
	body.Contents = nil
	return wire.Data{Field: data.Field, Bytes: body.Marshal()}, nil
}

func fileAppendFromData(chunks []wire.Data) (Payload, error) {
	parts := make([][]byte, 0, len(chunks))
	var first wire.FileAppendTransactionBody
	for i, d := range chunks {
		var body wire.FileAppendTransactionBody
		if err := body.Unmarshal(d.Bytes); err != nil {
			return nil, model.WrapError(model.KindDecode, "file append body", err)
		}
		if i == 0 {
			first = body
		}
		parts = append(parts, body.Contents)
	}
	f := FileAppend{}
	if first.FileID != nil {
		f.FileID = first.FileID.Model()
	}
	content, chunkSize := reassemble(parts)
	return f.withContent(content, chunkSize, len(chunks)), nil
}
