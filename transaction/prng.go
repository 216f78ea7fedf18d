package transaction

import (
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/nodegrpc"
	"xdao.co/ledgertx/wire"
)

// Prng asks the network for a pseudorandom number. A zero Range yields 384
// random bits; otherwise the result lies in [0, Range).
type Prng struct {
	Range int32
}

func NewPrng(rangeN int32) *Transaction { return New(Prng{Range: rangeN}) }

func (Prng) Kind() string { return "Prng" }

func (Prng) DefaultMaxTransactionFee() model.Hbar { return model.NewHbar(2) }

func (Prng) rpcMethod() string { return nodegrpc.MethodUtilPrng }

func (p Prng) clonePayload() Payload { return p }

func (Prng) validateChecksums(model.LedgerID) error { return nil }

func (p Prng) encode() []byte {
	return (&wire.UtilPrngTransactionBody{Range: p.Range}).Marshal()
}

func (p Prng) bodyData(ChunkInfo) (wire.Data, error) {
	return wire.Data{Field: wire.DataUtilPrng, Bytes: p.encode()}, nil
}

func (p Prng) schedulableData() (wire.Data, error) {
	return wire.Data{Field: wire.SchedulableUtilPrng, Bytes: p.encode()}, nil
}

func prngFromData(b []byte) (Payload, error) {
	var body wire.UtilPrngTransactionBody
	if err := body.Unmarshal(b); err != nil {
		return nil, model.WrapError(model.KindDecode, "prng body", err)
	}
	return Prng{Range: body.Range}, nil
}
