package transaction

import (
	"bytes"
	"fmt"

	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/wire"
)

// ToBytes serializes the transaction as a TransactionList holding one
// envelope per chunk and node, chunk by chunk. A frozen transaction's
// envelopes carry the operator's and every signer's signature. An unfrozen
// transaction may be serialized too; envelopes then lack whatever has not
// been set yet.
func (tx *Transaction) ToBytes() ([]byte, error) {
	if src := tx.signedSources(); src != nil {
		return (&wire.TransactionList{Transactions: src.Transactions()}).Marshal(), nil
	}
	envelopes, err := tx.snapshot().envelopes()
	if err != nil {
		return nil, err
	}
	return (&wire.TransactionList{Transactions: envelopes}).Marshal(), nil
}

// FromBytes decodes a TransactionList, or a single Transaction envelope,
// back into a Transaction. The envelopes are kept as they are so they can
// be co-signed and submitted without re-encoding; the transaction is frozen
// when they name both a transaction id and nodes.
func FromBytes(b []byte) (*Transaction, error) {
	var list wire.TransactionList
	if err := list.Unmarshal(b); err != nil {
		return nil, model.WrapError(model.KindDecode, "transaction list", err)
	}
	envelopes := list.Transactions
	if len(envelopes) == 0 {
		var single wire.Transaction
		if err := single.Unmarshal(b); err != nil {
			return nil, model.WrapError(model.KindDecode, "transaction", err)
		}
		envelopes = []wire.Transaction{single}
	}

	src, err := NewSources(envelopes)
	if err != nil {
		return nil, err
	}

	chunkData := make([]wire.Data, 0, len(src.chunks))
	for _, span := range src.chunks {
		chunkData = append(chunkData, src.bodies[span.start].Data)
	}
	payload, err := payloadFromData(chunkData)
	if err != nil {
		return nil, err
	}
	if err := checkBodiesAgree(src, payload); err != nil {
		return nil, err
	}

	first := src.bodies[0]
	tx := &Transaction{
		payload:         payload,
		memo:            first.Memo,
		customFeeLimits: wire.ToCustomFeeLimits(first.MaxCustomFees),
		transactionID:   src.TransactionID(),
		sources:         src,
	}
	fee := model.HbarFromTinybars(int64(first.TransactionFee))
	tx.maxTransactionFee = &fee
	if first.ValidDuration != nil {
		d := first.ValidDuration.Duration()
		tx.validDuration = &d
	}
	if nodes := src.NodeAccountIDs(); len(nodes) > 0 {
		tx.nodeAccountIDs = nodes
	}
	tx.frozen = tx.transactionID != nil && len(tx.nodeAccountIDs) > 0
	return tx, nil
}

// checkBodiesAgree requires every envelope's body to equal the first one's
// apart from the transaction id, the node and, for chunked kinds, the
// chunk's share of the content.
func checkBodiesAgree(src *Sources, p Payload) error {
	normalize := func(b wire.TransactionBody) ([]byte, error) {
		b.TransactionID = nil
		b.NodeAccountID = nil
		if cp, ok := p.(chunkedPayload); ok {
			data, err := cp.normalizeData(b.Data)
			if err != nil {
				return nil, err
			}
			b.Data = data
		}
		return b.Marshal(), nil
	}

	want, err := normalize(src.bodies[0])
	if err != nil {
		return err
	}
	for i := 1; i < len(src.bodies); i++ {
		got, err := normalize(src.bodies[i])
		if err != nil {
			return err
		}
		if !bytes.Equal(want, got) {
			return model.NewError(model.KindDecode, fmt.Sprintf("transaction %d differs from transaction 0 in more than id, node or chunk content", i))
		}
	}

	// Envelopes for different nodes of one chunk must carry the same content.
	for c, span := range src.chunks {
		for i := span.start + 1; i < span.end; i++ {
			if !src.bodies[i].Data.Equal(src.bodies[span.start].Data) {
				return model.NewError(model.KindDecode, fmt.Sprintf("chunk %d carries different content for different nodes", c))
			}
		}
	}
	return nil
}

// Sources returns the cached envelopes signed by every current signer, or
// nil when the transaction has not been hashed, decoded or signed through
// AddSignature.
func (tx *Transaction) Sources() *Sources { return tx.signedSources() }
