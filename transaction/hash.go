package transaction

import (
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
)

// TransactionHash returns the hash of the envelope for the first node. It
// panics unless the transaction is frozen. Hashing caches the signed
// envelopes, so the transaction id is no longer regenerated on expiry.
func (tx *Transaction) TransactionHash() (model.TransactionHash, error) {
	tx.mustBeFrozen()
	src, err := tx.makeSources()
	if err != nil {
		return model.TransactionHash{}, err
	}
	return src.Hashes()[0], nil
}

// TransactionHashPerNode returns the first chunk's envelope hash for every
// node. It panics unless the transaction is frozen.
func (tx *Transaction) TransactionHashPerNode() (map[model.AccountID]model.TransactionHash, error) {
	tx.mustBeFrozen()
	src, err := tx.makeSources()
	if err != nil {
		return nil, err
	}
	chunk := src.Chunks()[0]
	out := make(map[model.AccountID]model.TransactionHash, len(chunk.NodeAccountIDs))
	for i, node := range chunk.NodeAccountIDs {
		out[node.WithoutChecksum()] = chunk.Hashes[i]
	}
	return out, nil
}

// AddSignature attaches a signature produced elsewhere, for example by an
// offline signer that received the bytes from ToBytes. The transaction must
// be frozen, target exactly one node and fit in one chunk, so that there is
// exactly one body to sign; anything else panics. A signature for a key
// that has already signed is ignored.
func (tx *Transaction) AddSignature(pub keys.PublicKey, signature []byte) error {
	tx.mustBeFrozen()
	tx.mu.Lock()
	nodes := len(tx.nodeAccountIDs)
	chunks := usedChunks(tx.payload)
	if tx.sources != nil {
		nodes, chunks = len(tx.sources.nodeIDs), tx.sources.ChunkCount()
	}
	tx.mu.Unlock()
	if nodes != 1 {
		panic("transaction: AddSignature needs exactly one node account id")
	}
	if chunks > 1 {
		panic("transaction: AddSignature cannot sign a transaction with more than one chunk")
	}

	fixed := keys.SignerFunc(pub, func([]byte) []byte { return signature })
	for {
		current, err := tx.makeSources()
		if err != nil {
			return err
		}
		next := current.SignWith([]keys.Signer{fixed})
		if next == current {
			return nil
		}
		tx.mu.Lock()
		if tx.sources == current {
			tx.sources = next
			tx.mu.Unlock()
			return nil
		}
		tx.mu.Unlock()
	}
}
