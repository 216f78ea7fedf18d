package transaction

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"xdao.co/ledgertx/cidutil"
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/wire"
)

// Sources is an immutable snapshot of a transaction's signed envelopes,
// grouped into chunks. Every envelope carries signatures from the same set
// of keys. SignWith never modifies a snapshot; it returns a new one.
type Sources struct {
	signed []wire.SignedTransaction
	// original is the envelope each entry was decoded from, reused verbatim
	// until a signature is added. Nil for derived snapshots.
	original []wire.Transaction
	bodies   []wire.TransactionBody
	chunks   []chunkSpan
	nodeIDs  []model.AccountID

	txOnce       sync.Once
	transactions []wire.Transaction
	hashOnce     sync.Once
	hashes       []model.TransactionHash
}

type chunkSpan struct {
	start, end    int
	transactionID *model.TransactionID
}

// SourceChunk is one chunk's view of a Sources snapshot. Transactions and
// Hashes are parallel to NodeAccountIDs.
type SourceChunk struct {
	TransactionID  *model.TransactionID
	NodeAccountIDs []model.AccountID
	Transactions   []wire.Transaction
	Hashes         []model.TransactionHash
}

// NewSources validates envelopes and groups consecutive envelopes with the
// same transaction id into chunks. All envelopes must be signed by the same
// set of keys, and every chunk must target the same nodes in the same
// order.
func NewSources(envelopes []wire.Transaction) (*Sources, error) {
	if len(envelopes) == 0 {
		return nil, model.ErrEmptyTransactionList
	}
	s := &Sources{
		signed:   make([]wire.SignedTransaction, len(envelopes)),
		original: slices.Clone(envelopes),
		bodies:   make([]wire.TransactionBody, len(envelopes)),
	}

	var firstSigners [][]byte
	for i := range envelopes {
		st, err := envelopes[i].Signed()
		if err != nil {
			return nil, model.WrapError(model.KindDecode, fmt.Sprintf("transaction %d", i), err)
		}
		if err := s.bodies[i].Unmarshal(st.BodyBytes); err != nil {
			return nil, model.WrapError(model.KindDecode, fmt.Sprintf("transaction %d body", i), err)
		}
		s.signed[i] = st

		signers := sortedPrefixes(st.SigMap)
		if i == 0 {
			firstSigners = signers
		} else if !slices.EqualFunc(firstSigners, signers, bytes.Equal) {
			return nil, model.ErrSignerSetMismatch
		}
	}

	for i := range s.bodies {
		id := bodyTransactionID(&s.bodies[i])
		if n := len(s.chunks); n > 0 && model.EqualPtr(s.chunks[n-1].transactionID, id) {
			s.chunks[n-1].end = i + 1
			continue
		}
		s.chunks = append(s.chunks, chunkSpan{start: i, end: i + 1, transactionID: id})
	}

	nodes, err := s.chunkNodes(0)
	if err != nil {
		return nil, err
	}
	for c := 1; c < len(s.chunks); c++ {
		other, err := s.chunkNodes(c)
		if err != nil {
			return nil, err
		}
		if !slices.EqualFunc(nodes, other, model.AccountID.Equal) {
			return nil, model.NewError(model.KindDecode, fmt.Sprintf("chunk %d targets different nodes than chunk 0", c))
		}
	}
	s.nodeIDs = nodes
	return s, nil
}

// chunkNodes lists the node of every envelope in chunk c, or nil when the
// envelopes are not bound to nodes.
func (s *Sources) chunkNodes(c int) ([]model.AccountID, error) {
	span := s.chunks[c]
	var nodes []model.AccountID
	for i := span.start; i < span.end; i++ {
		n := s.bodies[i].NodeAccountID
		if (n == nil) != (s.bodies[span.start].NodeAccountID == nil) {
			return nil, model.NewError(model.KindDecode, "some envelopes name a node and others do not")
		}
		if n == nil {
			continue
		}
		id := n.Model()
		if slices.ContainsFunc(nodes, id.Equal) {
			return nil, model.NewError(model.KindDecode, fmt.Sprintf("node %s appears twice in one chunk", id))
		}
		nodes = append(nodes, id)
	}
	return nodes, nil
}

func bodyTransactionID(b *wire.TransactionBody) *model.TransactionID {
	if b.TransactionID == nil {
		return nil
	}
	id := b.TransactionID.Model()
	return &id
}

func sortedPrefixes(m *wire.SignatureMap) [][]byte {
	if m == nil {
		return nil
	}
	out := m.Prefixes()
	slices.SortFunc(out, bytes.Compare)
	return out
}

// SignWith returns a snapshot additionally signed by each signer whose key
// is not already present, in order. When every signer is already present
// it returns s itself.
func (s *Sources) SignWith(signers []keys.Signer) *Sources {
	s.assertSignerSet()
	var signed []wire.SignedTransaction
	current := s.signed
	for _, signer := range signers {
		if hasSigner(current[0].SigMap, signer.PublicKey()) {
			continue
		}
		if signed == nil {
			signed = cloneSigned(s.signed)
			current = signed
		}
		for i := range signed {
			pair := keys.SignWith(signer, signed[i].BodyBytes).Wire()
			signed[i].SigMap.SigPairs = append(signed[i].SigMap.SigPairs, pair)
		}
	}
	if signed == nil {
		return s
	}
	return &Sources{
		signed:  signed,
		bodies:  s.bodies,
		chunks:  s.chunks,
		nodeIDs: s.nodeIDs,
	}
}

func (s *Sources) assertSignerSet() {
	first := sortedPrefixes(s.signed[0].SigMap)
	for i := 1; i < len(s.signed); i++ {
		if !slices.EqualFunc(first, sortedPrefixes(s.signed[i].SigMap), bytes.Equal) {
			panic(fmt.Sprintf("transaction: envelope %d is signed by a different key set than envelope 0", i))
		}
	}
}

func hasSigner(m *wire.SignatureMap, pub keys.PublicKey) bool {
	return m != nil && m.HasPrefixFor(pub.Bytes())
}

func cloneSigned(in []wire.SignedTransaction) []wire.SignedTransaction {
	out := make([]wire.SignedTransaction, len(in))
	for i, st := range in {
		m := &wire.SignatureMap{}
		if st.SigMap != nil {
			m.SigPairs = slices.Clone(st.SigMap.SigPairs)
		}
		out[i] = wire.SignedTransaction{BodyBytes: st.BodyBytes, SigMap: m}
	}
	return out
}

// Transactions returns every envelope, chunk by chunk.
func (s *Sources) Transactions() []wire.Transaction {
	s.txOnce.Do(func() {
		s.transactions = make([]wire.Transaction, len(s.signed))
		for i := range s.signed {
			if s.original != nil && len(s.original[i].SignedTransactionBytes) > 0 {
				s.transactions[i] = s.original[i]
				continue
			}
			s.transactions[i] = wire.Transaction{SignedTransactionBytes: s.signed[i].Marshal()}
		}
	})
	return s.transactions
}

// Hashes returns the SHA-384 hash of each envelope's signed bytes.
func (s *Sources) Hashes() []model.TransactionHash {
	s.hashOnce.Do(func() {
		txs := s.Transactions()
		s.hashes = make([]model.TransactionHash, len(txs))
		for i := range txs {
			signedBytes := txs[i].SignedTransactionBytes
			if len(signedBytes) == 0 {
				signedBytes = s.signed[i].Marshal()
			}
			s.hashes[i] = cidutil.TransactionHash(signedBytes)
		}
	})
	return s.hashes
}

// NodeAccountIDs returns the nodes every chunk targets, or nil when the
// envelopes are not bound to nodes.
func (s *Sources) NodeAccountIDs() []model.AccountID { return slices.Clone(s.nodeIDs) }

// TransactionID returns the first chunk's transaction id, or nil.
func (s *Sources) TransactionID() *model.TransactionID { return s.chunks[0].transactionID }

func (s *Sources) Len() int { return len(s.signed) }

func (s *Sources) ChunkCount() int { return len(s.chunks) }

// Chunks returns one view per chunk, in order.
func (s *Sources) Chunks() []SourceChunk {
	txs := s.Transactions()
	hashes := s.Hashes()
	out := make([]SourceChunk, len(s.chunks))
	for c, span := range s.chunks {
		out[c] = SourceChunk{
			TransactionID:  span.transactionID,
			NodeAccountIDs: s.NodeAccountIDs(),
			Transactions:   txs[span.start:span.end:span.end],
			Hashes:         hashes[span.start:span.end:span.end],
		}
	}
	return out
}

// Signers returns the public key prefixes present on every envelope.
func (s *Sources) Signers() [][]byte { return sortedPrefixes(s.signed[0].SigMap) }
