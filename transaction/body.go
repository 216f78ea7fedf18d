package transaction

import (
	"time"

	"xdao.co/ledgertx/cidutil"
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/wire"
)

// snapshot is a consistent copy of a transaction's state, taken under the
// lock so bodies can be encoded and signed without holding it.
type snapshot struct {
	payload         Payload
	nodes           []model.AccountID
	validDuration   time.Duration
	fee             model.Hbar
	memo            string
	transactionID   *model.TransactionID
	regenerate      *bool
	customFeeLimits []model.CustomFeeLimit
	operator        *keys.Operator
	signers         []keys.Signer
	sources         *Sources
	frozen          bool
	forCostEstimate bool
}

func (tx *Transaction) snapshot() *snapshot {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.snapshotLocked()
}

func (tx *Transaction) snapshotLocked() *snapshot {
	s := &snapshot{
		payload:         tx.payload.clonePayload(),
		nodes:           append([]model.AccountID(nil), tx.nodeAccountIDs...),
		validDuration:   DefaultValidDuration,
		fee:             tx.payload.DefaultMaxTransactionFee(),
		memo:            tx.memo,
		regenerate:      tx.regenerate,
		customFeeLimits: tx.customFeeLimits,
		operator:        tx.operator,
		signers:         append([]keys.Signer(nil), tx.signers...),
		sources:         tx.sources,
		frozen:          tx.frozen,
		forCostEstimate: tx.forCostEstimate,
	}
	if tx.validDuration != nil {
		s.validDuration = *tx.validDuration
	}
	if tx.maxTransactionFee != nil {
		s.fee = *tx.maxTransactionFee
	}
	if tx.transactionID != nil {
		id := *tx.transactionID
		s.transactionID = &id
	}
	return s
}

func (s *snapshot) chunkTotal() int { return usedChunks(s.payload) }

// body encodes the transaction body for one chunk and node.
func (s *snapshot) body(chunk ChunkInfo, hasID bool) (*wire.TransactionBody, error) {
	data, err := s.payload.bodyData(chunk)
	if err != nil {
		return nil, err
	}
	b := &wire.TransactionBody{
		ValidDuration: wire.FromDuration(s.validDuration),
		Memo:          s.memo,
		Data:          data,
		MaxCustomFees: wire.FromCustomFeeLimits(s.customFeeLimits),
	}
	if !s.forCostEstimate {
		b.TransactionFee = uint64(s.fee.Tinybars())
	}
	if hasID {
		b.TransactionID = wire.FromTransactionID(chunk.CurrentTransactionID)
	}
	if chunk.NodeAccountID != nil {
		b.NodeAccountID = wire.FromAccountID(*chunk.NodeAccountID)
	}
	return b, nil
}

// envelope encodes and signs one chunk for one node: the operator signs
// first, then each signer whose key is not already present.
func (s *snapshot) envelope(chunk ChunkInfo, hasID bool) (wire.Transaction, model.TransactionHash, error) {
	body, err := s.body(chunk, hasID)
	if err != nil {
		return wire.Transaction{}, model.TransactionHash{}, err
	}
	bodyBytes := body.Marshal()

	sigMap := &wire.SignatureMap{}
	sign := func(signer keys.Signer) {
		if sigMap.HasPrefixFor(signer.PublicKey().Bytes()) {
			return
		}
		sigMap.SigPairs = append(sigMap.SigPairs, keys.SignWith(signer, bodyBytes).Wire())
	}
	if s.operator != nil && s.operator.Signer != nil {
		sign(s.operator.Signer)
	}
	for _, signer := range s.signers {
		sign(signer)
	}

	signed := (&wire.SignedTransaction{BodyBytes: bodyBytes, SigMap: sigMap}).Marshal()
	return wire.Transaction{SignedTransactionBytes: signed}, cidutil.TransactionHash(signed), nil
}

// chunkInfo describes chunk k of total for node, relative to the initial
// transaction id.
func chunkInfo(initial model.TransactionID, k, total int, node *model.AccountID) ChunkInfo {
	return ChunkInfo{
		Current:              k,
		Total:                total,
		InitialTransactionID: initial,
		CurrentTransactionID: initial.ChunkTransactionID(k),
		NodeAccountID:        node,
	}
}

// envelopes builds every envelope, chunk by chunk and node by node. An
// unfrozen transaction may lack nodes, in which case one unbound envelope
// is built per chunk.
func (s *snapshot) envelopes() ([]wire.Transaction, error) {
	total := s.chunkTotal()
	hasID := s.transactionID != nil
	if total > 1 && !hasID {
		return nil, model.NewError(model.KindConfig, "a chunked transaction needs a transaction id before it can be serialized")
	}
	var initial model.TransactionID
	if hasID {
		initial = *s.transactionID
	}

	nodes := make([]*model.AccountID, 0, len(s.nodes))
	for i := range s.nodes {
		nodes = append(nodes, &s.nodes[i])
	}
	if len(nodes) == 0 {
		nodes = append(nodes, nil)
	}

	out := make([]wire.Transaction, 0, total*len(nodes))
	for k := 0; k < total; k++ {
		for _, node := range nodes {
			env, _, err := s.envelope(chunkInfo(initial, k, total, node), hasID)
			if err != nil {
				return nil, err
			}
			out = append(out, env)
		}
	}
	return out, nil
}
