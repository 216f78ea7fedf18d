package nodegrpc

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"xdao.co/ledgertx/cidutil"
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/wire"
)

// DefaultSimulatorFee is the fee a Simulator charges when none is configured.
const DefaultSimulatorFee = model.Hbar(100_000)

type SimulatorOptions struct {
	// AccountID is the node account transactions must be addressed to.
	AccountID model.AccountID

	// Fee is the minimum transaction fee. Zero means DefaultSimulatorFee.
	Fee model.Hbar

	// Accounts maps payer accounts to the key that must sign for them.
	// Payers not listed are only checked for well-formed signatures.
	Accounts map[model.AccountID]keys.PublicKey

	// ReceiptDelay is the number of receipt queries answered with status
	// Unknown before the final receipt is returned.
	ReceiptDelay int

	Logger     *zap.Logger
	Registerer prometheus.Registerer

	// Now defaults to time.Now.
	Now func() time.Time
}

// Hook runs before a submitted transaction is processed. A non-nil error is
// returned to the caller as-is; a non-OK status is returned as the precheck
// code.
type Hook func(method string, body *wire.TransactionBody) (model.Status, error)

// Simulator is an in-memory node. It runs the precheck a real node runs
// (addressing, expiry, signatures, fee, duplicates) and keeps receipts,
// topic sequence numbers and file contents in memory.
type Simulator struct {
	UnimplementedNodeServer

	opts     SimulatorOptions
	log      *zap.Logger
	requests *prometheus.CounterVec

	mu           sync.Mutex
	hook         Hook
	receipts     map[string]*simReceipt
	topics       map[model.EntityID]*topicState
	files        map[model.EntityID][]byte
	nextSchedule int64
}

type simReceipt struct {
	receipt wire.TransactionReceipt
	pending int
}

type topicState struct {
	seq  uint64
	hash []byte
}

func NewSimulator(opts SimulatorOptions) *Simulator {
	if opts.Fee <= 0 {
		opts.Fee = DefaultSimulatorFee
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Simulator{
		opts: opts,
		log:  log.With(zap.Stringer("node", opts.AccountID)),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgertx",
			Subsystem: "simulator",
			Name:      "transactions_total",
			Help:      "Transactions submitted to the simulator, by method and precheck status.",
		}, []string{"method", "status"}),
		receipts:     map[string]*simReceipt{},
		topics:       map[model.EntityID]*topicState{},
		files:        map[model.EntityID][]byte{},
		nextSchedule: 1000,
	}
	if opts.Registerer != nil {
		opts.Registerer.MustRegister(s.requests)
	}
	return s
}

// SetHook installs h, replacing any previous hook. Pass nil to clear it.
func (s *Simulator) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// File returns the contents appended so far to file id.
func (s *Simulator) File(id model.EntityID) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.files[id]...)
}

// TopicSequence returns the number of messages accepted for topic id.
func (s *Simulator) TopicSequence(id model.EntityID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.topics[id]; t != nil {
		return t.seq
	}
	return 0
}

func (s *Simulator) SubmitTransaction(ctx context.Context, method string, tx *wire.Transaction) (*wire.TransactionResponse, error) {
	_ = ctx
	st, cost, err := s.submit(method, tx)
	if err != nil {
		s.requests.WithLabelValues(method, "error").Inc()
		return nil, err
	}
	s.requests.WithLabelValues(method, st.String()).Inc()
	return &wire.TransactionResponse{NodeTransactionPrecheckCode: int32(st), Cost: uint64(cost)}, nil
}

func (s *Simulator) submit(method string, tx *wire.Transaction) (model.Status, model.Hbar, error) {
	signed, err := tx.Signed()
	if err != nil {
		return model.StatusInvalidTransaction, 0, nil
	}
	var body wire.TransactionBody
	if err := body.Unmarshal(signed.BodyBytes); err != nil {
		return model.StatusInvalidTransactionBody, 0, nil
	}

	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		st, err := hook(method, &body)
		if err != nil {
			return 0, 0, err
		}
		if st != model.StatusOK {
			return st, 0, nil
		}
	}

	if body.TransactionID == nil || body.TransactionID.AccountID == nil || body.TransactionID.ValidStart == nil {
		return model.StatusInvalidTransactionID, 0, nil
	}
	if body.NodeAccountID == nil || !body.NodeAccountID.Model().Equal(s.opts.AccountID.WithoutChecksum()) {
		return model.StatusInvalidNodeAccount, 0, nil
	}
	txID := body.TransactionID.Model()
	if body.ValidDuration != nil {
		if s.opts.Now().After(txID.ValidStart.Add(body.ValidDuration.Duration())) {
			return model.StatusTransactionExpired, 0, nil
		}
	}
	if st := s.checkSignatures(txID.AccountID, signed); st != model.StatusOK {
		return st, 0, nil
	}
	if model.Hbar(body.TransactionFee) < s.opts.Fee {
		return model.StatusInsufficientTxFee, s.opts.Fee, nil
	}

	receipt, st := s.apply(&body)
	if st != model.StatusOK {
		return st, 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := txID.String()
	if _, dup := s.receipts[key]; dup {
		return model.StatusDuplicateTransaction, 0, nil
	}
	s.receipts[key] = &simReceipt{receipt: receipt, pending: s.opts.ReceiptDelay}
	s.commit(&body, &s.receipts[key].receipt)
	s.log.Debug("transaction accepted", zap.String("method", method), zap.Stringer("transaction_id", txID))
	return model.StatusOK, 0, nil
}

func (s *Simulator) checkSignatures(payer model.AccountID, signed wire.SignedTransaction) model.Status {
	if signed.SigMap == nil || len(signed.SigMap.SigPairs) == 0 {
		return model.StatusInvalidSignature
	}
	for _, pair := range signed.SigMap.SigPairs {
		kind := keys.KindEd25519
		if pair.Kind == wire.SignatureECDSASecp256k1 {
			kind = keys.KindECDSASecp256k1
		}
		pub, err := keys.NewPublicKey(kind, pair.PubKeyPrefix)
		if err != nil || !pub.Verify(signed.BodyBytes, pair.Signature) {
			return model.StatusInvalidSignature
		}
	}
	if want, ok := s.opts.Accounts[payer.WithoutChecksum()]; ok && !signed.SigMap.HasPrefixFor(want.Bytes()) {
		return model.StatusInvalidSignature
	}
	return model.StatusOK
}

// apply validates the kind-specific body and drafts its receipt.
func (s *Simulator) apply(body *wire.TransactionBody) (wire.TransactionReceipt, model.Status) {
	receipt := wire.TransactionReceipt{Status: int32(model.StatusSuccess)}
	switch body.Data.Field {
	case wire.DataCryptoTransfer:
		var t wire.CryptoTransferTransactionBody
		if err := t.Unmarshal(body.Data.Bytes); err != nil {
			return receipt, model.StatusInvalidTransactionBody
		}
		var sum int64
		for _, aa := range t.AccountAmounts {
			sum += aa.Amount
		}
		if sum != 0 {
			return receipt, model.StatusInvalidAccountAmounts
		}
	case wire.DataConsensusSubmitMessage:
		var m wire.ConsensusSubmitMessageTransactionBody
		if err := m.Unmarshal(body.Data.Bytes); err != nil {
			return receipt, model.StatusInvalidTransactionBody
		}
		if m.TopicID == nil {
			return receipt, model.StatusInvalidTopicID
		}
		if ci := m.ChunkInfo; ci != nil && (ci.Number < 1 || ci.Number > ci.Total) {
			return receipt, model.StatusInvalidChunkNumber
		}
	case wire.DataFileAppend:
		var f wire.FileAppendTransactionBody
		if err := f.Unmarshal(body.Data.Bytes); err != nil {
			return receipt, model.StatusInvalidTransactionBody
		}
		if f.FileID == nil {
			return receipt, model.StatusInvalidFileID
		}
	case wire.DataScheduleCreate, wire.DataUtilPrng:
	default:
		return receipt, model.StatusNotSupported
	}
	return receipt, model.StatusOK
}

// commit applies an accepted body to in-memory state. Callers hold s.mu.
func (s *Simulator) commit(body *wire.TransactionBody, receipt *wire.TransactionReceipt) {
	switch body.Data.Field {
	case wire.DataConsensusSubmitMessage:
		var m wire.ConsensusSubmitMessageTransactionBody
		_ = m.Unmarshal(body.Data.Bytes)
		id := m.TopicID.Model()
		t := s.topics[id]
		if t == nil {
			t = &topicState{}
			s.topics[id] = t
		}
		t.seq++
		h := cidutil.TransactionHash(append(append([]byte(nil), t.hash...), m.Message...))
		t.hash = h[:]
		receipt.TopicID = m.TopicID
		receipt.TopicSequenceNumber = t.seq
		receipt.TopicRunningHash = append([]byte(nil), t.hash...)
	case wire.DataFileAppend:
		var f wire.FileAppendTransactionBody
		_ = f.Unmarshal(body.Data.Bytes)
		id := f.FileID.Model()
		s.files[id] = append(s.files[id], f.Contents...)
		receipt.FileID = f.FileID
	case wire.DataScheduleCreate:
		s.nextSchedule++
		receipt.ScheduleID = &wire.EntityID{Num: s.nextSchedule}
	}
}

func (s *Simulator) GetTransactionReceipts(ctx context.Context, q *wire.Query) (*wire.Response, error) {
	_ = ctx
	if q.TransactionID == nil {
		return &wire.Response{PrecheckCode: int32(model.StatusInvalidTransactionID)}, nil
	}
	key := q.TransactionID.Model().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[key]
	if !ok {
		return &wire.Response{PrecheckCode: int32(model.StatusReceiptNotFound)}, nil
	}
	if r.pending > 0 {
		r.pending--
		return &wire.Response{Receipt: &wire.TransactionReceipt{Status: int32(model.StatusUnknown)}}, nil
	}
	receipt := r.receipt
	return &wire.Response{Receipt: &receipt}, nil
}
