// Package transaction builds, freezes, signs, serializes and submits
// ledger transactions.
//
// A Transaction moves through three states. It starts unfrozen, when every
// setter is allowed. Freeze or FreezeWith fixes the transaction id, the
// target nodes and the fee, after which setters panic. Signing, hashing
// and AddSignature switch it to a cached form, held as Sources, where
// further signatures are layered onto the exact bytes already produced
// rather than re-encoding the body. FromBytes starts in that cached form.
//
// Execution is delegated to package execute; chunked kinds submit their
// chunks in order and report partial progress with model.PartialChunkError.
package transaction

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"xdao.co/ledgertx/execute"
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
)

// DefaultValidDuration is used when neither the transaction nor the client
// sets a validity window.
const DefaultValidDuration = 120 * time.Second

var pkgLogger atomic.Pointer[zap.Logger]

func init() { pkgLogger.Store(zap.NewNop()) }

// SetLogger sets the logger used for warnings about ignored settings.
// Execution logs go to the logger in execute.Options.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	pkgLogger.Store(l)
}

func logger() *zap.Logger { return pkgLogger.Load() }

// Client supplies the defaults Freeze draws on.
type Client interface {
	// Operator is nil when no operator is configured.
	Operator() *keys.Operator
	// DefaultMaxTransactionFee is nil when the payload default applies.
	DefaultMaxTransactionFee() *model.Hbar
	DefaultValidDuration() time.Duration
	// LedgerID is nil when unknown.
	LedgerID() model.LedgerID
	AutoValidateChecksums() bool
	// SampleNodeAccountIDs picks the nodes a new transaction targets.
	SampleNodeAccountIDs() []model.AccountID
}

// Network is a Client that can also execute requests.
type Network interface {
	Client
	execute.Network
	ExecuteOptions() execute.Options
}

// Transaction is safe for concurrent use. Signing may run concurrently with
// reads; setters must not race with Freeze.
type Transaction struct {
	mu sync.Mutex

	payload           Payload
	nodeAccountIDs    []model.AccountID
	validDuration     *time.Duration
	maxTransactionFee *model.Hbar
	memo              string
	transactionID     *model.TransactionID
	regenerate        *bool
	customFeeLimits   []model.CustomFeeLimit

	operator        *keys.Operator
	frozen          bool
	forCostEstimate bool

	signers []keys.Signer
	sources *Sources
}

// New returns an unfrozen transaction carrying payload.
func New(payload Payload) *Transaction {
	if payload == nil {
		panic("transaction: nil payload")
	}
	return &Transaction{payload: payload.clonePayload()}
}

func (tx *Transaction) requireNotFrozen() {
	if tx.frozen {
		panic("transaction: cannot modify a frozen transaction")
	}
}

// beginEdit guards a setter. Envelopes decoded from bytes no longer match
// the body once it changes, so they are dropped.
func (tx *Transaction) beginEdit() {
	tx.requireNotFrozen()
	tx.sources = nil
}

func (tx *Transaction) mustBeFrozen() {
	tx.mu.Lock()
	frozen := tx.frozen
	tx.mu.Unlock()
	if !frozen {
		panic("transaction: transaction must be frozen")
	}
}

// Payload returns a copy of the kind-specific data. Assert it to the kind's
// type to read it.
func (tx *Transaction) Payload() Payload {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.payload.clonePayload()
}

// SetPayload replaces the kind-specific data.
func (tx *Transaction) SetPayload(p Payload) *Transaction {
	if p == nil {
		panic("transaction: nil payload")
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.beginEdit()
	tx.payload = p.clonePayload()
	return tx
}

func (tx *Transaction) NodeAccountIDs() []model.AccountID {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return append([]model.AccountID(nil), tx.nodeAccountIDs...)
}

// SetNodeAccountIDs pins the nodes the transaction is built for, in the
// order they are tried. An empty list is ignored.
func (tx *Transaction) SetNodeAccountIDs(ids []model.AccountID) *Transaction {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.beginEdit()
	if len(ids) == 0 {
		logger().Warn("ignoring empty node account id list")
		return tx
	}
	tx.nodeAccountIDs = append([]model.AccountID(nil), ids...)
	return tx
}

// ValidDuration returns zero when unset.
func (tx *Transaction) ValidDuration() time.Duration {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.validDuration == nil {
		return 0
	}
	return *tx.validDuration
}

func (tx *Transaction) SetValidDuration(d time.Duration) *Transaction {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.beginEdit()
	tx.validDuration = &d
	return tx
}

// MaxTransactionFee returns nil when unset.
func (tx *Transaction) MaxTransactionFee() *model.Hbar {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.maxTransactionFee == nil {
		return nil
	}
	fee := *tx.maxTransactionFee
	return &fee
}

func (tx *Transaction) SetMaxTransactionFee(fee model.Hbar) *Transaction {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.beginEdit()
	tx.maxTransactionFee = &fee
	return tx
}

func (tx *Transaction) Memo() string {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.memo
}

func (tx *Transaction) SetMemo(memo string) *Transaction {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.beginEdit()
	tx.memo = memo
	return tx
}

// TransactionID returns nil when unset.
func (tx *Transaction) TransactionID() *model.TransactionID {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.transactionID == nil {
		return nil
	}
	id := *tx.transactionID
	return &id
}

func (tx *Transaction) SetTransactionID(id model.TransactionID) *Transaction {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.beginEdit()
	tx.transactionID = &id
	return tx
}

// RegenerateTransactionID returns nil when the client setting applies.
func (tx *Transaction) RegenerateTransactionID() *bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.regenerate == nil {
		return nil
	}
	r := *tx.regenerate
	return &r
}

// SetRegenerateTransactionID overrides whether an expired transaction id
// is replaced and retried.
func (tx *Transaction) SetRegenerateTransactionID(regenerate bool) *Transaction {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.beginEdit()
	tx.regenerate = &regenerate
	return tx
}

func (tx *Transaction) CustomFeeLimits() []model.CustomFeeLimit {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return append([]model.CustomFeeLimit(nil), tx.customFeeLimits...)
}

// SetCustomFeeLimits bounds the custom fees the payer accepts.
func (tx *Transaction) SetCustomFeeLimits(limits []model.CustomFeeLimit) *Transaction {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.beginEdit()
	tx.customFeeLimits = append([]model.CustomFeeLimit(nil), limits...)
	return tx
}

// AddCustomFeeLimit appends one limit.
func (tx *Transaction) AddCustomFeeLimit(limit model.CustomFeeLimit) *Transaction {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.beginEdit()
	tx.customFeeLimits = append(tx.customFeeLimits, limit)
	return tx
}

// SetChunkSize changes the chunk size of a chunked kind. It panics for
// other kinds.
func (tx *Transaction) SetChunkSize(size int) *Transaction {
	return tx.editChunks(func(c *ChunkData) { c.ChunkSize = size })
}

// SetMaxChunks changes the chunk limit of a chunked kind. It panics for
// other kinds.
func (tx *Transaction) SetMaxChunks(n int) *Transaction {
	return tx.editChunks(func(c *ChunkData) { c.MaxChunks = n })
}

func (tx *Transaction) editChunks(fn func(*ChunkData)) *Transaction {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.beginEdit()
	switch p := tx.payload.(type) {
	case TopicMessageSubmit:
		c := p.chunkData()
		fn(c)
		p.ChunkSize, p.MaxChunks = c.ChunkSize, c.MaxChunks
		tx.payload = p
	case FileAppend:
		c := p.chunkData()
		fn(c)
		p.ChunkSize, p.MaxChunks = c.ChunkSize, c.MaxChunks
		tx.payload = p
	default:
		panic("transaction: " + tx.payload.Kind() + " transactions are not chunked")
	}
	return tx
}

// IsFrozen reports whether the transaction can still be modified.
func (tx *Transaction) IsFrozen() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.frozen
}

// Signers returns the signers added so far, not counting the operator.
func (tx *Transaction) Signers() []keys.Signer {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return append([]keys.Signer(nil), tx.signers...)
}
