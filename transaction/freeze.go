package transaction

import (
	"go.uber.org/zap"

	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
)

// Freeze fixes the transaction without a client. The transaction id and
// node account ids must already be set.
func (tx *Transaction) Freeze() error { return tx.FreezeWith(nil) }

// FreezeWith fixes the transaction, filling unset fields from c: the
// transaction id from the operator, the nodes from a healthy sample, the
// max fee and validity window from the client defaults. Freezing an
// already frozen transaction does nothing. Nothing is changed when an
// error is returned.
func (tx *Transaction) FreezeWith(c Client) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.freezeLocked(c)
}

func (tx *Transaction) freezeLocked(c Client) error {
	if tx.frozen {
		return nil
	}

	var operator *keys.Operator
	if c != nil {
		operator = c.Operator()
	}

	txID := tx.transactionID
	if txID == nil {
		if operator == nil {
			return model.ErrNoPayerAccountOrTransactionID
		}
		id := model.GenerateTransactionID(operator.AccountID)
		txID = &id
	}

	nodes := tx.nodeAccountIDs
	if len(nodes) == 0 && c != nil {
		nodes = c.SampleNodeAccountIDs()
	}
	if len(nodes) == 0 {
		return model.ErrNoNodeAccountIDs
	}

	fee := tx.maxTransactionFee
	if fee == nil && c != nil {
		fee = c.DefaultMaxTransactionFee()
	}
	validDuration := tx.validDuration
	if validDuration == nil && c != nil {
		if d := c.DefaultValidDuration(); d > 0 {
			validDuration = &d
		}
	}

	if cd := chunkDataOf(tx.payload); cd != nil {
		if err := cd.validate(); err != nil {
			return err
		}
	}

	if c != nil && c.AutoValidateChecksums() {
		if err := validateChecksums(c.LedgerID(), *txID, nodes, tx.payload); err != nil {
			return err
		}
	}

	tx.transactionID = txID
	tx.nodeAccountIDs = append([]model.AccountID(nil), nodes...)
	tx.maxTransactionFee = fee
	tx.validDuration = validDuration
	tx.operator = operator
	tx.frozen = true
	if tx.sources != nil {
		// Decoded envelopes that lacked an id or nodes cannot be submitted
		// as they are; the body is re-encoded from now on.
		if len(tx.sources.Signers()) > 0 {
			logger().Warn("discarding signatures on envelopes without transaction id or nodes",
				zap.Int("signers", len(tx.sources.Signers())))
		}
		tx.sources = nil
	}
	return nil
}

func validateChecksums(ledger model.LedgerID, txID model.TransactionID, nodes []model.AccountID, p Payload) error {
	if len(ledger) == 0 {
		return model.NewError(model.KindConfig, "checksum validation needs a ledger id")
	}
	if err := txID.AccountID.ValidateChecksum(ledger); err != nil {
		return err
	}
	for _, n := range nodes {
		if err := n.ValidateChecksum(ledger); err != nil {
			return err
		}
	}
	return p.validateChecksums(ledger)
}

// Sign adds key as a signer.
func (tx *Transaction) Sign(key keys.PrivateKey) *Transaction {
	return tx.AddSigner(key)
}

// SignWith adds an external signing function for pub.
func (tx *Transaction) SignWith(pub keys.PublicKey, sign func(message []byte) []byte) *Transaction {
	return tx.AddSigner(keys.SignerFunc(pub, sign))
}

// AddSigner appends s unless a signer with the same public key is already
// present. Signatures are produced when the transaction is serialized,
// hashed or executed.
func (tx *Transaction) AddSigner(s keys.Signer) *Transaction {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	pub := s.PublicKey()
	for _, existing := range tx.signers {
		if existing.PublicKey().Equal(pub) {
			return tx
		}
	}
	tx.signers = append(tx.signers, s)
	return tx
}

// SignWithOperator freezes the transaction with c and adds c's operator as
// a signer.
func (tx *Transaction) SignWithOperator(c Client) error {
	op := c.Operator()
	if op == nil {
		return model.NewError(model.KindConfig, "client has no operator")
	}
	if err := tx.FreezeWith(c); err != nil {
		return err
	}
	tx.AddSigner(op.Signer)
	return nil
}

// signedSources returns the cached sources signed by every current signer,
// storing the result if no other caller replaced the cache meanwhile.
// Signing runs without the lock held.
func (tx *Transaction) signedSources() *Sources {
	for {
		tx.mu.Lock()
		current := tx.sources
		signers := append([]keys.Signer(nil), tx.signers...)
		tx.mu.Unlock()
		if current == nil {
			return nil
		}

		next := current.SignWith(signers)
		if next == current {
			return current
		}

		tx.mu.Lock()
		if tx.sources == current {
			tx.sources = next
			tx.mu.Unlock()
			return next
		}
		tx.mu.Unlock()
	}
}

// makeSources returns the cached sources, or builds them from the frozen
// body, stores them and returns them. Once stored, the body is no longer
// re-encoded: later signatures are layered onto the cached envelopes.
func (tx *Transaction) makeSources() (*Sources, error) {
	if s := tx.signedSources(); s != nil {
		return s, nil
	}
	snap := tx.snapshot()
	if !snap.frozen {
		panic("transaction: transaction must be frozen")
	}
	envelopes, err := snap.envelopes()
	if err != nil {
		return nil, err
	}
	built, err := NewSources(envelopes)
	if err != nil {
		return nil, err
	}

	tx.mu.Lock()
	if tx.sources == nil {
		tx.sources = built
	}
	tx.mu.Unlock()
	// The cache may have been replaced concurrently, and signers may have
	// been added while the envelopes were built.
	return tx.signedSources(), nil
}
