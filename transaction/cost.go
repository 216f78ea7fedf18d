package transaction

import (
	"context"
	"errors"

	"xdao.co/ledgertx/execute"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/wire"
)

// GetCost asks one node what the transaction would cost. A copy with a zero
// fee is submitted; the node rejects it with InsufficientTxFee and reports
// the fee it wants, which is returned. If the node accepts the zero-fee copy
// the result is a *model.PrecheckError with status OK, since it was
// submitted for real. The receiver is not modified.
func (tx *Transaction) GetCost(ctx context.Context, network Network) (model.Hbar, error) {
	probe := tx.costProbe()
	if len(probe.nodeAccountIDs) == 0 {
		if sample := network.SampleNodeAccountIDs(); len(sample) > 0 {
			probe.nodeAccountIDs = sample[:1]
		}
	}
	if err := probe.FreezeWith(network); err != nil {
		return 0, err
	}

	snap := probe.snapshot()
	sub := &submission{
		snap:          snap,
		total:         snap.chunkTotal(),
		transactionID: snap.transactionID,
		regenerate:    snap.regenerate,
	}
	_, err := execute.Execute[*wire.Transaction, *wire.TransactionResponse, *Response](ctx, network, sub, network.ExecuteOptions())
	if err == nil {
		return 0, precheckError(model.StatusOK, snap.transactionID, 0)
	}
	var pe *model.PrecheckError
	if errors.As(err, &pe) && pe.Status == model.StatusInsufficientTxFee && pe.Cost != nil {
		return *pe.Cost, nil
	}
	return 0, err
}

// costProbe copies the unfrozen parts of tx into a transaction that targets
// at most one node and carries a zero fee.
func (tx *Transaction) costProbe() *Transaction {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	probe := &Transaction{
		payload:         tx.payload.clonePayload(),
		validDuration:   tx.validDuration,
		memo:            tx.memo,
		regenerate:      tx.regenerate,
		customFeeLimits: append([]model.CustomFeeLimit(nil), tx.customFeeLimits...),
		signers:         append(tx.signers[:0:0], tx.signers...),
		forCostEstimate: true,
	}
	if tx.transactionID != nil {
		id := *tx.transactionID
		probe.transactionID = &id
	}
	if len(tx.nodeAccountIDs) > 0 {
		probe.nodeAccountIDs = []model.AccountID{tx.nodeAccountIDs[0]}
	}
	return probe
}
