package transaction

import (
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/nodegrpc"
	"xdao.co/ledgertx/wire"
)

// HbarTransfer moves Amount into (positive) or out of (negative) AccountID.
type HbarTransfer struct {
	AccountID  model.AccountID
	Amount     model.Hbar
	IsApproval bool
}

// Transfer moves hbar between accounts. The amounts must sum to zero.
type Transfer struct {
	Transfers []HbarTransfer
}

// NewTransfer returns an unfrozen transaction carrying transfers.
func NewTransfer(transfers ...HbarTransfer) *Transaction {
	return New(Transfer{Transfers: transfers})
}

func (Transfer) Kind() string { return "Transfer" }

func (Transfer) DefaultMaxTransactionFee() model.Hbar { return model.NewHbar(1) }

func (Transfer) rpcMethod() string { return nodegrpc.MethodCryptoTransfer }

func (t Transfer) clonePayload() Payload {
	t.Transfers = append([]HbarTransfer(nil), t.Transfers...)
	return t
}

func (t Transfer) validateChecksums(ledger model.LedgerID) error {
	for _, tr := range t.Transfers {
		if err := tr.AccountID.ValidateChecksum(ledger); err != nil {
			return err
		}
	}
	return nil
}

func (t Transfer) encode() []byte {
	body := wire.CryptoTransferTransactionBody{AccountAmounts: make([]wire.AccountAmount, 0, len(t.Transfers))}
	for _, tr := range t.Transfers {
		body.AccountAmounts = append(body.AccountAmounts, wire.AccountAmount{
			AccountID:  wire.FromAccountID(tr.AccountID),
			Amount:     tr.Amount.Tinybars(),
			IsApproval: tr.IsApproval,
		})
	}
	return body.Marshal()
}

func (t Transfer) bodyData(ChunkInfo) (wire.Data, error) {
	return wire.Data{Field: wire.DataCryptoTransfer, Bytes: t.encode()}, nil
}

func (t Transfer) schedulableData() (wire.Data, error) {
	return wire.Data{Field: wire.SchedulableCryptoTransfer, Bytes: t.encode()}, nil
}

func transferFromData(b []byte) (Payload, error) {
	var body wire.CryptoTransferTransactionBody
	if err := body.Unmarshal(b); err != nil {
		return nil, model.WrapError(model.KindDecode, "crypto transfer body", err)
	}
	t := Transfer{}
	for _, aa := range body.AccountAmounts {
		var id model.AccountID
		if aa.AccountID != nil {
			id = aa.AccountID.Model()
		}
		t.Transfers = append(t.Transfers, HbarTransfer{
			AccountID:  id,
			Amount:     model.HbarFromTinybars(aa.Amount),
			IsApproval: aa.IsApproval,
		})
	}
	return t, nil
}
