package transaction

import (
	"time"

	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/nodegrpc"
	"xdao.co/ledgertx/wire"
)

// ScheduleCreate wraps another transaction's body so it executes once
// enough signatures have been collected. Build one with Transaction.Schedule.
type ScheduleCreate struct {
	ScheduleMemo   string
	PayerAccountID *model.AccountID
	ExpirationTime *time.Time
	WaitForExpiry  bool

	scheduled *wire.SchedulableTransactionBody
}

func (ScheduleCreate) Kind() string { return "ScheduleCreate" }

func (ScheduleCreate) DefaultMaxTransactionFee() model.Hbar { return model.NewHbar(5) }

func (ScheduleCreate) rpcMethod() string { return nodegrpc.MethodScheduleCreateSchedule }

// ScheduledData returns the data arm of the scheduled body, or a zero Data
// when nothing is scheduled.
func (s ScheduleCreate) ScheduledData() wire.Data {
	if s.scheduled == nil {
		return wire.Data{}
	}
	return s.scheduled.Data
}

func (s ScheduleCreate) clonePayload() Payload {
	if s.scheduled != nil {
		inner := *s.scheduled
		inner.Data.Bytes = append([]byte(nil), inner.Data.Bytes...)
		inner.MaxCustomFees = append([]wire.CustomFeeLimit(nil), inner.MaxCustomFees...)
		s.scheduled = &inner
	}
	if s.PayerAccountID != nil {
		payer := *s.PayerAccountID
		s.PayerAccountID = &payer
	}
	if s.ExpirationTime != nil {
		exp := *s.ExpirationTime
		s.ExpirationTime = &exp
	}
	return s
}

func (s ScheduleCreate) validateChecksums(ledger model.LedgerID) error {
	if s.PayerAccountID != nil {
		return s.PayerAccountID.ValidateChecksum(ledger)
	}
	return nil
}

func (s ScheduleCreate) bodyData(ChunkInfo) (wire.Data, error) {
	if s.scheduled == nil {
		return wire.Data{}, model.NewError(model.KindConfig, "schedule create has no scheduled transaction")
	}
	body := wire.ScheduleCreateTransactionBody{
		ScheduledTransactionBody: s.scheduled,
		Memo:                     s.ScheduleMemo,
		WaitForExpiry:            s.WaitForExpiry,
	}
	if s.PayerAccountID != nil {
		body.PayerAccountID = wire.FromAccountID(*s.PayerAccountID)
	}
	if s.ExpirationTime != nil {
		body.ExpirationTime = wire.FromTime(*s.ExpirationTime)
	}
	return wire.Data{Field: wire.DataScheduleCreate, Bytes: body.Marshal()}, nil
}

func scheduleCreateFromData(b []byte) (Payload, error) {
	var body wire.ScheduleCreateTransactionBody
	if err := body.Unmarshal(b); err != nil {
		return nil, model.WrapError(model.KindDecode, "schedule create body", err)
	}
	s := ScheduleCreate{
		ScheduleMemo:  body.Memo,
		WaitForExpiry: body.WaitForExpiry,
		scheduled:     body.ScheduledTransactionBody,
	}
	if body.PayerAccountID != nil {
		payer := body.PayerAccountID.Model()
		s.PayerAccountID = &payer
	}
	if body.ExpirationTime != nil {
		exp := body.ExpirationTime.Time()
		s.ExpirationTime = &exp
	}
	return s, nil
}

// Schedule wraps tx in a ScheduleCreate carrying tx's fee, memo, custom fee
// limits and kind data. The new transaction takes over tx's transaction id.
// tx must not be frozen and must not name nodes, since the scheduled body
// is never sent to a node itself; either is a programming error and panics.
func (tx *Transaction) Schedule() (*Transaction, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.requireNotFrozen()
	if len(tx.nodeAccountIDs) > 0 {
		panic("transaction: cannot schedule a transaction with explicit node account ids")
	}
	sp, ok := tx.payload.(schedulablePayload)
	if !ok {
		return nil, model.NewError(model.KindConfig, tx.payload.Kind()+" transactions cannot be scheduled")
	}
	data, err := sp.schedulableData()
	if err != nil {
		return nil, err
	}
	fee := tx.payload.DefaultMaxTransactionFee()
	if tx.maxTransactionFee != nil {
		fee = *tx.maxTransactionFee
	}
	inner := &wire.SchedulableTransactionBody{
		TransactionFee: uint64(fee.Tinybars()),
		Memo:           tx.memo,
		Data:           data,
		MaxCustomFees:  wire.FromCustomFeeLimits(tx.customFeeLimits),
	}
	out := New(ScheduleCreate{scheduled: inner})
	if tx.transactionID != nil {
		id := *tx.transactionID
		out.transactionID = &id
	}
	return out, nil
}
