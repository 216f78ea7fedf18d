package wire

import (
	"time"

	"xdao.co/ledgertx/model"
)

func FromAccountID(id model.AccountID) *AccountID {
	return &AccountID{
		Shard: int64(id.Shard),
		Realm: int64(id.Realm),
		Num:   int64(id.Num),
		Alias: []byte(id.Alias),
	}
}

func (m *AccountID) Model() model.AccountID {
	return model.AccountID{
		Shard: uint64(m.Shard),
		Realm: uint64(m.Realm),
		Num:   uint64(m.Num),
		Alias: string(m.Alias),
	}
}

func FromEntityID(id model.EntityID) *EntityID {
	return &EntityID{Shard: int64(id.Shard), Realm: int64(id.Realm), Num: int64(id.Num)}
}

func (m *EntityID) Model() model.EntityID {
	return model.EntityID{Shard: uint64(m.Shard), Realm: uint64(m.Realm), Num: uint64(m.Num)}
}

func FromTime(t time.Time) *Timestamp {
	return &Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

func (m *Timestamp) Time() time.Time {
	return time.Unix(m.Seconds, int64(m.Nanos)).UTC()
}

func FromDuration(d time.Duration) *Duration {
	return &Duration{Seconds: int64(d / time.Second)}
}

func (m *Duration) Duration() time.Duration {
	return time.Duration(m.Seconds) * time.Second
}

func FromTransactionID(id model.TransactionID) *TransactionID {
	return &TransactionID{
		ValidStart: FromTime(id.ValidStart),
		AccountID:  FromAccountID(id.AccountID),
		Scheduled:  id.Scheduled,
		Nonce:      id.Nonce,
	}
}

// Model converts the wire id. Missing sub-messages decode as zero values.
func (m *TransactionID) Model() model.TransactionID {
	var id model.TransactionID
	if m.ValidStart != nil {
		id.ValidStart = m.ValidStart.Time()
	} else {
		id.ValidStart = time.Unix(0, 0).UTC()
	}
	if m.AccountID != nil {
		id.AccountID = m.AccountID.Model()
	}
	id.Scheduled = m.Scheduled
	id.Nonce = m.Nonce
	return id
}

func FromCustomFeeLimits(limits []model.CustomFeeLimit) []CustomFeeLimit {
	if len(limits) == 0 {
		return nil
	}
	out := make([]CustomFeeLimit, 0, len(limits))
	for _, l := range limits {
		var w CustomFeeLimit
		if l.AccountID != nil {
			w.AccountID = FromAccountID(*l.AccountID)
		}
		for _, f := range l.Fees {
			fee := FixedFee{Amount: int64(f.Amount)}
			if f.DenominatingTokenID != nil {
				fee.DenominatingTokenID = FromEntityID(*f.DenominatingTokenID)
			}
			w.Fees = append(w.Fees, fee)
		}
		out = append(out, w)
	}
	return out
}

func ToCustomFeeLimits(limits []CustomFeeLimit) []model.CustomFeeLimit {
	if len(limits) == 0 {
		return nil
	}
	out := make([]model.CustomFeeLimit, 0, len(limits))
	for _, l := range limits {
		var m model.CustomFeeLimit
		if l.AccountID != nil {
			id := l.AccountID.Model()
			m.AccountID = &id
		}
		for _, f := range l.Fees {
			fee := model.FixedFee{Amount: uint64(f.Amount)}
			if f.DenominatingTokenID != nil {
				tok := f.DenominatingTokenID.Model()
				fee.DenominatingTokenID = &tok
			}
			m.Fees = append(m.Fees, fee)
		}
		out = append(out, m)
	}
	return out
}
