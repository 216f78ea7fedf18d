package wire

import (
	"bytes"

	"google.golang.org/protobuf/encoding/protowire"
)

// Data is one arm of the TransactionBody "data" oneof: the field number that
// selects the transaction kind and the encoded kind-specific body.
type Data struct {
	Field protowire.Number
	Bytes []byte
}

func (d Data) Equal(o Data) bool {
	return d.Field == o.Field && bytes.Equal(d.Bytes, o.Bytes)
}

func (d Data) append(b []byte) []byte {
	if d.Field == 0 {
		return b
	}
	b = protowire.AppendTag(b, d.Field, protowire.BytesType)
	return protowire.AppendBytes(b, d.Bytes)
}

// TransactionBody data oneof field numbers.
const (
	DataCryptoTransfer         protowire.Number = 14
	DataFileAppend             protowire.Number = 16
	DataConsensusSubmitMessage protowire.Number = 27
	DataScheduleCreate         protowire.Number = 42
	DataUtilPrng               protowire.Number = 52
)

// SchedulableTransactionBody data oneof field numbers.
const (
	SchedulableCryptoTransfer         protowire.Number = 9
	SchedulableFileAppend             protowire.Number = 11
	SchedulableConsensusSubmitMessage protowire.Number = 21
	SchedulableUtilPrng               protowire.Number = 39
)

const fieldMaxCustomFees protowire.Number = 1001

type FixedFee struct {
	Amount              int64
	DenominatingTokenID *EntityID
}

func (m *FixedFee) Marshal() []byte {
	b := appendInt64(nil, 1, m.Amount)
	if m.DenominatingTokenID != nil {
		b = appendMessage(b, 2, m.DenominatingTokenID)
	}
	return b
}

func (m *FixedFee) Unmarshal(b []byte) error {
	*m = FixedFee{}
	return eachField(b, "FixedFee", func(f field) error {
		switch f.num {
		case 1:
			v, err := f.varintOf("FixedFee.amount")
			m.Amount = int64(v)
			return err
		case 2:
			m.DenominatingTokenID = new(EntityID)
			return f.messageInto(m.DenominatingTokenID, "FixedFee.denominating_token_id")
		}
		return nil
	})
}

type CustomFeeLimit struct {
	AccountID *AccountID
	Fees      []FixedFee
}

func (m *CustomFeeLimit) Marshal() []byte {
	var b []byte
	if m.AccountID != nil {
		b = appendMessage(b, 1, m.AccountID)
	}
	for i := range m.Fees {
		b = appendMessage(b, 2, &m.Fees[i])
	}
	return b
}

func (m *CustomFeeLimit) Unmarshal(b []byte) error {
	*m = CustomFeeLimit{}
	return eachField(b, "CustomFeeLimit", func(f field) error {
		switch f.num {
		case 1:
			m.AccountID = new(AccountID)
			return f.messageInto(m.AccountID, "CustomFeeLimit.account_id")
		case 2:
			var fee FixedFee
			if err := f.messageInto(&fee, "CustomFeeLimit.fees"); err != nil {
				return err
			}
			m.Fees = append(m.Fees, fee)
		}
		return nil
	})
}

type TransactionBody struct {
	TransactionID  *TransactionID
	NodeAccountID  *AccountID
	TransactionFee uint64
	ValidDuration  *Duration
	GenerateRecord bool
	Memo           string
	Data           Data
	MaxCustomFees  []CustomFeeLimit
}

func (m *TransactionBody) Marshal() []byte {
	var b []byte
	if m.TransactionID != nil {
		b = appendMessage(b, 1, m.TransactionID)
	}
	if m.NodeAccountID != nil {
		b = appendMessage(b, 2, m.NodeAccountID)
	}
	b = appendVarint(b, 3, m.TransactionFee)
	if m.ValidDuration != nil {
		b = appendMessage(b, 4, m.ValidDuration)
	}
	b = appendBool(b, 5, m.GenerateRecord)
	b = appendString(b, 6, m.Memo)
	b = m.Data.append(b)
	for i := range m.MaxCustomFees {
		b = appendMessage(b, fieldMaxCustomFees, &m.MaxCustomFees[i])
	}
	return b
}

func (m *TransactionBody) Unmarshal(b []byte) error {
	*m = TransactionBody{}
	return eachField(b, "TransactionBody", func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.TransactionID = new(TransactionID)
			err = f.messageInto(m.TransactionID, "TransactionBody.transactionID")
		case 2:
			m.NodeAccountID = new(AccountID)
			err = f.messageInto(m.NodeAccountID, "TransactionBody.nodeAccountID")
		case 3:
			m.TransactionFee, err = f.varintOf("TransactionBody.transactionFee")
		case 4:
			m.ValidDuration = new(Duration)
			err = f.messageInto(m.ValidDuration, "TransactionBody.transactionValidDuration")
		case 5:
			var v uint64
			v, err = f.varintOf("TransactionBody.generateRecord")
			m.GenerateRecord = v != 0
		case 6:
			var v []byte
			v, err = f.bytesOf("TransactionBody.memo")
			m.Memo = string(v)
		case fieldMaxCustomFees:
			var limit CustomFeeLimit
			if err = f.messageInto(&limit, "TransactionBody.max_custom_fees"); err == nil {
				m.MaxCustomFees = append(m.MaxCustomFees, limit)
			}
		case 73:
			// batch_key; not used.
		default:
			if f.typ == protowire.BytesType {
				m.Data = Data{Field: f.num, Bytes: append([]byte(nil), f.bytes...)}
			}
		}
		return err
	})
}

// SchedulableTransactionBody is the inner body carried by a schedule create.
type SchedulableTransactionBody struct {
	TransactionFee uint64
	Memo           string
	Data           Data
	MaxCustomFees  []CustomFeeLimit
}

func (m *SchedulableTransactionBody) Marshal() []byte {
	b := appendVarint(nil, 1, m.TransactionFee)
	b = appendString(b, 2, m.Memo)
	b = m.Data.append(b)
	for i := range m.MaxCustomFees {
		b = appendMessage(b, fieldMaxCustomFees, &m.MaxCustomFees[i])
	}
	return b
}

func (m *SchedulableTransactionBody) Unmarshal(b []byte) error {
	*m = SchedulableTransactionBody{}
	return eachField(b, "SchedulableTransactionBody", func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.TransactionFee, err = f.varintOf("SchedulableTransactionBody.transactionFee")
		case 2:
			var v []byte
			v, err = f.bytesOf("SchedulableTransactionBody.memo")
			m.Memo = string(v)
		case fieldMaxCustomFees:
			var limit CustomFeeLimit
			if err = f.messageInto(&limit, "SchedulableTransactionBody.max_custom_fees"); err == nil {
				m.MaxCustomFees = append(m.MaxCustomFees, limit)
			}
		default:
			if f.typ == protowire.BytesType {
				m.Data = Data{Field: f.num, Bytes: append([]byte(nil), f.bytes...)}
			}
		}
		return err
	})
}
