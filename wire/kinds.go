package wire

import "google.golang.org/protobuf/encoding/protowire"

type ConsensusMessageChunkInfo struct {
	InitialTransactionID *TransactionID
	Total                int32
	Number               int32
}

func (m *ConsensusMessageChunkInfo) Marshal() []byte {
	var b []byte
	if m.InitialTransactionID != nil {
		b = appendMessage(b, 1, m.InitialTransactionID)
	}
	b = appendInt64(b, 2, int64(m.Total))
	b = appendInt64(b, 3, int64(m.Number))
	return b
}

func (m *ConsensusMessageChunkInfo) Unmarshal(b []byte) error {
	*m = ConsensusMessageChunkInfo{}
	return eachField(b, "ConsensusMessageChunkInfo", func(f field) error {
		switch f.num {
		case 1:
			m.InitialTransactionID = new(TransactionID)
			return f.messageInto(m.InitialTransactionID, "ConsensusMessageChunkInfo.initialTransactionID")
		case 2:
			v, err := f.varintOf("ConsensusMessageChunkInfo.total")
			m.Total = int32(v)
			return err
		case 3:
			v, err := f.varintOf("ConsensusMessageChunkInfo.number")
			m.Number = int32(v)
			return err
		}
		return nil
	})
}

type ConsensusSubmitMessageTransactionBody struct {
	TopicID   *EntityID
	Message   []byte
	ChunkInfo *ConsensusMessageChunkInfo
}

func (m *ConsensusSubmitMessageTransactionBody) Marshal() []byte {
	var b []byte
	if m.TopicID != nil {
		b = appendMessage(b, 1, m.TopicID)
	}
	b = appendBytes(b, 2, m.Message)
	if m.ChunkInfo != nil {
		b = appendMessage(b, 3, m.ChunkInfo)
	}
	return b
}

func (m *ConsensusSubmitMessageTransactionBody) Unmarshal(b []byte) error {
	*m = ConsensusSubmitMessageTransactionBody{}
	return eachField(b, "ConsensusSubmitMessageTransactionBody", func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.TopicID = new(EntityID)
			err = f.messageInto(m.TopicID, "ConsensusSubmitMessageTransactionBody.topicID")
		case 2:
			m.Message, err = f.bytesOf("ConsensusSubmitMessageTransactionBody.message")
		case 3:
			m.ChunkInfo = new(ConsensusMessageChunkInfo)
			err = f.messageInto(m.ChunkInfo, "ConsensusSubmitMessageTransactionBody.chunkInfo")
		}
		return err
	})
}

type FileAppendTransactionBody struct {
	FileID   *EntityID
	Contents []byte
}

func (m *FileAppendTransactionBody) Marshal() []byte {
	var b []byte
	if m.FileID != nil {
		b = appendMessage(b, 2, m.FileID)
	}
	return appendBytes(b, 4, m.Contents)
}

func (m *FileAppendTransactionBody) Unmarshal(b []byte) error {
	*m = FileAppendTransactionBody{}
	return eachField(b, "FileAppendTransactionBody", func(f field) error {
		var err error
		switch f.num {
		case 2:
			m.FileID = new(EntityID)
			err = f.messageInto(m.FileID, "FileAppendTransactionBody.fileID")
		case 4:
			m.Contents, err = f.bytesOf("FileAppendTransactionBody.contents")
		}
		return err
	})
}

type AccountAmount struct {
	AccountID  *AccountID
	Amount     int64
	IsApproval bool
}

func (m *AccountAmount) Marshal() []byte {
	var b []byte
	if m.AccountID != nil {
		b = appendMessage(b, 1, m.AccountID)
	}
	b = appendSint64(b, 2, m.Amount)
	return appendBool(b, 3, m.IsApproval)
}

func (m *AccountAmount) Unmarshal(b []byte) error {
	*m = AccountAmount{}
	return eachField(b, "AccountAmount", func(f field) error {
		switch f.num {
		case 1:
			m.AccountID = new(AccountID)
			return f.messageInto(m.AccountID, "AccountAmount.accountID")
		case 2:
			v, err := f.varintOf("AccountAmount.amount")
			m.Amount = protowire.DecodeZigZag(v)
			return err
		case 3:
			v, err := f.varintOf("AccountAmount.is_approval")
			m.IsApproval = v != 0
			return err
		}
		return nil
	})
}

// CryptoTransferTransactionBody carries hbar transfers only; token transfer
// lists (field 2) are skipped.
type CryptoTransferTransactionBody struct {
	AccountAmounts []AccountAmount
}

func (m *CryptoTransferTransactionBody) Marshal() []byte {
	var list []byte
	for i := range m.AccountAmounts {
		list = appendMessage(list, 1, &m.AccountAmounts[i])
	}
	return appendMessage(nil, 1, rawMessage(list))
}

func (m *CryptoTransferTransactionBody) Unmarshal(b []byte) error {
	*m = CryptoTransferTransactionBody{}
	return eachField(b, "CryptoTransferTransactionBody", func(f field) error {
		if f.num != 1 {
			return nil
		}
		if err := f.want(protowire.BytesType, "CryptoTransferTransactionBody.transfers"); err != nil {
			return err
		}
		return eachField(f.bytes, "TransferList", func(g field) error {
			if g.num != 1 {
				return nil
			}
			var aa AccountAmount
			if err := g.messageInto(&aa, "TransferList.accountAmounts"); err != nil {
				return err
			}
			m.AccountAmounts = append(m.AccountAmounts, aa)
			return nil
		})
	})
}

type ScheduleCreateTransactionBody struct {
	ScheduledTransactionBody *SchedulableTransactionBody
	Memo                     string
	PayerAccountID           *AccountID
	ExpirationTime           *Timestamp
	WaitForExpiry            bool
}

func (m *ScheduleCreateTransactionBody) Marshal() []byte {
	var b []byte
	if m.ScheduledTransactionBody != nil {
		b = appendMessage(b, 1, m.ScheduledTransactionBody)
	}
	b = appendString(b, 2, m.Memo)
	if m.PayerAccountID != nil {
		b = appendMessage(b, 4, m.PayerAccountID)
	}
	if m.ExpirationTime != nil {
		b = appendMessage(b, 5, m.ExpirationTime)
	}
	return appendBool(b, 13, m.WaitForExpiry)
}

func (m *ScheduleCreateTransactionBody) Unmarshal(b []byte) error {
	*m = ScheduleCreateTransactionBody{}
	return eachField(b, "ScheduleCreateTransactionBody", func(f field) error {
		switch f.num {
		case 1:
			m.ScheduledTransactionBody = new(SchedulableTransactionBody)
			return f.messageInto(m.ScheduledTransactionBody, "ScheduleCreateTransactionBody.scheduledTransactionBody")
		case 2:
			v, err := f.bytesOf("ScheduleCreateTransactionBody.memo")
			m.Memo = string(v)
			return err
		case 4:
			m.PayerAccountID = new(AccountID)
			return f.messageInto(m.PayerAccountID, "ScheduleCreateTransactionBody.payerAccountID")
		case 5:
			m.ExpirationTime = new(Timestamp)
			return f.messageInto(m.ExpirationTime, "ScheduleCreateTransactionBody.expiration_time")
		case 13:
			v, err := f.varintOf("ScheduleCreateTransactionBody.wait_for_expiry")
			m.WaitForExpiry = v != 0
			return err
		}
		return nil
	})
}

type UtilPrngTransactionBody struct {
	Range int32
}

func (m *UtilPrngTransactionBody) Marshal() []byte {
	return appendInt64(nil, 1, int64(m.Range))
}

func (m *UtilPrngTransactionBody) Unmarshal(b []byte) error {
	*m = UtilPrngTransactionBody{}
	return eachField(b, "UtilPrngTransactionBody", func(f field) error {
		if f.num == 1 {
			v, err := f.varintOf("UtilPrngTransactionBody.range")
			m.Range = int32(v)
			return err
		}
		return nil
	})
}

type rawMessage []byte

func (r rawMessage) Marshal() []byte { return r }
