package wire

// Query and Response model only the transactionGetReceipt arm (field 14),
// which is free and needs no payment transaction.

const fieldTransactionGetReceipt = 14

type Query struct {
	// TransactionID is the transaction whose receipt is requested.
	TransactionID     *TransactionID
	IncludeDuplicates bool
}

func (m *Query) Marshal() []byte {
	var inner []byte
	inner = appendMessage(inner, 1, rawMessage(nil)) // empty QueryHeader, ANSWER_ONLY
	if m.TransactionID != nil {
		inner = appendMessage(inner, 2, m.TransactionID)
	}
	inner = appendBool(inner, 3, m.IncludeDuplicates)
	return appendMessage(nil, fieldTransactionGetReceipt, rawMessage(inner))
}

func (m *Query) Unmarshal(b []byte) error {
	*m = Query{}
	return eachField(b, "Query", func(f field) error {
		if f.num != fieldTransactionGetReceipt {
			return nil
		}
		inner, err := f.bytesOf("Query.transactionGetReceipt")
		if err != nil {
			return err
		}
		return eachField(inner, "TransactionGetReceiptQuery", func(g field) error {
			switch g.num {
			case 2:
				m.TransactionID = new(TransactionID)
				return g.messageInto(m.TransactionID, "TransactionGetReceiptQuery.transactionID")
			case 3:
				v, err := g.varintOf("TransactionGetReceiptQuery.includeDuplicates")
				m.IncludeDuplicates = v != 0
				return err
			}
			return nil
		})
	})
}

type TransactionReceipt struct {
	Status              int32
	FileID              *EntityID
	TopicID             *EntityID
	TopicSequenceNumber uint64
	TopicRunningHash    []byte
	ScheduleID          *EntityID
}

func (m *TransactionReceipt) Marshal() []byte {
	b := appendInt64(nil, 1, int64(m.Status))
	if m.FileID != nil {
		b = appendMessage(b, 3, m.FileID)
	}
	if m.TopicID != nil {
		b = appendMessage(b, 6, m.TopicID)
	}
	b = appendVarint(b, 7, m.TopicSequenceNumber)
	b = appendBytes(b, 8, m.TopicRunningHash)
	if m.ScheduleID != nil {
		b = appendMessage(b, 12, m.ScheduleID)
	}
	return b
}

func (m *TransactionReceipt) Unmarshal(b []byte) error {
	*m = TransactionReceipt{}
	return eachField(b, "TransactionReceipt", func(f field) error {
		var err error
		switch f.num {
		case 1:
			var v uint64
			v, err = f.varintOf("TransactionReceipt.status")
			m.Status = int32(v)
		case 3:
			m.FileID = new(EntityID)
			err = f.messageInto(m.FileID, "TransactionReceipt.fileID")
		case 6:
			m.TopicID = new(EntityID)
			err = f.messageInto(m.TopicID, "TransactionReceipt.topicID")
		case 7:
			m.TopicSequenceNumber, err = f.varintOf("TransactionReceipt.topicSequenceNumber")
		case 8:
			m.TopicRunningHash, err = f.bytesOf("TransactionReceipt.topicRunningHash")
		case 12:
			m.ScheduleID = new(EntityID)
			err = f.messageInto(m.ScheduleID, "TransactionReceipt.scheduleID")
		}
		return err
	})
}

type Response struct {
	PrecheckCode int32
	Cost         uint64
	Receipt      *TransactionReceipt
}

func (m *Response) Marshal() []byte {
	header := appendInt64(nil, 1, int64(m.PrecheckCode))
	header = appendVarint(header, 3, m.Cost)

	inner := appendMessage(nil, 1, rawMessage(header))
	if m.Receipt != nil {
		inner = appendMessage(inner, 2, m.Receipt)
	}
	return appendMessage(nil, fieldTransactionGetReceipt, rawMessage(inner))
}

func (m *Response) Unmarshal(b []byte) error {
	*m = Response{}
	return eachField(b, "Response", func(f field) error {
		if f.num != fieldTransactionGetReceipt {
			return nil
		}
		inner, err := f.bytesOf("Response.transactionGetReceipt")
		if err != nil {
			return err
		}
		return eachField(inner, "TransactionGetReceiptResponse", func(g field) error {
			switch g.num {
			case 1:
				header, err := g.bytesOf("TransactionGetReceiptResponse.header")
				if err != nil {
					return err
				}
				return eachField(header, "ResponseHeader", func(h field) error {
					switch h.num {
					case 1:
						v, err := h.varintOf("ResponseHeader.nodeTransactionPrecheckCode")
						m.PrecheckCode = int32(v)
						return err
					case 3:
						v, err := h.varintOf("ResponseHeader.cost")
						m.Cost = v
						return err
					}
					return nil
				})
			case 2:
				m.Receipt = new(TransactionReceipt)
				return g.messageInto(m.Receipt, "TransactionGetReceiptResponse.receipt")
			}
			return nil
		})
	})
}
