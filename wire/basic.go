package wire

type Timestamp struct {
	Seconds int64
	Nanos   int32
}

func (m *Timestamp) Marshal() []byte {
	var b []byte
	b = appendInt64(b, 1, m.Seconds)
	b = appendInt64(b, 2, int64(m.Nanos))
	return b
}

func (m *Timestamp) Unmarshal(b []byte) error {
	*m = Timestamp{}
	return eachField(b, "Timestamp", func(f field) error {
		switch f.num {
		case 1:
			v, err := f.varintOf("Timestamp.seconds")
			m.Seconds = int64(v)
			return err
		case 2:
			v, err := f.varintOf("Timestamp.nanos")
			m.Nanos = int32(v)
			return err
		}
		return nil
	})
}

type Duration struct {
	Seconds int64
}

func (m *Duration) Marshal() []byte {
	return appendInt64(nil, 1, m.Seconds)
}

func (m *Duration) Unmarshal(b []byte) error {
	*m = Duration{}
	return eachField(b, "Duration", func(f field) error {
		if f.num == 1 {
			v, err := f.varintOf("Duration.seconds")
			m.Seconds = int64(v)
			return err
		}
		return nil
	})
}

// AccountID is shard(1), realm(2) and either accountNum(3) or alias(4).
type AccountID struct {
	Shard int64
	Realm int64
	Num   int64
	Alias []byte
}

func (m *AccountID) Marshal() []byte {
	var b []byte
	b = appendInt64(b, 1, m.Shard)
	b = appendInt64(b, 2, m.Realm)
	if len(m.Alias) > 0 {
		return appendBytes(b, 4, m.Alias)
	}
	return appendInt64(b, 3, m.Num)
}

func (m *AccountID) Unmarshal(b []byte) error {
	*m = AccountID{}
	return eachField(b, "AccountID", func(f field) error {
		var err error
		var v uint64
		switch f.num {
		case 1:
			v, err = f.varintOf("AccountID.shardNum")
			m.Shard = int64(v)
		case 2:
			v, err = f.varintOf("AccountID.realmNum")
			m.Realm = int64(v)
		case 3:
			v, err = f.varintOf("AccountID.accountNum")
			m.Num = int64(v)
		case 4:
			m.Alias, err = f.bytesOf("AccountID.alias")
		}
		return err
	})
}

// EntityID covers TopicID, FileID, TokenID and ScheduleID, which share the
// shard(1), realm(2), num(3) layout.
type EntityID struct {
	Shard int64
	Realm int64
	Num   int64
}

func (m *EntityID) Marshal() []byte {
	var b []byte
	b = appendInt64(b, 1, m.Shard)
	b = appendInt64(b, 2, m.Realm)
	b = appendInt64(b, 3, m.Num)
	return b
}

func (m *EntityID) Unmarshal(b []byte) error {
	*m = EntityID{}
	return eachField(b, "EntityID", func(f field) error {
		var err error
		var v uint64
		switch f.num {
		case 1:
			v, err = f.varintOf("EntityID.shard")
			m.Shard = int64(v)
		case 2:
			v, err = f.varintOf("EntityID.realm")
			m.Realm = int64(v)
		case 3:
			v, err = f.varintOf("EntityID.num")
			m.Num = int64(v)
		}
		return err
	})
}

type TransactionID struct {
	ValidStart *Timestamp
	AccountID  *AccountID
	Scheduled  bool
	Nonce      int32
}

func (m *TransactionID) Marshal() []byte {
	var b []byte
	if m.ValidStart != nil {
		b = appendMessage(b, 1, m.ValidStart)
	}
	if m.AccountID != nil {
		b = appendMessage(b, 2, m.AccountID)
	}
	b = appendBool(b, 3, m.Scheduled)
	b = appendInt64(b, 4, int64(m.Nonce))
	return b
}

func (m *TransactionID) Unmarshal(b []byte) error {
	*m = TransactionID{}
	return eachField(b, "TransactionID", func(f field) error {
		switch f.num {
		case 1:
			m.ValidStart = new(Timestamp)
			return f.messageInto(m.ValidStart, "TransactionID.transactionValidStart")
		case 2:
			m.AccountID = new(AccountID)
			return f.messageInto(m.AccountID, "TransactionID.accountID")
		case 3:
			v, err := f.varintOf("TransactionID.scheduled")
			m.Scheduled = v != 0
			return err
		case 4:
			v, err := f.varintOf("TransactionID.nonce")
			m.Nonce = int32(v)
			return err
		}
		return nil
	})
}
