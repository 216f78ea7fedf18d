package wire

import (
	"bytes"

	"google.golang.org/protobuf/encoding/protowire"
)

// SignatureKind is the SignaturePair oneof field number that carries the
// signature bytes.
type SignatureKind protowire.Number

const (
	SignatureEd25519        SignatureKind = 3
	SignatureECDSASecp256k1 SignatureKind = 6
)

type SignaturePair struct {
	PubKeyPrefix []byte
	Kind         SignatureKind
	Signature    []byte
}

func (m *SignaturePair) Marshal() []byte {
	b := appendBytes(nil, 1, m.PubKeyPrefix)
	if m.Kind != 0 {
		b = protowire.AppendTag(b, protowire.Number(m.Kind), protowire.BytesType)
		b = protowire.AppendBytes(b, m.Signature)
	}
	return b
}

func (m *SignaturePair) Unmarshal(b []byte) error {
	*m = SignaturePair{}
	return eachField(b, "SignaturePair", func(f field) error {
		var err error
		switch {
		case f.num == 1:
			m.PubKeyPrefix, err = f.bytesOf("SignaturePair.pubKeyPrefix")
		case f.num >= 2 && f.num <= 6:
			// contract(2), ed25519(3), RSA(4), ECDSA_384(5) and ECDSA_secp256k1(6)
			// are kept verbatim so re-encoding is lossless.
			m.Kind = SignatureKind(f.num)
			m.Signature, err = f.bytesOf("SignaturePair.signature")
		}
		return err
	})
}

type SignatureMap struct {
	SigPairs []SignaturePair
}

func (m *SignatureMap) Marshal() []byte {
	var b []byte
	for i := range m.SigPairs {
		b = appendMessage(b, 1, &m.SigPairs[i])
	}
	return b
}

func (m *SignatureMap) Unmarshal(b []byte) error {
	*m = SignatureMap{}
	return eachField(b, "SignatureMap", func(f field) error {
		if f.num != 1 {
			return nil
		}
		var p SignaturePair
		if err := f.messageInto(&p, "SignatureMap.sigPair"); err != nil {
			return err
		}
		m.SigPairs = append(m.SigPairs, p)
		return nil
	})
}

// Prefixes returns the public key prefixes of every pair, in order.
func (m *SignatureMap) Prefixes() [][]byte {
	if m == nil {
		return nil
	}
	out := make([][]byte, 0, len(m.SigPairs))
	for _, p := range m.SigPairs {
		out = append(out, p.PubKeyPrefix)
	}
	return out
}

// HasPrefixFor reports whether publicKey starts with any recorded prefix.
func (m *SignatureMap) HasPrefixFor(publicKey []byte) bool {
	if m == nil {
		return false
	}
	for _, p := range m.SigPairs {
		if len(p.PubKeyPrefix) > 0 && bytes.HasPrefix(publicKey, p.PubKeyPrefix) {
			return true
		}
	}
	return false
}

type SignedTransaction struct {
	BodyBytes []byte
	SigMap    *SignatureMap
}

func (m *SignedTransaction) Marshal() []byte {
	b := appendBytes(nil, 1, m.BodyBytes)
	if m.SigMap != nil {
		b = appendMessage(b, 2, m.SigMap)
	}
	return b
}

func (m *SignedTransaction) Unmarshal(b []byte) error {
	*m = SignedTransaction{}
	return eachField(b, "SignedTransaction", func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.BodyBytes, err = f.bytesOf("SignedTransaction.bodyBytes")
		case 2:
			m.SigMap = new(SignatureMap)
			err = f.messageInto(m.SigMap, "SignedTransaction.sigMap")
		}
		return err
	})
}

// Transaction is the outer envelope. New envelopes use only
// SignedTransactionBytes; BodyBytes and SigMap are the deprecated direct form
// still accepted on decode.
type Transaction struct {
	SigMap                 *SignatureMap
	BodyBytes              []byte
	SignedTransactionBytes []byte
}

func (m *Transaction) Marshal() []byte {
	var b []byte
	if m.SigMap != nil {
		b = appendMessage(b, 3, m.SigMap)
	}
	b = appendBytes(b, 4, m.BodyBytes)
	b = appendBytes(b, 5, m.SignedTransactionBytes)
	return b
}

func (m *Transaction) Unmarshal(b []byte) error {
	*m = Transaction{}
	return eachField(b, "Transaction", func(f field) error {
		var err error
		switch f.num {
		case 3:
			m.SigMap = new(SignatureMap)
			err = f.messageInto(m.SigMap, "Transaction.sigMap")
		case 4:
			m.BodyBytes, err = f.bytesOf("Transaction.bodyBytes")
		case 5:
			m.SignedTransactionBytes, err = f.bytesOf("Transaction.signedTransactionBytes")
		}
		return err
	})
}

// Signed returns the envelope in its signed-transaction form, decoding the
// nested bytes or lifting the deprecated direct fields.
func (m *Transaction) Signed() (SignedTransaction, error) {
	if len(m.SignedTransactionBytes) > 0 {
		var st SignedTransaction
		if err := st.Unmarshal(m.SignedTransactionBytes); err != nil {
			return SignedTransaction{}, err
		}
		return st, nil
	}
	return SignedTransaction{BodyBytes: m.BodyBytes, SigMap: m.SigMap}, nil
}

// TransactionList is the serialized form of a whole (possibly chunked,
// multi-node) transaction.
type TransactionList struct {
	Transactions []Transaction
}

func (m *TransactionList) Marshal() []byte {
	var b []byte
	for i := range m.Transactions {
		b = appendMessage(b, 1, &m.Transactions[i])
	}
	return b
}

func (m *TransactionList) Unmarshal(b []byte) error {
	*m = TransactionList{}
	return eachField(b, "TransactionList", func(f field) error {
		if f.num != 1 {
			return nil
		}
		var tx Transaction
		if err := f.messageInto(&tx, "TransactionList.transactionList"); err != nil {
			return err
		}
		m.Transactions = append(m.Transactions, tx)
		return nil
	})
}

type TransactionResponse struct {
	NodeTransactionPrecheckCode int32
	Cost                        uint64
}

func (m *TransactionResponse) Marshal() []byte {
	b := appendInt64(nil, 1, int64(m.NodeTransactionPrecheckCode))
	return appendVarint(b, 2, m.Cost)
}

func (m *TransactionResponse) Unmarshal(b []byte) error {
	*m = TransactionResponse{}
	return eachField(b, "TransactionResponse", func(f field) error {
		switch f.num {
		case 1:
			v, err := f.varintOf("TransactionResponse.nodeTransactionPrecheckCode")
			m.NodeTransactionPrecheckCode = int32(v)
			return err
		case 2:
			v, err := f.varintOf("TransactionResponse.cost")
			m.Cost = v
			return err
		}
		return nil
	})
}
