// Package wire encodes and decodes the ledger's protobuf messages by hand with
// protowire, so the module needs no generated code.
//
// Only the messages and fields the engine reads or writes are modelled.
// Unknown fields are skipped on decode.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"xdao.co/ledgertx/model"
)

// Message is implemented by every type in this package that travels on its own
// over a channel.
type Message interface {
	Marshal() []byte
	Unmarshal([]byte) error
}

type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func decodeError(msg string, cause error) error {
	return model.WrapError(model.KindDecode, "wire: "+msg, cause)
}

// eachField walks the top-level fields of one message.
func eachField(b []byte, msg string, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return decodeError(msg, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return decodeError(msg, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) want(typ protowire.Type, msg string) error {
	if f.typ != typ {
		return decodeError(msg, fmt.Errorf("field %d has wire type %d, want %d", f.num, f.typ, typ))
	}
	return nil
}

func (f field) varintOf(msg string) (uint64, error) {
	if err := f.want(protowire.VarintType, msg); err != nil {
		return 0, err
	}
	return f.varint, nil
}

func (f field) bytesOf(msg string) ([]byte, error) {
	if err := f.want(protowire.BytesType, msg); err != nil {
		return nil, err
	}
	return append([]byte(nil), f.bytes...), nil
}

func (f field) messageInto(m Message, msg string) error {
	if err := f.want(protowire.BytesType, msg); err != nil {
		return err
	}
	return m.Unmarshal(f.bytes)
}

// Encoding helpers. Scalars follow proto3 rules and are omitted when zero;
// sub-messages are written whenever present.

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	return appendVarint(b, num, uint64(v))
}

func appendSint64(b []byte, num protowire.Number, v int64) []byte {
	return appendVarint(b, num, protowire.EncodeZigZag(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarint(b, num, 1)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, m interface{ Marshal() []byte }) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.Marshal())
}
