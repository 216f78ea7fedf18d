package nodegrpc

import (
	"fmt"

	"xdao.co/ledgertx/wire"
)

// Codec carries wire messages over gRPC without generated protobuf types.
// It keeps the "proto" content subtype so peers see ordinary protobuf
// framing.
type Codec struct{}

func (Codec) Name() string { return "proto" }

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wire.Message)
	if !ok {
		return nil, fmt.Errorf("nodegrpc: cannot marshal %T", v)
	}
	return m.Marshal(), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wire.Message)
	if !ok {
		return fmt.Errorf("nodegrpc: cannot unmarshal into %T", v)
	}
	return m.Unmarshal(data)
}
