package codec

import (
	"errors"
	"fmt"

	"mini-tl/message"
	"mini-tl/registry"
)

var ErrNotEntity = errors.New("codec: value is not a TL entity")

// TLCodec speaks the binary TL format. Decoding resolves identifiers through a Registry,
// so only types registered there (plus booleans, vectors and envelopes) can be read.
type TLCodec struct {
	reg *registry.Registry
}

func NewTLCodec(reg *registry.Registry) *TLCodec {
	if reg == nil {
		reg = registry.New()
	}
	return &TLCodec{reg: reg}
}

// Encode expects a message.Entity.
func (c *TLCodec) Encode(v any) ([]byte, error) {
	e, ok := v.(message.Entity)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotEntity, v)
	}
	return message.Serialize(e)
}

// Decode expects a *message.Entity to store the decoded value in.
func (c *TLCodec) Decode(data []byte, v any) error {
	dst, ok := v.(*message.Entity)
	if !ok {
		return fmt.Errorf("%w: decode target %T, want *message.Entity", ErrNotEntity, v)
	}
	e, err := c.reg.DeserializeMessage(data)
	if err != nil {
		return err
	}
	*dst = e
	return nil
}

func (c *TLCodec) Type() CodecType {
	return CodecTypeTL
}
