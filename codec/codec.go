package codec

import "mini-tl/registry"

type CodecType byte

const (
	CodecTypeJSON CodecType = 0
	CodecTypeTL   CodecType = 1
)

type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType // 0=JSON, 1=TL
}

// GetCodec returns the codec for codecType. reg resolves identifiers for the TL codec
// and is ignored by the JSON one.
func GetCodec(codecType CodecType, reg *registry.Registry) Codec {
	if codecType == CodecTypeJSON {
		return &JSONCodec{}
	}

	return NewTLCodec(reg)
}
