package codec

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-tl/compress"
	"mini-tl/message"
	"mini-tl/service"
)

func TestGetCodec(t *testing.T) {
	assert.Equal(t, CodecTypeJSON, GetCodec(CodecTypeJSON, nil).Type())
	assert.Equal(t, CodecTypeTL, GetCodec(CodecTypeTL, service.NewRegistry()).Type())
	assert.Equal(t, CodecTypeTL, GetCodec(CodecTypeTL, nil).Type())
}

func TestTLCodec(t *testing.T) {
	tl := NewTLCodec(service.NewRegistry())

	original := &service.Pong{MsgID: 10, PingID: 20}
	data, err := tl.Encode(original)
	require.NoError(t, err)

	var decoded message.Entity
	require.NoError(t, tl.Decode(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestTLCodecRejectsNonEntities(t *testing.T) {
	tl := NewTLCodec(nil)

	_, err := tl.Encode(struct{}{})
	assert.True(t, errors.Is(err, ErrNotEntity))

	var wrong service.Pong
	err = tl.Decode([]byte{0xb5, 0x75, 0x72, 0x99}, &wrong)
	assert.True(t, errors.Is(err, ErrNotEntity))
}

func TestTLCodecUnknownType(t *testing.T) {
	tl := NewTLCodec(nil)
	var decoded message.Entity
	err := tl.Decode([]byte{0xec, 0x77, 0xbe, 0x7a, 1, 0, 0, 0, 0, 0, 0, 0}, &decoded)
	assert.Error(t, err)
	assert.Nil(t, decoded)
}

func TestJSONCodecEntity(t *testing.T) {
	jc := &JSONCodec{}
	data, err := jc.Encode(&service.RpcError{Code: 400, Message: "PEER_ID_INVALID"})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, jc.Decode(data, &got))
	assert.Equal(t, "#2144ca19", got[TypeField])
	assert.Equal(t, 400.0, got["Code"])
	assert.Equal(t, "PEER_ID_INVALID", got["Message"])
}

func TestJSONCodecContainers(t *testing.T) {
	jc := &JSONCodec{}

	data, err := jc.Encode(message.NewObjectVector(message.True, &service.Pong{PingID: 1}))
	require.NoError(t, err)
	var objs []any
	require.NoError(t, json.Unmarshal(data, &objs))
	require.Len(t, objs, 2)
	assert.Equal(t, true, objs[0])
	assert.Equal(t, "#347773c5", objs[1].(map[string]any)[TypeField])

	data, err = jc.Encode(message.NewLongVector(1, 2, 3))
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3]`, string(data))

	data, err = jc.Encode(message.NewStringVector())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestJSONCodecEnvelope(t *testing.T) {
	env, err := compress.Pack(message.False, compress.NewGzip())
	require.NoError(t, err)

	data, err := (&JSONCodec{Indent: "  "}).Encode(env)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  ")

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "#3072cfa1", got[TypeField])
	assert.NotEmpty(t, got["PackedData"])
}

func TestJSONCodecPlainValues(t *testing.T) {
	jc := &JSONCodec{}
	data, err := jc.Encode(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}
