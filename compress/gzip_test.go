package compress

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-tl/message"
)

func TestGzipRoundTrip(t *testing.T) {
	g := NewGzip()
	in := bytes.Repeat([]byte("tl-payload "), 200)

	packed, err := g.Compress(in)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(in))

	out, err := g.Decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestGzipCorrupt(t *testing.T) {
	_, err := NewGzip().Decompress([]byte("definitely not gzip"))
	assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
}

func TestGzipLimit(t *testing.T) {
	packed, err := NewGzip().Compress(make([]byte, 4096))
	require.NoError(t, err)

	_, err = NewGzip(WithLimit(1024)).Decompress(packed)
	assert.True(t, errors.Is(err, ErrTooLarge), "got %v", err)

	out, err := NewGzip(WithLimit(4096)).Decompress(packed)
	require.NoError(t, err)
	assert.Len(t, out, 4096)
}

func TestPack(t *testing.T) {
	v := message.NewStringVector(strings.Repeat("a", 100), strings.Repeat("b", 100))
	env, err := Pack(v, NewGzip(WithLevel(9)))
	require.NoError(t, err)

	plain, err := message.Serialize(v)
	require.NoError(t, err)
	unpacked, err := NewGzip().Decompress(env.PackedData)
	require.NoError(t, err)
	assert.Equal(t, plain, unpacked)
}

func TestPackIfSmaller(t *testing.T) {
	g := NewGzip()

	small, err := PackIfSmaller(message.True, g)
	require.NoError(t, err)
	assert.Equal(t, message.True, small)

	big := message.NewStringVector(strings.Repeat("z", 4000))
	packed, err := PackIfSmaller(big, g)
	require.NoError(t, err)
	assert.IsType(t, &message.GzipPacked{}, packed)
}

func TestFramedLen(t *testing.T) {
	assert.Equal(t, 4, framedLen(0))
	assert.Equal(t, 256, framedLen(253))
	assert.Equal(t, 260, framedLen(254))
}
