// Package compress supplies the decompression stage of the dispatcher and the
// helpers that build compressed envelopes.
package compress

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"mini-tl/message"
)

var (
	ErrCorrupt  = errors.New("compress: corrupt payload")
	ErrTooLarge = errors.New("compress: unpacked payload too large")
)

// Decompressor turns an envelope payload back into a serialized message.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Compressor produces envelope payloads.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Gzip implements both directions with the standard gzip stream format.
type Gzip struct {
	level int
	limit int64
}

// GzipOption configures a Gzip.
type GzipOption func(*Gzip)

// WithLevel sets the compression level (gzip.BestSpeed .. gzip.BestCompression).
func WithLevel(level int) GzipOption {
	return func(g *Gzip) { g.level = level }
}

// WithLimit caps the number of bytes Decompress will produce. Zero disables the cap.
func WithLimit(n int64) GzipOption {
	return func(g *Gzip) { g.limit = n }
}

// NewGzip returns a Gzip using the default compression level and no size cap.
func NewGzip(opts ...GzipOption) *Gzip {
	g := &Gzip{level: gzip.DefaultCompression}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gzip) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, g.level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Gzip) Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()

	var src io.Reader = zr
	if g.limit > 0 {
		src = io.LimitReader(zr, g.limit+1)
	}
	out, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if g.limit > 0 && int64(len(out)) > g.limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, g.limit)
	}
	return out, nil
}

// Pack serializes e and wraps the compressed bytes in an envelope.
func Pack(e message.Entity, c Compressor) (*message.GzipPacked, error) {
	data, err := message.Serialize(e)
	if err != nil {
		return nil, err
	}
	packed, err := c.Compress(data)
	if err != nil {
		return nil, err
	}
	return &message.GzipPacked{PackedData: packed}, nil
}

// PackIfSmaller returns an envelope around e only when that is shorter on the wire
// than e itself; otherwise it returns e unchanged.
func PackIfSmaller(e message.Entity, c Compressor) (message.Entity, error) {
	plain, err := message.Serialize(e)
	if err != nil {
		return nil, err
	}
	packed, err := c.Compress(plain)
	if err != nil {
		return nil, err
	}
	env := &message.GzipPacked{PackedData: packed}
	// id + framed blob
	if 4+framedLen(len(packed)) >= len(plain) {
		return e, nil
	}
	return env, nil
}

func framedLen(n int) int {
	header := 1
	if n >= 254 {
		header = 4
	}
	return (header + n + 3) &^ 3
}
