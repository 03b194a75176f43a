package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

var zeroPad [4]byte

// Writer encodes TL primitives onto an underlying stream.
type Writer struct {
	w       io.Writer
	written int64
	scratch [8]byte
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 {
	return w.written
}

func (w *Writer) write(b []byte) error {
	n, err := w.w.Write(b)
	w.written += int64(n)
	return err
}

// WriteUint32 writes a 4-byte little-endian value.
func (w *Writer) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	return w.write(w.scratch[:4])
}

// WriteInt32 writes a TL int.
func (w *Writer) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}

// WriteInt64 writes a TL long.
func (w *Writer) WriteInt64(v int64) error {
	binary.LittleEndian.PutUint64(w.scratch[:8], uint64(v))
	return w.write(w.scratch[:8])
}

// WriteDouble writes a TL double.
func (w *Writer) WriteDouble(v float64) error {
	binary.LittleEndian.PutUint64(w.scratch[:8], math.Float64bits(v))
	return w.write(w.scratch[:8])
}

// WriteRaw writes b without framing.
func (w *Writer) WriteRaw(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return w.write(b)
}

// WriteBytes writes b as a framed, padded byte string.
func (w *Writer) WriteBytes(b []byte) error {
	n := len(b)
	if n > MaxBlobLen {
		return fmt.Errorf("%w: %d > %d", ErrBlobTooLarge, n, MaxBlobLen)
	}

	header := shortHeaderLen
	if n < shortLenLimit {
		w.scratch[0] = byte(n)
	} else {
		header = longHeaderLen
		w.scratch[0] = longLenMarker
		w.scratch[1] = byte(n)
		w.scratch[2] = byte(n >> 8)
		w.scratch[3] = byte(n >> 16)
	}
	if err := w.write(w.scratch[:header]); err != nil {
		return err
	}
	if err := w.WriteRaw(b); err != nil {
		return err
	}
	if pad := padding(header + n); pad > 0 {
		return w.write(zeroPad[:pad])
	}
	return nil
}

// WriteString writes s as a framed byte string.
func (w *Writer) WriteString(s string) error {
	return w.WriteBytes([]byte(s))
}
