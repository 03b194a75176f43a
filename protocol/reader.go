package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// MaxBlobLen is the largest payload the 3-byte long-form length can describe.
	MaxBlobLen = 1<<24 - 1

	shortLenLimit  = 254
	longLenMarker  = 254
	shortHeaderLen = 1
	longHeaderLen  = 4

	// blobChunk is the largest blob allocated up front from its declared length.
	blobChunk = 64 << 10
)

// Reader decodes TL primitives from an underlying stream.
// A Reader is not safe for concurrent use; each decode call owns its own.
type Reader struct {
	r       io.Reader
	offset  int64
	alloc   Allocator
	maxBlob int
	scratch [8]byte
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithAllocator makes the Reader obtain blob buffers from a.
func WithAllocator(a Allocator) ReaderOption {
	return func(r *Reader) {
		if a != nil {
			r.alloc = a
		}
	}
}

// WithMaxBlobLen rejects byte strings longer than n before allocating them.
// Zero keeps the format limit (MaxBlobLen).
func WithMaxBlobLen(n int) ReaderOption {
	return func(r *Reader) {
		r.maxBlob = n
	}
}

// NewReader wraps r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{r: r, alloc: HeapAllocator{}}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// NewBytesReader is a convenience for decoding an in-memory message.
func NewBytesReader(b []byte, opts ...ReaderOption) *Reader {
	return NewReader(bytes.NewReader(b), opts...)
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Allocator returns the allocator used for blob buffers.
func (r *Reader) Allocator() Allocator {
	return r.alloc
}

// MaxBlobLen returns the configured blob limit, zero meaning the format limit.
func (r *Reader) MaxBlobLen() int {
	return r.maxBlob
}

func (r *Reader) read(buf []byte) error {
	n, err := io.ReadFull(r.r, buf)
	r.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: wanted %d bytes at offset %d", ErrTruncated, len(buf), r.offset)
		}
		return err
	}
	return nil
}

// ReadUint32 reads a 4-byte little-endian value.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.read(r.scratch[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.scratch[:4]), nil
}

// ReadInt32 reads a TL int.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadInt64 reads a TL long.
func (r *Reader) ReadInt64() (int64, error) {
	if err := r.read(r.scratch[:8]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(r.scratch[:8])), nil
}

// ReadDouble reads a TL double (IEEE 754, little-endian).
func (r *Reader) ReadDouble() (float64, error) {
	if err := r.read(r.scratch[:8]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(r.scratch[:8])), nil
}

// Drained reports whether the stream is exhausted. It consumes a byte when it is not,
// so it is only meaningful as a final check.
func (r *Reader) Drained() bool {
	n, _ := io.ReadFull(r.r, r.scratch[:1])
	r.offset += int64(n)
	return n == 0
}

// ReadRaw reads exactly n unframed bytes.
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: raw length %d", ErrInvalidLength, n)
	}
	buf := make([]byte, n)
	if err := r.read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadBytes reads a framed byte string. The returned buffer comes from the
// Reader's allocator and belongs to the caller.
func (r *Reader) ReadBytes() ([]byte, error) {
	if err := r.read(r.scratch[:1]); err != nil {
		return nil, err
	}

	var n, header int
	switch first := r.scratch[0]; {
	case first < shortLenLimit:
		n, header = int(first), shortHeaderLen
	case first == longLenMarker:
		if err := r.read(r.scratch[:3]); err != nil {
			return nil, err
		}
		n = int(r.scratch[0]) | int(r.scratch[1])<<8 | int(r.scratch[2])<<16
		header = longHeaderLen
	default:
		return nil, fmt.Errorf("%w: length marker %d", ErrInvalidLength, first)
	}

	if r.maxBlob > 0 && n > r.maxBlob {
		return nil, fmt.Errorf("%w: %d > %d", ErrBlobTooLarge, n, r.maxBlob)
	}

	buf, err := r.readBlob(n)
	if err != nil {
		return nil, err
	}
	if pad := padding(header + n); pad > 0 {
		if err := r.read(r.scratch[:pad]); err != nil {
			r.alloc.Release(buf)
			return nil, err
		}
	}
	return buf, nil
}

// readBlob reads an n-byte payload. Payloads above blobChunk grow with the bytes that
// actually arrive, so a truncated stream cannot force an allocation of its declared size.
func (r *Reader) readBlob(n int) ([]byte, error) {
	if n <= blobChunk {
		buf := r.alloc.Allocate(n)
		if err := r.read(buf); err != nil {
			r.alloc.Release(buf)
			return nil, err
		}
		return buf, nil
	}

	var acc bytes.Buffer
	got, err := io.CopyN(&acc, r.r, int64(n))
	r.offset += got
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: wanted %d bytes at offset %d", ErrTruncated, n, r.offset)
		}
		return nil, err
	}
	if _, heap := r.alloc.(HeapAllocator); heap {
		return acc.Bytes(), nil
	}
	buf := r.alloc.Allocate(n)
	copy(buf, acc.Bytes())
	return buf, nil
}

// ReadString reads a framed byte string as text. Bytes are taken as-is.
func (r *Reader) ReadString() (string, error) {
	buf, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	s := string(buf)
	r.alloc.Release(buf)
	return s, nil
}

func padding(n int) int {
	return (4 - n%4) % 4
}
