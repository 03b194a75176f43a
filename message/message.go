// Package message defines the object model shared by every TL value.
//
// Every value on the wire is a 4-byte type identifier followed by a type-specific body:
//
//	┌───────────────┬──────────────────────┐
//	│ TypeID (LE32) │ body ...             │
//	└───────────────┴──────────────────────┘
//
// An Entity only knows how to encode and decode its body. The identifier is written by
// Write/Serialize and consumed by the dispatcher (package registry) before the body is
// handed to the matching Entity.
package message

import (
	"bytes"
	"fmt"

	"mini-tl/protocol"
)

// TypeID is the 32-bit constructor identifier preceding every encoded value.
type TypeID uint32

func (id TypeID) String() string {
	return fmt.Sprintf("#%08x", uint32(id))
}

// Entity is any value that can be carried by the wire format.
//
//   - TypeID reports the entity's own constructor id, never a supertype's.
//   - SerializeBody writes everything after the id.
//   - DeserializeBody reads everything after the id; nested values are resolved through d.
type Entity interface {
	TypeID() TypeID
	SerializeBody(w *protocol.Writer) error
	DeserializeBody(r *protocol.Reader, d Decoder) error
}

// Decoder is what entity bodies see of the dispatcher during a decode call.
type Decoder interface {
	// Dispatch reads an identifier from r and decodes the value it names.
	Dispatch(r *protocol.Reader) (Entity, error)
	// NewReader wraps data with the decode call's allocator and blob limit.
	NewReader(data []byte) *protocol.Reader
	// MaxVectorLen bounds element counts; zero means unbounded.
	MaxVectorLen() int
}

// Method is an RPC request. Its response is a different entity, decoded with the
// rule declared by the method rather than by a shared identifier.
type Method interface {
	Entity
	DeserializeResponse(r *protocol.Reader, d Decoder) (Entity, error)
}

// DecodeResponse decodes an in-memory response to m.
func DecodeResponse(m Method, data []byte, d Decoder) (Entity, error) {
	return m.DeserializeResponse(d.NewReader(data), d)
}

// Write encodes e with its leading identifier.
func Write(w *protocol.Writer, e Entity) error {
	if e == nil {
		return ErrNilEntity
	}
	if err := w.WriteUint32(uint32(e.TypeID())); err != nil {
		return err
	}
	return e.SerializeBody(w)
}

// Serialize returns the full wire encoding of e.
func Serialize(e Entity) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(protocol.NewWriter(&buf), e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
