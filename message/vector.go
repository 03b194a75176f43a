package message

import (
	"fmt"

	"mini-tl/protocol"
)

// VectorID is shared by every vector regardless of element kind.
const VectorID TypeID = 0x1cb5c415

// preallocCap caps up-front allocation so a hostile count cannot reserve memory
// before its elements have actually been read.
const preallocCap = 1024

// ElementCodec is the per-element rule of a vector. The element kind belongs to the
// decoder instance, not to the wire bytes.
type ElementCodec[T any] interface {
	Name() string
	Read(r *protocol.Reader, d Decoder) (T, error)
	Write(w *protocol.Writer, v T) error
}

type objectElements struct{}

func (objectElements) Name() string { return "object" }

func (objectElements) Read(r *protocol.Reader, d Decoder) (Entity, error) {
	if d == nil {
		return nil, ErrNoDecoder
	}
	return d.Dispatch(r)
}

func (objectElements) Write(w *protocol.Writer, v Entity) error { return Write(w, v) }

type intElements struct{}

func (intElements) Name() string                                      { return "int" }
func (intElements) Read(r *protocol.Reader, _ Decoder) (int32, error) { return r.ReadInt32() }
func (intElements) Write(w *protocol.Writer, v int32) error           { return w.WriteInt32(v) }

type longElements struct{}

func (longElements) Name() string                                      { return "long" }
func (longElements) Read(r *protocol.Reader, _ Decoder) (int64, error) { return r.ReadInt64() }
func (longElements) Write(w *protocol.Writer, v int64) error           { return w.WriteInt64(v) }

type stringElements struct{}

func (stringElements) Name() string                                       { return "string" }
func (stringElements) Read(r *protocol.Reader, _ Decoder) (string, error) { return r.ReadString() }
func (stringElements) Write(w *protocol.Writer, v string) error           { return w.WriteString(v) }

// Vector is a length-prefixed homogeneous sequence.
type Vector[T any] struct {
	items []T
	elems ElementCodec[T]
}

type (
	ObjectVector = Vector[Entity]
	IntVector    = Vector[int32]
	LongVector   = Vector[int64]
	StringVector = Vector[string]
)

// NewVector builds a vector around a custom element rule.
func NewVector[T any](elems ElementCodec[T], items ...T) *Vector[T] {
	return &Vector[T]{items: items, elems: elems}
}

func NewObjectVector(items ...Entity) *ObjectVector { return NewVector[Entity](objectElements{}, items...) }
func NewIntVector(items ...int32) *IntVector        { return NewVector[int32](intElements{}, items...) }
func NewLongVector(items ...int64) *LongVector      { return NewVector[int64](longElements{}, items...) }
func NewStringVector(items ...string) *StringVector { return NewVector[string](stringElements{}, items...) }

func (*Vector[T]) TypeID() TypeID { return VectorID }

// Len returns the number of elements.
func (v *Vector[T]) Len() int { return len(v.items) }

// Items returns the elements in wire order.
func (v *Vector[T]) Items() []T { return v.items }

// At returns element i.
func (v *Vector[T]) At(i int) T { return v.items[i] }

// Append adds elements at the end.
func (v *Vector[T]) Append(items ...T) { v.items = append(v.items, items...) }

func (v *Vector[T]) SerializeBody(w *protocol.Writer) error {
	if err := w.WriteInt32(int32(len(v.items))); err != nil {
		return err
	}
	for i, item := range v.items {
		if err := v.elems.Write(w, item); err != nil {
			return fmt.Errorf("vector<%s> element %d: %w", v.elems.Name(), i, err)
		}
	}
	return nil
}

func (v *Vector[T]) DeserializeBody(r *protocol.Reader, d Decoder) error {
	n, err := r.ReadInt32()
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeLength, n)
	}
	if d != nil {
		if limit := d.MaxVectorLen(); limit > 0 && int(n) > limit {
			return fmt.Errorf("%w: %d > %d", ErrVectorTooLong, n, limit)
		}
	}

	items := make([]T, 0, min(int(n), preallocCap))
	for i := 0; i < int(n); i++ {
		item, err := v.elems.Read(r, d)
		if err != nil {
			return fmt.Errorf("vector<%s> element %d: %w", v.elems.Name(), i, err)
		}
		items = append(items, item)
	}
	v.items = items
	return nil
}

func (v *Vector[T]) String() string {
	return fmt.Sprintf("vector<%s>#1cb5c415[%d]", v.elems.Name(), len(v.items))
}
