package registry

import (
	"fmt"

	"mini-tl/message"
	"mini-tl/protocol"
)

// DeserializeVector reads a vector of entities, bare or inside gzip envelopes.
func (reg *Registry) DeserializeVector(r *protocol.Reader) (*message.ObjectVector, error) {
	return decodeVector(reg, r, message.NewObjectVector())
}

// DeserializeIntVector reads a vector of TL ints, bare or inside gzip envelopes.
func (reg *Registry) DeserializeIntVector(r *protocol.Reader) (*message.IntVector, error) {
	return decodeVector(reg, r, message.NewIntVector())
}

// DeserializeLongVector reads a vector of TL longs, bare or inside gzip envelopes.
func (reg *Registry) DeserializeLongVector(r *protocol.Reader) (*message.LongVector, error) {
	return decodeVector(reg, r, message.NewLongVector())
}

// DeserializeStringVector reads a vector of TL strings, bare or inside gzip envelopes.
func (reg *Registry) DeserializeStringVector(r *protocol.Reader) (*message.StringVector, error) {
	return decodeVector(reg, r, message.NewStringVector())
}

// decodeVector is the typed counterpart of Dispatch: the element kind comes from the
// caller, since the vector identifier does not carry it.
func decodeVector[T any](reg *Registry, r *protocol.Reader, v *message.Vector[T]) (*message.Vector[T], error) {
	c := &decodeCall{reg: reg}
	if err := readVector(c, r, v); err != nil {
		reg.fail(err)
		return nil, err
	}
	return v, nil
}

func readVector[T any](c *decodeCall, r *protocol.Reader, v *message.Vector[T]) error {
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()

	id, err := r.ReadUint32()
	if err != nil {
		return err
	}
	switch message.TypeID(id) {
	case message.VectorID:
		return v.DeserializeBody(r, c)
	case message.GzipPackedID:
		data, err := c.unpackBytes(r)
		if err != nil {
			return err
		}
		inner := c.reg.NewReader(data)
		if err := readVector(c, inner, v); err != nil {
			return err
		}
		if !inner.Drained() {
			return fmt.Errorf("%w: after %s", ErrTrailingData, message.VectorID)
		}
		return nil
	}
	return fmt.Errorf("%w: got %s", ErrNotVector, message.TypeID(id))
}
