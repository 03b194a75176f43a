package registry

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"mini-tl/compress"
	"mini-tl/message"
	"mini-tl/metrics"
	"mini-tl/protocol"
)

// Dispatch reads an identifier from r and decodes the value it names.
//
// Identifier checks, in order:
//  1. gzip_packed: unpack and dispatch the inner message
//  2. boolTrue / boolFalse: the singleton, no lookup and no further bytes
//  3. compatibility mapping: decode, then Convert
//  4. primary mapping: decode
//  5. vector: a vector of entities, unless vectors were registered explicitly
//  6. otherwise UnsupportedTypeError
//
// Any error aborts the whole call; no partial entity is returned.
func (reg *Registry) Dispatch(r *protocol.Reader) (message.Entity, error) {
	c := &decodeCall{reg: reg}
	e, err := c.Dispatch(r)
	if err != nil {
		reg.fail(err)
		return nil, err
	}
	return e, nil
}

// DispatchID decodes a value whose identifier the caller has already consumed.
func (reg *Registry) DispatchID(id message.TypeID, r *protocol.Reader) (message.Entity, error) {
	c := &decodeCall{reg: reg}
	e, err := c.dispatchID(id, r)
	if err != nil {
		reg.fail(err)
		return nil, err
	}
	return e, nil
}

// DeserializeMessage decodes one complete in-memory message.
func (reg *Registry) DeserializeMessage(data []byte) (message.Entity, error) {
	return reg.Dispatch(reg.NewReader(data))
}

func (reg *Registry) fail(err error) {
	kind := metrics.KindMalformed
	var unsupported UnsupportedTypeError
	var decodeErr DecodeError
	switch {
	case errors.As(err, &unsupported):
		kind = metrics.KindUnsupported
	case errors.As(err, &decodeErr):
		kind = metrics.KindInstantiation
		reg.logger.Warn("registry: decode failed", zap.Stringer("id", decodeErr.ID), zap.Error(err))
	case errors.Is(err, ErrTooDeep),
		errors.Is(err, message.ErrVectorTooLong),
		errors.Is(err, protocol.ErrBlobTooLarge),
		errors.Is(err, compress.ErrTooLarge):
		kind = metrics.KindLimit
	}
	reg.recorder.RecordError(kind)
	reg.logger.Debug("registry: dispatch failed", zap.String("kind", kind), zap.Error(err))
}

// decodeCall is the state of one top-level decode. It implements message.Decoder so
// nested bodies re-enter the dispatcher through it.
type decodeCall struct {
	reg   *Registry
	depth int
}

func (c *decodeCall) Dispatch(r *protocol.Reader) (message.Entity, error) {
	id, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	return c.dispatchID(message.TypeID(id), r)
}

func (c *decodeCall) NewReader(data []byte) *protocol.Reader {
	return c.reg.NewReader(data)
}

func (c *decodeCall) MaxVectorLen() int {
	return c.reg.limits.MaxVectorLen
}

func (c *decodeCall) enter() error {
	if limit := c.reg.limits.MaxDepth; limit > 0 && c.depth >= limit {
		return fmt.Errorf("%w: limit %d", ErrTooDeep, limit)
	}
	c.depth++
	return nil
}

func (c *decodeCall) leave() {
	c.depth--
}

func (c *decodeCall) dispatchID(id message.TypeID, r *protocol.Reader) (message.Entity, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()

	switch id {
	case message.GzipPackedID:
		return c.unpack(r)
	case message.BoolTrueID:
		c.reg.recorder.RecordDecoded(metrics.PathBool)
		return message.True, nil
	case message.BoolFalseID:
		c.reg.recorder.RecordDecoded(metrics.PathBool)
		return message.False, nil
	}

	f, compat, ok := c.reg.lookup(id)
	if !ok && id == message.VectorID {
		return c.objectVector(r)
	}
	if !ok {
		c.reg.logger.Debug("registry: unsupported type", zap.Stringer("id", id))
		return nil, UnsupportedTypeError{ID: id}
	}
	e, err := c.instantiate(id, f, r)
	if err != nil {
		return nil, err
	}
	if compat {
		c.reg.recorder.RecordDecoded(metrics.PathCompat)
		return c.reg.convert(e), nil
	}
	c.reg.recorder.RecordDecoded(metrics.PathPrimary)
	return e, nil
}

func (c *decodeCall) objectVector(r *protocol.Reader) (message.Entity, error) {
	v := message.NewObjectVector()
	if err := v.DeserializeBody(r, c); err != nil {
		return nil, err
	}
	c.reg.recorder.RecordDecoded(metrics.PathVector)
	return v, nil
}

// instantiate builds an entity and decodes its body. Stream and nested decode errors
// pass through unchanged; factory failures become DecodeError.
func (c *decodeCall) instantiate(id message.TypeID, f Factory, r *protocol.Reader) (e message.Entity, err error) {
	defer func() {
		if p := recover(); p != nil {
			e = nil
			err = DecodeError{ID: id, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	e = f()
	if e == nil {
		return nil, DecodeError{ID: id, Err: errors.New("factory returned nil")}
	}
	if err := e.DeserializeBody(r, c); err != nil {
		return nil, err
	}
	return e, nil
}

// unpack decodes an envelope body, decompresses it and dispatches the single message
// it must contain.
func (c *decodeCall) unpack(r *protocol.Reader) (message.Entity, error) {
	data, err := c.unpackBytes(r)
	if err != nil {
		return nil, err
	}
	inner := c.reg.NewReader(data)
	e, err := c.Dispatch(inner)
	if err != nil {
		return nil, err
	}
	if !inner.Drained() {
		return nil, fmt.Errorf("%w: after %s", ErrTrailingData, e.TypeID())
	}
	return e, nil
}

func (c *decodeCall) unpackBytes(r *protocol.Reader) ([]byte, error) {
	env := &message.GzipPacked{}
	if err := env.DeserializeBody(r, c); err != nil {
		return nil, err
	}
	data, err := c.reg.unpacker.Decompress(env.PackedData)
	r.Allocator().Release(env.PackedData)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", message.GzipPackedID, err)
	}
	if limit := c.reg.limits.MaxUnpackedLen; limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("unpack %s: %w: %d > %d", message.GzipPackedID, compress.ErrTooLarge, len(data), limit)
	}
	c.reg.recorder.RecordDecoded(metrics.PathGzip)
	return data, nil
}
