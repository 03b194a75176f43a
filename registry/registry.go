// Package registry maps TL type identifiers to entity factories and drives decoding.
//
// A Registry holds two mappings:
//
//	primary:  current constructors, decoded as-is
//	compat:   superseded constructors, decoded then passed through the Converter
//
// Registration happens once at startup. After that a Registry is read-only and may be
// shared by any number of concurrent decode calls; per-call state (nesting depth)
// lives in the call, never in the Registry.
package registry

import (
	"slices"

	"go.uber.org/zap"

	"mini-tl/compress"
	"mini-tl/message"
	"mini-tl/metrics"
	"mini-tl/protocol"
)

// Factory returns a fresh, empty entity ready for DeserializeBody.
type Factory func() message.Entity

// Converter normalizes an entity decoded through the compatibility mapping into its
// current representation.
type Converter func(message.Entity) message.Entity

// Registry is the identifier → factory table plus the decode configuration.
type Registry struct {
	primary  map[message.TypeID]Factory
	compat   map[message.TypeID]Factory
	convert  Converter
	limits   Limits
	unpacker compress.Decompressor
	alloc    protocol.Allocator
	logger   *zap.Logger
	recorder metrics.Recorder
}

// Option configures a Registry.
type Option func(*Registry)

// WithLimits replaces DefaultLimits.
func WithLimits(l Limits) Option {
	return func(reg *Registry) { reg.limits = l }
}

// WithDecompressor replaces the gzip stage used for envelopes.
func WithDecompressor(d compress.Decompressor) Option {
	return func(reg *Registry) { reg.unpacker = d }
}

// WithAllocator sets the allocator used for byte strings of every decode call.
func WithAllocator(a protocol.Allocator) Option {
	return func(reg *Registry) {
		if a != nil {
			reg.alloc = a
		}
	}
}

// WithConverter installs the compatibility normalization hook. Nil keeps the identity.
func WithConverter(c Converter) Option {
	return func(reg *Registry) {
		if c != nil {
			reg.convert = c
		}
	}
}

// WithLogger routes registry diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(reg *Registry) {
		if l != nil {
			reg.logger = l
		}
	}
}

// WithRecorder reports decode outcomes to rec.
func WithRecorder(rec metrics.Recorder) Option {
	return func(reg *Registry) {
		if rec != nil {
			reg.recorder = rec
		}
	}
}

// New returns an empty Registry. Boolean constructors, vectors and gzip envelopes
// are understood without registration.
func New(opts ...Option) *Registry {
	reg := &Registry{
		primary:  make(map[message.TypeID]Factory),
		compat:   make(map[message.TypeID]Factory),
		convert:  identity,
		limits:   DefaultLimits(),
		alloc:    protocol.HeapAllocator{},
		logger:   zap.NewNop(),
		recorder: metrics.Noop{},
	}
	for _, opt := range opts {
		opt(reg)
	}
	if reg.unpacker == nil {
		reg.unpacker = compress.NewGzip(compress.WithLimit(reg.limits.MaxUnpackedLen))
	}
	return reg
}

func identity(e message.Entity) message.Entity { return e }

// Register maps id to f as a current constructor. An existing entry for id in either
// mapping is replaced.
func (reg *Registry) Register(id message.TypeID, f Factory) {
	if _, ok := reg.compat[id]; ok {
		reg.logger.Debug("registry: compat entry replaced by primary", zap.Stringer("id", id))
		delete(reg.compat, id)
	}
	reg.primary[id] = f
}

// RegisterCompat maps id to f as a superseded constructor. An existing entry for id in
// either mapping is replaced.
func (reg *Registry) RegisterCompat(id message.TypeID, f Factory) {
	if _, ok := reg.primary[id]; ok {
		reg.logger.Debug("registry: primary entry replaced by compat", zap.Stringer("id", id))
		delete(reg.primary, id)
	}
	reg.compat[id] = f
}

// RegisterEntity registers f under the identifier its entities report.
func (reg *Registry) RegisterEntity(f Factory) {
	reg.Register(f().TypeID(), f)
}

// RegisterCompatEntity is RegisterEntity for the compatibility mapping.
func (reg *Registry) RegisterCompatEntity(f Factory) {
	reg.RegisterCompat(f().TypeID(), f)
}

// IsSupported reports whether id is a current constructor. Compatibility entries are
// deliberately excluded.
func (reg *Registry) IsSupported(id message.TypeID) bool {
	_, ok := reg.primary[id]
	return ok
}

// IsSupportedEntity is IsSupported for e's identifier.
func (reg *Registry) IsSupportedEntity(e message.Entity) bool {
	return reg.IsSupported(e.TypeID())
}

// IDs returns the current constructors in ascending order.
func (reg *Registry) IDs() []message.TypeID {
	ids := make([]message.TypeID, 0, len(reg.primary))
	for id := range reg.primary {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Convert applies the compatibility hook.
func (reg *Registry) Convert(e message.Entity) message.Entity {
	return reg.convert(e)
}

// Limits returns the decode limits in effect.
func (reg *Registry) Limits() Limits {
	return reg.limits
}

// NewReader wraps data with the registry's allocator and blob limit.
func (reg *Registry) NewReader(data []byte) *protocol.Reader {
	return protocol.NewBytesReader(data,
		protocol.WithAllocator(reg.alloc),
		protocol.WithMaxBlobLen(reg.limits.MaxBlobLen),
	)
}

// MaxVectorLen implements message.Decoder.
func (reg *Registry) MaxVectorLen() int {
	return reg.limits.MaxVectorLen
}

func (reg *Registry) lookup(id message.TypeID) (f Factory, compat, ok bool) {
	if f, ok := reg.compat[id]; ok {
		return f, true, true
	}
	f, ok = reg.primary[id]
	return f, false, ok
}
