package registry

// Limits bounds the resources a single top-level decode may use. Zero disables a limit.
type Limits struct {
	// MaxDepth bounds nested dispatches: envelopes, object vectors and any entity field
	// decoded through the dispatcher.
	MaxDepth int
	// MaxVectorLen bounds the declared element count of any vector.
	MaxVectorLen int
	// MaxBlobLen bounds any single byte string.
	MaxBlobLen int
	// MaxUnpackedLen bounds the decompressed size of an envelope payload.
	MaxUnpackedLen int64
}

// DefaultLimits are generous enough for real traffic and small enough to stop
// crafted input from exhausting memory or stack.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:       64,
		MaxVectorLen:   1 << 20,
		MaxBlobLen:     1 << 20,
		MaxUnpackedLen: 32 << 20,
	}
}
