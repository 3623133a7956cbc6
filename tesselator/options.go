package tesselator

// Option configures a Tesselator during creation.
//
// Example:
//
//	// Split-precision positions for high zoom levels
//	t := tesselator.New(tesselator.WithFP64(true))
type Option func(*options)

type options struct {
	fp64 bool
}

// WithFP64 selects split-precision output: every coordinate is stored as a
// high float32 followed by its low float32 remainder. The mode is fixed for
// the life of the Tesselator.
func WithFP64(enabled bool) Option {
	return func(o *options) {
		o.fp64 = enabled
	}
}
