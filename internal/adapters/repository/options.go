package repository

// Option applies a configuration option to a RunStore implementation.
type Option func(*storeOptions)

type storeOptions struct {
	maxRuns int
}

// WithMaxRuns bounds how many runs are retained; the oldest are pruned
// first. Zero or negative keeps everything.
func WithMaxRuns(n int) Option {
	return func(o *storeOptions) {
		o.maxRuns = n
	}
}

func applyOptions(opts []Option) storeOptions {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
