package gocfb

import (
	"runtime"

	"go.uber.org/zap"
)

type options struct {
	logger      *zap.Logger
	cacheSize   int
	concurrency int
}

func defaultOptions() options {
	return options{
		logger:      zap.NewNop(),
		concurrency: runtime.GOMAXPROCS(0),
	}
}

// Option configures a Container.
type Option func(*options)

// WithLogger sets the logger used while parsing and resolving. By default nothing is logged.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCache keeps up to entries resolved streams in memory, so that opening the same stream
// again does not read the source again. 0 disables the cache, which is the default.
func WithCache(entries int) Option {
	return func(o *options) {
		o.cacheSize = entries
	}
}

// WithConcurrency limits how many streams ResolveAll resolves at the same time.
// Defaults to GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}
