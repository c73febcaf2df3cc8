package graphgrove

import (
	"log/slog"
	"runtime"
)

type options struct {
	base             float64
	truncateLevel    int
	hasTruncateLevel bool
	cores            int
	compress         bool
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Tree constructor behavior.
type Option func(*options)

// WithBase sets the cover tree's base (default 1.3). base must be > 1.
func WithBase(base float64) Option {
	return func(o *options) {
		o.base = base
	}
}

// WithTruncateLevel bounds how far the tree may descend below the root's
// level. When set, a node whose level would be more than truncateLevel
// below the current root level is not created as a separate level — see
// DESIGN.md for the exact overshoot-tolerance behavior.
func WithTruncateLevel(level int) Option {
	return func(o *options) {
		o.truncateLevel = level
		o.hasTruncateLevel = true
	}
}

// WithCores sets the number of worker goroutines used by bulk
// construction (NewFromMatrix). If unset, runtime.NumCPU() is used.
func WithCores(cores int) Option {
	return func(o *options) {
		o.cores = cores
	}
}

// WithCompression enables zstd framing of the flat buffer produced by
// Serialize (and expected by Deserialize).
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compress = enabled
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// insert/query/serialize operations. Pass nil to disable metrics.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations. Pass nil to
// disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		base:             1.3,
		cores:            runtime.NumCPU(),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
