package flatarc

type options struct {
	logger *Logger
}

// Option configures archive construction and opening.
type Option func(*options)

// WithLogger sets the logger used for archive lifecycle events.
// Defaults to a no-op logger.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger: NoopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
