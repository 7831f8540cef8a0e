package engine

import (
	"log/slog"

	"golang.org/x/text/language"
)

// DefaultCacheSize is the number of results an Engine memoizes by default.
const DefaultCacheSize = 128

// Option configures an Engine or a standalone pipeline call.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	locale    language.Tag
	cacheSize int
}

func defaultOptions() options {
	return options{
		logger:    slog.Default(),
		locale:    language.English,
		cacheSize: DefaultCacheSize,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for cache and run diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLocale sets the collation locale for string sorting.
func WithLocale(tag language.Tag) Option {
	return func(o *options) {
		o.locale = tag
	}
}

// WithCacheSize bounds the memo cache. A size of zero or less disables caching.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}
