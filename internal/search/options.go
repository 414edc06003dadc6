package search

import "github.com/ralt/spksearch/internal/config"

// Option configures an Aggregator
type Option func(*options)

type options struct {
	limitOrder    string
	deduplicate   bool
	excluded      []string
	caseSensitive bool
}

// WithLimitOrder selects whether the limit applies before or after the
// keyword filter
func WithLimitOrder(order string) Option {
	return func(o *options) {
		if order != "" {
			o.limitOrder = order
		}
	}
}

// WithDeduplicate enables or disables collapsing duplicate packages
func WithDeduplicate(enabled bool) Option {
	return func(o *options) {
		o.deduplicate = enabled
	}
}

// WithExcluded hides packages with the given ids
func WithExcluded(ids []string) Option {
	return func(o *options) {
		o.excluded = ids
	}
}

// WithCaseSensitive makes keyword matching case sensitive
func WithCaseSensitive(enabled bool) Option {
	return func(o *options) {
		o.caseSensitive = enabled
	}
}

// FromConfig returns the options described by cfg
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithLimitOrder(cfg.Search.LimitOrder),
		WithDeduplicate(cfg.Deduplicate()),
		WithExcluded(cfg.ExcludedServices),
		WithCaseSensitive(cfg.Search.CaseSensitive),
	}
}

func buildOptions(opts []Option) options {
	o := options{
		limitOrder:  config.FilterThenLimit,
		deduplicate: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
