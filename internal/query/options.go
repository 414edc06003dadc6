package query

import "time"

const (
	defaultUserAgent   = "synology_x86_64_DS918+_6.1.3-15152"
	defaultLanguage    = "enu"
	defaultTimezone    = "Brussels"
	defaultUnique      = "synology_spksearch"
	defaultTimeout     = 30 * time.Second
	defaultIconWorkers = 4
)

// Option configures an Engine
type Option func(*options)

type options struct {
	userAgent   string
	language    string
	timezone    string
	unique      string
	headers     map[string]string
	timeout     time.Duration
	inlineIcons bool
	iconWorkers int
}

// WithUserAgent sets the User-Agent used when a request carries none
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithLanguage sets the language value sent to sources
func WithLanguage(lang string) Option {
	return func(o *options) {
		if lang != "" {
			o.language = lang
		}
	}
}

// WithTimezone sets the timezone value sent to sources
func WithTimezone(tz string) Option {
	return func(o *options) {
		if tz != "" {
			o.timezone = tz
		}
	}
}

// WithUnique sets the unique device identifier sent to sources
func WithUnique(unique string) Option {
	return func(o *options) {
		if unique != "" {
			o.unique = unique
		}
	}
}

// WithHeaders sets headers sent to every source
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		o.headers = headers
	}
}

// WithTimeout sets the per-source timeout used when a source has none
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithInlineIcons downloads remote icons into the packages using at most
// workers concurrent downloads per source
func WithInlineIcons(enabled bool, workers int) Option {
	return func(o *options) {
		o.inlineIcons = enabled
		if workers > 0 {
			o.iconWorkers = workers
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		userAgent:   defaultUserAgent,
		language:    defaultLanguage,
		timezone:    defaultTimezone,
		unique:      defaultUnique,
		timeout:     defaultTimeout,
		iconWorkers: defaultIconWorkers,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
