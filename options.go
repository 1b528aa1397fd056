package lmdbkv

import "log/slog"

// Option configures Open.
type Option func(*options)

type options struct {
	config Config
	engine Engine
	logger *slog.Logger
}

// WithEngine makes the client use an already loaded engine. The caller keeps
// ownership: Close does not release it.
func WithEngine(e Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithLogger sets the logger for client and engine diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
