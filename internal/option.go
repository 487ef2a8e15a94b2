package internal

import "github.com/starkad/ordna/internal/engine"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	engineOpts []engine.Option
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithEngineOptions appends extra options for the organization engine,
// applied after the standard wiring (notifier, logger, timing config).
func WithEngineOptions(opts ...engine.Option) Option {
	return func(a *application) {
		a.engineOpts = append(a.engineOpts, opts...)
	}
}
