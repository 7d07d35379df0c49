package internal

import (
	"log/slog"
	"net"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	logger   *slog.Logger
	listener net.Listener
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the JSON stdout logger Run would otherwise build.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithListener serves on ln instead of listening on the configured port.
func WithListener(ln net.Listener) Option {
	return func(a *application) {
		a.listener = ln
	}
}
