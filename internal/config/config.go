// Package config defines service configuration and its loading hooks.
//
// Conventions:
//   - New builds a Config with defaults; Option values override them.
//   - Load layers a YAML file and EDUGUARD_ environment variables on top.
//   - Errors returned from this package wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"omitempty,oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// RiskVariant is the formula used when a request names none.
	RiskVariant string `koanf:"risk_variant" validate:"oneof=linear logistic"`

	// InputPolicy governs out-of-range signals: passthrough, clamp or reject.
	InputPolicy string `koanf:"input_policy" validate:"oneof=passthrough clamp reject"`

	// LinearMissingValue and LogisticMissingValue substitute absent signals.
	LinearMissingValue   float64 `koanf:"linear_missing_value" validate:"gte=0,lte=100"`
	LogisticMissingValue float64 `koanf:"logistic_missing_value" validate:"gte=0,lte=100"`

	// HomeworkPolicy is heuristic or submissions.
	HomeworkPolicy string `koanf:"homework_policy" validate:"oneof=heuristic submissions"`

	// HomeworkFallback is the engagement assumed when a class has assignments
	// but the student has no explicit score. It must be positive.
	HomeworkFallback float64 `koanf:"homework_fallback" validate:"gt=0,lte=100"`

	// DatastoreBackend picks the system of record: memory, firebase or redis.
	DatastoreBackend string `koanf:"datastore_backend" validate:"oneof=memory firebase redis"`

	// SeedFile is a JSON snapshot loaded into memory or imported into redis.
	SeedFile string `koanf:"seed_file"`

	FirebaseURL       string `koanf:"firebase_url" validate:"required_if=DatastoreBackend firebase"`
	FirebaseToken     string `koanf:"firebase_token"`
	FirebaseTimeoutMS int    `koanf:"firebase_timeout_ms" validate:"gte=1"`

	RedisAddr     string `koanf:"redis_addr" validate:"required_if=DatastoreBackend redis"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"gte=0"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// MaxClassSize caps how many students a class evaluation scores.
	MaxClassSize int `koanf:"max_class_size" validate:"gte=1"`

	// Concurrency bounds parallel datastore fetches per request.
	Concurrency int `koanf:"concurrency" validate:"gte=1"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms" validate:"gte=0"`
}

// Option mutates a Config built by New.
type Option func(*Config)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) { c.Addr = addr }
}

// WithDatastore selects a backend and optional seed file.
func WithDatastore(backend, seedFile string) Option {
	return func(c *Config) {
		c.DatastoreBackend = backend
		c.SeedFile = seedFile
	}
}

// WithRiskVariant overrides the default formula.
func WithRiskVariant(v string) Option {
	return func(c *Config) { c.RiskVariant = v }
}

// New creates a Config with defaults, then applies opts.
func New(opts ...Option) *Config {
	c := &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		RiskVariant:          "linear",
		InputPolicy:          "passthrough",
		LinearMissingValue:   0,
		LogisticMissingValue: 50,
		HomeworkPolicy:       "heuristic",
		HomeworkFallback:     80,
		DatastoreBackend:     "memory",
		FirebaseTimeoutMS:    5000,
		RedisAddr:            "localhost:6379",
		RedisPrefix:          "eduguard:",
		MaxClassSize:         500,
		Concurrency:          8,
		ShutdownTimeoutMS:    5000,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FirebaseTimeout returns FirebaseTimeoutMS as a duration.
func (c *Config) FirebaseTimeout() time.Duration {
	return time.Duration(c.FirebaseTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}
