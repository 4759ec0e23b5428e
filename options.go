package sdk

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/repobridge/sdk/registry"
	"github.com/repobridge/sdk/session"
	"github.com/repobridge/sdk/transport"
)

// ClientOption configures the Client.
type ClientOption func(*clientConfig)

// clientConfig holds configuration collected from options before the
// client is built.
type clientConfig struct {
	configPath string
	config     *Config
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	transport  transport.Transport
	store      session.Store
	registry   registry.Registry
	maxDepth   int
}

// WithConfig sets the configuration file path for the client.
// The config file carries the repository endpoint, store selection,
// credentials, and session settings.
func WithConfig(path string) ClientOption {
	return func(c *clientConfig) {
		c.configPath = path
	}
}

// WithConfigStruct supplies an already-loaded configuration, bypassing the
// file system. It takes precedence over WithConfig.
func WithConfigStruct(cfg *Config) ClientOption {
	return func(c *clientConfig) {
		c.config = cfg
	}
}

// WithLogger sets a custom logger for the client.
// If not provided, a default logger will be created.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for distributed tracing.
// This enables observability across navigation and resolution operations.
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(c *clientConfig) {
		c.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter. When present the client records
// a counter of records dropped during response normalization.
func WithMeter(meter metric.Meter) ClientOption {
	return func(c *clientConfig) {
		c.meter = meter
	}
}

// WithTransport replaces the default SOAP transport. Mainly useful for
// tests and for repositories reachable only through custom plumbing.
func WithTransport(t transport.Transport) ClientOption {
	return func(c *clientConfig) {
		c.transport = t
	}
}

// WithSessionStore replaces the default in-process ticket store, for
// example with the Redis-backed store so instances share tickets.
func WithSessionStore(store session.Store) ClientOption {
	return func(c *clientConfig) {
		c.store = store
	}
}

// WithRegistry supplies an endpoint registry used to discover the
// repository endpoint when none is configured directly.
func WithRegistry(reg registry.Registry) ClientOption {
	return func(c *clientConfig) {
		c.registry = reg
	}
}

// WithMaxDepth overrides the ancestor-chain depth ceiling used during
// path resolution. Values below one are ignored.
func WithMaxDepth(n int) ClientOption {
	return func(c *clientConfig) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}
