package sdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/repobridge/sdk/noderef"
	"github.com/repobridge/sdk/registry"
	"github.com/repobridge/sdk/session"
	"github.com/repobridge/sdk/transport"
)

// NewClient creates a new repository client.
// The client provides the main SDK interface for authentication, node
// lookup, path resolution, and child listing.
//
// Example:
//
//	client, err := sdk.NewClient(
//	    sdk.WithLogger(logger),
//	    sdk.WithConfig("/path/to/repobridge.yaml"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
func NewClient(opts ...ClientOption) (Client, error) {
	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	// Create default logger if not provided
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	conf := cfg.config
	if conf == nil && cfg.configPath != "" {
		loaded, err := LoadConfig(cfg.configPath)
		if err != nil {
			return nil, NewConfigurationError("NewClient", err)
		}
		conf = loaded
	}
	if conf == nil {
		conf = &Config{}
	}

	t, err := buildTransport(cfg, conf)
	if err != nil {
		return nil, err
	}

	store := cfg.store
	if store == nil {
		if conf.RedisURL != "" {
			redisStore, err := session.NewRedisStore(session.RedisOptions{URL: conf.RedisURL})
			if err != nil {
				return nil, NewConfigurationError("NewClient", err)
			}
			store = redisStore
		} else {
			store = session.NewMemoryStore()
		}
	}

	maxDepth := cfg.maxDepth
	if maxDepth <= 0 {
		maxDepth = conf.GetMaxDepth()
	}

	c := &defaultClient{
		logger:       cfg.logger,
		tracer:       cfg.tracer,
		transport:    t,
		store:        store,
		storeScheme:  conf.GetStoreScheme(),
		storeAddress: conf.GetStoreAddress(),
		maxDepth:     maxDepth,
		sessionTTL:   conf.GetSessionTTL(),
		credUsername: conf.Username,
		credPassword: conf.Password,
	}

	if cfg.meter != nil {
		counter, err := cfg.meter.Int64Counter("repobridge.records.dropped")
		if err != nil {
			return nil, NewInternalError("NewClient", err)
		}
		c.droppedCounter = counter
	}

	return c, nil
}

// buildTransport selects the repository endpoint and constructs the SOAP
// transport, unless one was injected through options.
func buildTransport(cfg *clientConfig, conf *Config) (transport.Transport, error) {
	if cfg.transport != nil {
		return cfg.transport, nil
	}

	endpoint := conf.Endpoint
	if endpoint == "" {
		discovered, err := discoverEndpoint(cfg, conf)
		if err != nil {
			return nil, err
		}
		endpoint = discovered
	}

	t, err := transport.NewSOAPClient(transport.Options{Endpoint: endpoint})
	if err != nil {
		return nil, NewConfigurationError("NewClient", err)
	}
	return t, nil
}

// discoverEndpoint looks the repository endpoint up in the registry when no
// endpoint is configured directly.
func discoverEndpoint(cfg *clientConfig, conf *Config) (string, error) {
	reg := cfg.registry
	if reg == nil && conf.Registry != nil {
		client, err := registry.NewClient(*conf.Registry)
		if err != nil {
			return "", NewConfigurationError("NewClient", err)
		}
		defer client.Close()
		reg = client
	}
	if reg == nil {
		return "", NewConfigurationError("NewClient", ErrInvalidConfig).
			WithContext(map[string]any{
				"reason": "no endpoint configured and no registry available",
			})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	name := conf.GetRepository()
	endpoints, err := reg.Lookup(ctx, name)
	if err != nil {
		return "", NewConfigurationError("NewClient", err).
			WithContext(map[string]any{"repository": name})
	}
	if len(endpoints) == 0 {
		return "", NewConfigurationError("NewClient",
			fmt.Errorf("no endpoints announced for repository %q", name))
	}
	return endpoints[0].URL, nil
}

// ParseReference parses a canonical node reference string of the form
// "scheme://address/id".
//
// Example:
//
//	ref, err := sdk.ParseReference("workspace://SpacesStore/abc-123")
func ParseReference(raw string) (noderef.Ref, error) {
	ref, err := noderef.Parse(raw)
	if err != nil {
		if errors.Is(err, noderef.ErrMalformed) {
			return noderef.Ref{}, NewValidationError("ParseReference", ErrMalformedReference).
				WithContext(map[string]any{"raw": raw})
		}
		return noderef.Ref{}, NewValidationError("ParseReference", err)
	}
	return ref, nil
}

// FormatReference renders a reference back to its canonical string form.
func FormatReference(ref noderef.Ref) string {
	return ref.String()
}
