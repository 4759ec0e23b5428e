package sdk

import (
	"io"
	"log/slog"
	"testing"

	"github.com/repobridge/sdk/session"
)

func TestClientOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewMemoryStore()
	conf := &Config{Endpoint: "http://repo.test/api"}
	ft := &fakeTransport{}

	cfg := &clientConfig{}
	for _, opt := range []ClientOption{
		WithConfig("/etc/repobridge.yaml"),
		WithConfigStruct(conf),
		WithLogger(logger),
		WithTransport(ft),
		WithSessionStore(store),
		WithMaxDepth(12),
	} {
		opt(cfg)
	}

	if cfg.configPath != "/etc/repobridge.yaml" {
		t.Errorf("configPath = %q", cfg.configPath)
	}
	if cfg.config != conf {
		t.Error("WithConfigStruct() did not set the config")
	}
	if cfg.logger != logger {
		t.Error("WithLogger() did not set the logger")
	}
	if cfg.transport != ft {
		t.Error("WithTransport() did not set the transport")
	}
	if cfg.store != store {
		t.Error("WithSessionStore() did not set the store")
	}
	if cfg.maxDepth != 12 {
		t.Errorf("maxDepth = %d, want 12", cfg.maxDepth)
	}
}

func TestWithMaxDepthIgnoresNonPositive(t *testing.T) {
	cfg := &clientConfig{}
	WithMaxDepth(0)(cfg)
	WithMaxDepth(-3)(cfg)
	if cfg.maxDepth != 0 {
		t.Errorf("maxDepth = %d, want 0", cfg.maxDepth)
	}
}
