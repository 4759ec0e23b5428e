package sdk

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/repobridge/sdk/registry"
	"github.com/repobridge/sdk/resolve"
)

// Config represents a repobridge.yaml configuration file.
//
// Every field has a usable default except Endpoint, which must be supplied
// either here or through endpoint discovery (see Registry).
type Config struct {
	// Endpoint is the base URL of the repository's SOAP API, e.g.
	// "http://repo.internal:8080/alfresco/api".
	Endpoint string `yaml:"endpoint"`

	// Repository names the repository to discover when Endpoint is empty
	// and a registry is configured. Default: "main".
	Repository string `yaml:"repository,omitempty"`

	// Store selects the store queried for roots and path lookups.
	Store StoreConfig `yaml:"store,omitempty"`

	// Username and Password authenticate against the repository. When set,
	// the client establishes a session with them before its first
	// repository call. They may be left empty and supplied at Authenticate
	// time instead.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// SessionTTL bounds how long issued tickets are cached.
	// Format: Go duration string (e.g., "30m"). Default: 30m.
	SessionTTL string `yaml:"session_ttl,omitempty"`

	// MaxDepth caps ancestor-chain traversal during path resolution.
	// Default: 50.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// RedisURL enables a shared ticket store when set, e.g.
	// "redis://localhost:6379". Empty keeps tickets in process memory.
	RedisURL string `yaml:"redis_url,omitempty"`

	// Registry configures optional etcd endpoint discovery.
	Registry *registry.Config `yaml:"registry,omitempty"`
}

// StoreConfig names a repository store by scheme and address.
type StoreConfig struct {
	// Scheme is the store protocol (e.g., "workspace"). Default: "workspace".
	Scheme string `yaml:"scheme,omitempty"`

	// Address is the store identifier (e.g., "SpacesStore").
	// Default: "SpacesStore".
	Address string `yaml:"address,omitempty"`
}

// GetSessionTTL parses the session TTL string and returns a duration.
// Returns the default value if not set or invalid.
func (c *Config) GetSessionTTL() time.Duration {
	if c == nil || c.SessionTTL == "" {
		return 30 * time.Minute
	}
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// GetMaxDepth returns the configured depth ceiling or the default value.
func (c *Config) GetMaxDepth() int {
	if c == nil || c.MaxDepth <= 0 {
		return resolve.DefaultMaxDepth
	}
	return c.MaxDepth
}

// GetRepository returns the repository name or the default value.
func (c *Config) GetRepository() string {
	if c == nil || c.Repository == "" {
		return "main"
	}
	return c.Repository
}

// GetStoreScheme returns the store scheme or the default value.
func (c *Config) GetStoreScheme() string {
	if c == nil || c.Store.Scheme == "" {
		return "workspace"
	}
	return c.Store.Scheme
}

// GetStoreAddress returns the store address or the default value.
func (c *Config) GetStoreAddress() string {
	if c == nil || c.Store.Address == "" {
		return "SpacesStore"
	}
	return c.Store.Address
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Endpoint == "" && c.Registry == nil {
		return fmt.Errorf("%w: endpoint or registry must be set", ErrInvalidConfig)
	}
	if c.SessionTTL != "" {
		if _, err := time.ParseDuration(c.SessionTTL); err != nil {
			return fmt.Errorf("%w: bad session_ttl %q: %v", ErrInvalidConfig, c.SessionTTL, err)
		}
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a YAML configuration file from the given path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
