// Package registry provides discovery of content-repository endpoints via etcd.
//
// Deployments with more than one repository (or several gateways fronting the
// same one) can announce each reachable endpoint in etcd. Clients then look
// endpoints up by repository name instead of hard-coding URLs, and stale
// entries disappear on their own when the announcing process stops renewing
// its lease.
//
// An endpoint is announced with a TTL lease, kept alive by a background
// goroutine, and withdrawn on graceful shutdown. Lookup and Watch read the
// same keyspace, so every client sees identical membership.
package registry

import (
	"context"
	"time"
)

// Endpoint describes one announced repository endpoint.
//
// Several instances may announce endpoints for the same repository name, each
// under its own InstanceID, for example a pool of gateways in front of a
// single backing store.
type Endpoint struct {
	// Name identifies the repository (e.g. "main", "archive").
	Name string `json:"name"`

	// URL is the base service address, e.g. "http://repo.internal:8080/api".
	URL string `json:"url"`

	// Store names the default store at this endpoint, in scheme and
	// address form (e.g. "workspace", "SpacesStore").
	StoreScheme  string `json:"store_scheme"`
	StoreAddress string `json:"store_address"`

	// InstanceID distinguishes concurrent announcements for the same
	// repository. Announce fills it with a random UUID when empty.
	InstanceID string `json:"instance_id"`

	// Metadata carries free-form attributes, e.g. "region" or "readonly".
	Metadata map[string]string `json:"metadata"`

	// AnnouncedAt is when this instance announced itself.
	AnnouncedAt time.Time `json:"announced_at"`
}

// Registry is the endpoint announcement and discovery interface.
//
// Implementations must be safe for concurrent use. Entries are tied to etcd
// leases, so an unrenewed announcement is removed automatically after its
// TTL elapses.
type Registry interface {
	// Announce publishes an endpoint. The entry is visible immediately and
	// stays visible while the implementation renews its lease. Announcing
	// the same InstanceID again replaces the existing entry.
	Announce(ctx context.Context, ep Endpoint) error

	// Withdraw removes a previously announced endpoint by revoking its
	// lease. Withdrawing an unknown instance is a no-op.
	Withdraw(ctx context.Context, ep Endpoint) error

	// Lookup returns every live endpoint announced for the named
	// repository, in arbitrary order. The slice may be empty.
	Lookup(ctx context.Context, name string) ([]Endpoint, error)

	// List returns every live endpoint across all repositories.
	List(ctx context.Context) ([]Endpoint, error)

	// Watch emits the current endpoint set for the named repository, then
	// a fresh set after every change (announcement, withdrawal, or lease
	// expiry). The channel closes when ctx is canceled or the registry is
	// closed.
	Watch(ctx context.Context, name string) (<-chan []Endpoint, error)

	// Close stops background lease renewal, terminates watches, and
	// releases the etcd connection.
	Close() error
}

// Config holds registry connection settings.
type Config struct {
	// Endpoints is the etcd cluster to connect to, e.g.
	// ["localhost:2379"]. Required.
	Endpoints []string `json:"endpoints"`

	// Namespace is the key prefix for all entries. Endpoints are stored
	// under /{namespace}/repositories/{name}/{instance-id}.
	// Default: "repobridge".
	Namespace string `json:"namespace"`

	// TTL is the lease time-to-live in seconds. An announcement whose
	// lease is not renewed within this interval is removed.
	// Default: 30.
	TTL int `json:"ttl"`

	// TLS configures mutual TLS toward etcd. Nil disables TLS.
	TLS *TLSConfig `json:"tls"`
}

// TLSConfig holds certificate paths for secure etcd communication.
type TLSConfig struct {
	// Enabled determines whether TLS is active. When false the remaining
	// fields are ignored.
	Enabled bool `json:"enabled"`

	// CertFile is the path to the client certificate (PEM).
	CertFile string `json:"cert_file"`

	// KeyFile is the path to the client private key (PEM).
	KeyFile string `json:"key_file"`

	// CAFile is the path to the CA bundle used to verify the etcd server.
	CAFile string `json:"ca_file"`
}
