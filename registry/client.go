package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Client implements Registry on an etcd cluster.
//
// It manages one lease per announced instance and renews each every TTL/3
// from a background goroutine, so endpoints vanish from discovery shortly
// after their announcer stops running.
//
// All methods are safe for concurrent use.
type Client struct {
	client    *clientv3.Client
	namespace string
	ttl       int

	mu         sync.RWMutex
	leases     map[string]clientv3.LeaseID
	cancelFns  map[string]context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	closedChan chan struct{}
}

// NewClient connects to etcd and verifies the cluster is reachable.
//
// The returned client holds background goroutines once endpoints are
// announced; call Close when done.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("registry endpoints cannot be empty")
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "repobridge"
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30
	}

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: 5 * time.Second,
	}

	tlsConfig, err := cfg.TLS.clientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	clientCfg.TLS = tlsConfig

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err = cli.Get(ctx, "health-check")
	if err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	return &Client{
		client:     cli,
		namespace:  namespace,
		ttl:        ttl,
		leases:     make(map[string]clientv3.LeaseID),
		cancelFns:  make(map[string]context.CancelFunc),
		closedChan: make(chan struct{}),
	}, nil
}

// NewClientFromEnv creates a registry client from the
// REPOBRIDGE_REGISTRY_ENDPOINTS environment variable, a comma-separated
// list of etcd endpoints.
//
// An unset variable returns (nil, nil): discovery is optional, and callers
// fall back to their configured endpoint.
func NewClientFromEnv() (*Client, error) {
	endpoints := os.Getenv("REPOBRIDGE_REGISTRY_ENDPOINTS")
	if endpoints == "" {
		return nil, nil
	}

	endpointList := strings.Split(endpoints, ",")
	for i, ep := range endpointList {
		endpointList[i] = strings.TrimSpace(ep)
	}

	return NewClient(Config{Endpoints: endpointList})
}

// Announce publishes an endpoint under a fresh lease and starts renewing it.
//
// A missing InstanceID is filled with a random UUID; a missing AnnouncedAt
// is set to now. Re-announcing an InstanceID replaces the entry and restarts
// its keepalive.
func (c *Client) Announce(ctx context.Context, ep Endpoint) error {
	if ep.Name == "" {
		return fmt.Errorf("endpoint name cannot be empty")
	}
	if ep.URL == "" {
		return fmt.Errorf("endpoint URL cannot be empty")
	}
	if ep.InstanceID == "" {
		ep.InstanceID = uuid.New().String()
	}
	if ep.AnnouncedAt.IsZero() {
		ep.AnnouncedAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	if cancelFn, exists := c.cancelFns[ep.InstanceID]; exists {
		cancelFn()
		delete(c.cancelFns, ep.InstanceID)
	}

	leaseResp, err := c.client.Grant(ctx, int64(c.ttl))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	data, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("failed to marshal endpoint: %w", err)
	}

	key := c.buildKey(ep.Name, ep.InstanceID)

	_, err = c.client.Put(ctx, key, string(data), clientv3.WithLease(leaseResp.ID))
	if err != nil {
		return fmt.Errorf("failed to announce endpoint: %w", err)
	}

	c.leases[ep.InstanceID] = leaseResp.ID

	keepaliveCtx, cancel := context.WithCancel(context.Background())
	c.cancelFns[ep.InstanceID] = cancel

	c.wg.Add(1)
	go c.keepalive(keepaliveCtx, leaseResp.ID, ep.InstanceID)

	return nil
}

// Withdraw revokes the lease behind an announcement, which deletes the entry
// and stops its keepalive. Withdrawing an unknown instance is a no-op.
func (c *Client) Withdraw(ctx context.Context, ep Endpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	if cancelFn, exists := c.cancelFns[ep.InstanceID]; exists {
		cancelFn()
		delete(c.cancelFns, ep.InstanceID)
	}

	leaseID, exists := c.leases[ep.InstanceID]
	if !exists {
		return nil
	}

	_, err := c.client.Revoke(ctx, leaseID)
	if err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}

	delete(c.leases, ep.InstanceID)

	return nil
}

// Lookup returns every live endpoint announced for the named repository.
func (c *Client) Lookup(ctx context.Context, name string) ([]Endpoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	prefix := fmt.Sprintf("/%s/repositories/%s/", c.namespace, name)

	resp, err := c.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to look up endpoints: %w", err)
	}

	endpoints := make([]Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var ep Endpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			// Skip invalid entries
			continue
		}
		endpoints = append(endpoints, ep)
	}

	return endpoints, nil
}

// List returns every live endpoint across all repositories.
func (c *Client) List(ctx context.Context) ([]Endpoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	prefix := fmt.Sprintf("/%s/repositories/", c.namespace)

	resp, err := c.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}

	endpoints := make([]Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var ep Endpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			continue
		}
		endpoints = append(endpoints, ep)
	}

	return endpoints, nil
}

// Watch emits the current endpoint set for a repository, then a fresh set
// after every change. The channel closes when ctx is canceled or the client
// is closed.
func (c *Client) Watch(ctx context.Context, name string) (<-chan []Endpoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	ch := make(chan []Endpoint, 1)

	endpoints, err := c.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	ch <- endpoints

	prefix := fmt.Sprintf("/%s/repositories/%s/", c.namespace, name)
	watchChan := c.client.Watch(ctx, prefix, clientv3.WithPrefix())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closedChan:
				return
			case watchResp, ok := <-watchChan:
				if !ok {
					return
				}
				if watchResp.Err() != nil {
					return
				}

				endpoints, err := c.Lookup(context.Background(), name)
				if err != nil {
					// Skip this update if we can't query
					continue
				}

				select {
				case ch <- endpoints:
				case <-ctx.Done():
					return
				case <-c.closedChan:
					return
				}
			}
		}
	}()

	return ch, nil
}

// Close stops all keepalive goroutines, terminates watches, and closes the
// etcd connection. After Close every other method returns an error.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	for _, cancel := range c.cancelFns {
		cancel()
	}
	c.cancelFns = make(map[string]context.CancelFunc)

	close(c.closedChan)
	c.mu.Unlock()

	c.wg.Wait()

	return c.client.Close()
}

// keepalive renews a lease every TTL/3 until the context is canceled or the
// lease becomes invalid.
func (c *Client) keepalive(ctx context.Context, leaseID clientv3.LeaseID, instanceID string) {
	defer c.wg.Done()

	interval := time.Duration(c.ttl) * time.Second / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closedChan:
			return
		case <-ticker.C:
			_, err := c.client.KeepAliveOnce(context.Background(), leaseID)
			if err != nil {
				c.mu.Lock()
				delete(c.leases, instanceID)
				delete(c.cancelFns, instanceID)
				c.mu.Unlock()
				return
			}
		}
	}
}

// buildKey constructs the etcd key for an announced endpoint.
//
// Format: /namespace/repositories/name/instance-id
func (c *Client) buildKey(name, instanceID string) string {
	return fmt.Sprintf("/%s/repositories/%s/%s", c.namespace, name, instanceID)
}
