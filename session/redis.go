package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g. "redis://localhost:6379").
	URL string

	// TLS configuration for secure connections.
	TLS *tls.Config

	// KeyPrefix namespaces the ticket keys. Defaults to "repobridge".
	KeyPrefix string

	// ConnectTimeout is the maximum time to wait for connection
	// establishment.
	ConnectTimeout time.Duration
}

// RedisStore implements Store on go-redis/v9, so repository tickets can be
// shared across instances.
//
// Key schema: <prefix>:session:<username> holds the JSON-encoded Ticket,
// with the TTL applied by Redis itself.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed ticket store and verifies
// connectivity.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "repobridge"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, prefix: opts.KeyPrefix}, nil
}

// Get retrieves the live ticket for a user.
func (s *RedisStore) Get(ctx context.Context, username string) (*Ticket, error) {
	data, err := s.client.Get(ctx, s.key(username)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ticket for %s: %w", username, err)
	}

	var ticket Ticket
	if err := json.Unmarshal([]byte(data), &ticket); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticket: %w", err)
	}
	return &ticket, nil
}

// Put stores a ticket with the given time-to-live.
func (s *RedisStore) Put(ctx context.Context, ticket Ticket, ttl time.Duration) error {
	if ticket.Value == "" || ticket.Username == "" {
		return ErrInvalidTicket
	}
	if ticket.IssuedAt.IsZero() {
		ticket.IssuedAt = time.Now()
	}

	data, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}

	if err := s.client.Set(ctx, s.key(ticket.Username), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store ticket for %s: %w", ticket.Username, err)
	}
	return nil
}

// Delete removes a user's ticket.
func (s *RedisStore) Delete(ctx context.Context, username string) error {
	if err := s.client.Del(ctx, s.key(username)).Err(); err != nil {
		return fmt.Errorf("failed to delete ticket for %s: %w", username, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(username string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, username)
}
