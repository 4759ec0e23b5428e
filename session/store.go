package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Common errors returned by ticket stores.
var (
	// ErrNotFound is returned when no live ticket exists for a user.
	ErrNotFound = errors.New("session: ticket not found")

	// ErrInvalidTicket is returned when a ticket to be stored is empty.
	ErrInvalidTicket = errors.New("session: invalid ticket")
)

// Ticket is one issued repository credential.
type Ticket struct {
	// Value is the opaque credential string issued by the repository.
	Value string `json:"value"`

	// Username is the account the ticket was issued to.
	Username string `json:"username"`

	// IssuedAt is when the ticket was stored.
	IssuedAt time.Time `json:"issued_at"`
}

// Store holds issued tickets keyed by username.
//
// Implementations must be safe for concurrent use. Get returns ErrNotFound
// for missing or expired tickets.
type Store interface {
	// Get retrieves the live ticket for a user.
	Get(ctx context.Context, username string) (*Ticket, error)

	// Put stores a ticket with the given time-to-live. A zero TTL means
	// the ticket never expires locally (the repository may still reject
	// it).
	Put(ctx context.Context, ticket Ticket, ttl time.Duration) error

	// Delete removes a user's ticket. Deleting a missing ticket is a
	// no-op.
	Delete(ctx context.Context, username string) error

	// Close releases the store's resources.
	Close() error
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]memoryEntry
}

type memoryEntry struct {
	ticket  Ticket
	expires time.Time
}

// NewMemoryStore creates an empty in-process ticket store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[string]memoryEntry)}
}

// Get retrieves the live ticket for a user.
func (s *MemoryStore) Get(_ context.Context, username string) (*Ticket, error) {
	s.mu.RLock()
	entry, ok := s.tickets[username]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		s.mu.Lock()
		delete(s.tickets, username)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	t := entry.ticket
	return &t, nil
}

// Put stores a ticket with the given time-to-live.
func (s *MemoryStore) Put(_ context.Context, ticket Ticket, ttl time.Duration) error {
	if ticket.Value == "" || ticket.Username == "" {
		return ErrInvalidTicket
	}
	if ticket.IssuedAt.IsZero() {
		ticket.IssuedAt = time.Now()
	}

	entry := memoryEntry{ticket: ticket}
	if ttl > 0 {
		entry.expires = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.tickets[ticket.Username] = entry
	s.mu.Unlock()
	return nil
}

// Delete removes a user's ticket.
func (s *MemoryStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	delete(s.tickets, username)
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-process store.
func (s *MemoryStore) Close() error {
	return nil
}
