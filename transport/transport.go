package transport

import (
	"context"
	"errors"

	"github.com/repobridge/sdk/noderef"
)

// Common errors returned by transport operations.
var (
	// ErrRequestFailed is returned when the remote service could not be
	// reached or answered with a non-success HTTP status.
	ErrRequestFailed = errors.New("transport: request failed")

	// ErrFault is returned when the service answered with a SOAP fault.
	ErrFault = errors.New("transport: service returned a fault")

	// ErrNoTicket is returned when an authentication response carried no
	// ticket element.
	ErrNoTicket = errors.New("transport: authentication response carried no ticket")
)

// Transport is the remote-repository contract the SDK depends on.
//
// Envelopes returned by the query-like operations are untyped: they take any
// of several known shapes, and normalizing them belongs to the caller.
type Transport interface {
	// Authenticate starts a session and returns the opaque ticket.
	// Calling it repeatedly is harmless; each call issues a fresh ticket.
	Authenticate(ctx context.Context, username, password string) (string, error)

	// UseTicket attaches a previously issued ticket to subsequent calls,
	// allowing a cached ticket to be restored without re-authenticating.
	UseTicket(ticket string)

	// LookupNode fetches a single node by reference.
	LookupNode(ctx context.Context, ref noderef.Ref) (any, error)

	// ListChildren lists the immediate children of a node in one round
	// trip keyed by the reference. Not every server generation supports
	// it; callers fall back to QueryPath when it fails.
	ListChildren(ctx context.Context, ref noderef.Ref) (any, error)

	// QueryPath runs a path-based query against the given store.
	QueryPath(ctx context.Context, scheme, address, path string) (any, error)

	// Close releases the underlying connection resources.
	Close() error
}
