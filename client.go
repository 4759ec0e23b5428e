package sdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/repobridge/sdk/node"
	"github.com/repobridge/sdk/noderef"
	"github.com/repobridge/sdk/query"
	"github.com/repobridge/sdk/resolve"
	"github.com/repobridge/sdk/session"
	"github.com/repobridge/sdk/transport"
)

// Client provides the main SDK interface for navigating a content
// repository through its legacy SOAP API.
//
// The client hides the quirks of that API behind a small surface:
//   - Responses of any known envelope shape come back as uniform records.
//   - Child listings work on every server generation, falling back from
//     the direct listing call to path queries when needed.
//   - Node paths are reconstructed by walking parent chains, bounded
//     against runaway and circular hierarchies.
type Client interface {
	// Authenticate establishes a repository session for the user. A
	// ticket cached in the session store is reused when present;
	// otherwise fresh credentials are exchanged and the issued ticket
	// cached.
	Authenticate(ctx context.Context, username, password string) error

	// Root returns the reference of the repository root container. The
	// result is discovered once and memoized for the client's lifetime.
	Root(ctx context.Context) (noderef.Ref, error)

	// Lookup fetches a single node and normalizes it to a record.
	Lookup(ctx context.Context, ref noderef.Ref) (node.Record, error)

	// ResolvePath reconstructs the absolute path of a node as a sequence
	// of path segments starting at the repository root.
	ResolvePath(ctx context.Context, ref noderef.Ref) ([]string, error)

	// ListChildren lists the immediate children of a node.
	ListChildren(ctx context.Context, ref noderef.Ref) (*Listing, error)

	// ListChildrenOf lists the immediate children of a node named by a
	// reference string. Besides canonical scheme://address/id references
	// it accepts the two well-known root path spellings,
	// "/app:company_home" and "/Company Home", which list the repository
	// root's children without resolving anything first.
	ListChildrenOf(ctx context.Context, reference string) (*Listing, error)

	// ListChildrenFiltered lists the immediate children of a node,
	// keeping only records matched by the CEL filter expression.
	ListChildrenFiltered(ctx context.Context, ref noderef.Ref, filter string) (*Listing, error)

	// Close releases the transport and session store.
	Close() error
}

// Listing is the result of a child-listing operation.
type Listing struct {
	// Records holds the normalized child records.
	Records []node.Record `json:"records"`

	// Dropped counts raw entries that could not be normalized into
	// records and were discarded.
	Dropped int `json:"dropped"`

	// Direct reports whether the listing came from the direct child
	// listing call rather than the path-query fallback.
	Direct bool `json:"direct"`
}

// Capability states for the direct child-listing call.
const (
	capUnknown = iota
	capSupported
	capUnsupported
)

// defaultClient is the concrete implementation of Client.
type defaultClient struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	transport transport.Transport
	store     session.Store

	storeScheme  string
	storeAddress string
	maxDepth     int
	sessionTTL   time.Duration

	// Credentials from the configuration, used to establish a session
	// lazily when the caller never invokes Authenticate themselves.
	credUsername string
	credPassword string

	droppedCounter metric.Int64Counter

	mu           sync.Mutex
	username     string
	sessionReady bool
	root         noderef.Ref
	rootKnown    bool
	resolver     *resolve.Resolver
	listingMode  int
}

// Authenticate establishes a repository session for the user.
func (c *defaultClient) Authenticate(ctx context.Context, username, password string) error {
	if username == "" {
		return NewValidationError("Client.Authenticate", fmt.Errorf("username cannot be empty"))
	}

	if c.store != nil {
		if ticket, err := c.store.Get(ctx, username); err == nil {
			c.transport.UseTicket(ticket.Value)
			c.setUsername(username)
			c.logger.Debug("reusing cached ticket", slog.String("username", username))
			return nil
		}
	}

	ticket, err := c.transport.Authenticate(ctx, username, password)
	if err != nil {
		return NewAuthenticationError("Client.Authenticate", ErrAuthenticationFailed).
			WithContext(map[string]any{
				"username": username,
				"cause":    err.Error(),
			})
	}

	if c.store != nil {
		put := session.Ticket{Value: ticket, Username: username, IssuedAt: time.Now()}
		if err := c.store.Put(ctx, put, c.sessionTTL); err != nil {
			c.logger.Warn("failed to cache ticket",
				slog.String("username", username),
				slog.String("error", err.Error()))
		}
	}

	c.setUsername(username)
	c.logger.Info("authenticated", slog.String("username", username))
	return nil
}

func (c *defaultClient) setUsername(username string) {
	c.mu.Lock()
	c.username = username
	c.sessionReady = true
	c.mu.Unlock()
}

// ensureSession establishes a session from the configured credentials
// before the first repository call. It is a no-op when no credentials were
// configured or a session already exists, and it reuses any ticket cached
// in the session store the same way Authenticate does.
func (c *defaultClient) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	ready := c.sessionReady
	c.mu.Unlock()
	if ready || c.credUsername == "" {
		return nil
	}
	return c.Authenticate(ctx, c.credUsername, c.credPassword)
}

// Root returns the reference of the repository root container.
func (c *defaultClient) Root(ctx context.Context) (noderef.Ref, error) {
	c.mu.Lock()
	if c.rootKnown {
		root := c.root
		c.mu.Unlock()
		return root, nil
	}
	c.mu.Unlock()

	if err := c.ensureSession(ctx); err != nil {
		return noderef.Ref{}, err
	}

	payload, err := c.transport.QueryPath(ctx, c.storeScheme, c.storeAddress, "/"+resolve.RootSegment)
	if err != nil {
		return noderef.Ref{}, NewTransportError("Client.Root", err)
	}

	records, _ := node.Normalize(payload)
	if len(records) == 0 {
		return noderef.Ref{}, NewNotFoundError("Client.Root", ErrRootNotFound).
			WithContext(map[string]any{
				"store": c.storeScheme + "://" + c.storeAddress,
			})
	}

	root := records[0].Ref
	c.mu.Lock()
	c.root = root
	c.rootKnown = true
	c.mu.Unlock()

	c.logger.Debug("repository root located", slog.String("ref", root.String()))
	return root, nil
}

// Lookup fetches a single node and normalizes it to a record.
func (c *defaultClient) Lookup(ctx context.Context, ref noderef.Ref) (node.Record, error) {
	if err := ref.Validate(); err != nil {
		return node.Record{}, NewValidationError("Client.Lookup", ErrMalformedReference).
			WithContext(map[string]any{"ref": ref.String()})
	}

	if err := c.ensureSession(ctx); err != nil {
		return node.Record{}, err
	}

	payload, err := c.transport.LookupNode(ctx, ref)
	if err != nil {
		return node.Record{}, NewTransportError("Client.Lookup", err).
			WithContext(map[string]any{"ref": ref.String()})
	}

	records, dropped := node.Normalize(payload)
	c.recordDropped(ctx, dropped, "lookup")
	if len(records) == 0 {
		return node.Record{}, NewNotFoundError("Client.Lookup",
			fmt.Errorf("no record in response")).
			WithContext(map[string]any{"ref": ref.String()})
	}
	return records[0], nil
}

// ResolvePath reconstructs the absolute path of a node.
//
// When the reference is the repository root itself, the root path is
// returned immediately without any remote traffic.
func (c *defaultClient) ResolvePath(ctx context.Context, ref noderef.Ref) ([]string, error) {
	const op = "Client.ResolvePath"

	if err := ref.Validate(); err != nil {
		return nil, NewValidationError(op, ErrMalformedReference).
			WithContext(map[string]any{"ref": ref.String()})
	}

	ctx, span, traced := c.startSpan(ctx, "ResolvePath", ref)
	segments, err := c.resolvePath(ctx, op, ref)
	if traced {
		endSpan(span, err)
	}
	return segments, err
}

func (c *defaultClient) resolvePath(ctx context.Context, op string, ref noderef.Ref) ([]string, error) {
	root, err := c.Root(ctx)
	if err != nil {
		return nil, err
	}

	if ref.Equal(root) {
		return []string{resolve.RootSegment}, nil
	}

	resolver := c.resolverFor(root)
	segments, err := resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, c.mapResolveError(op, ref, err)
	}
	return segments, nil
}

// mapResolveError translates resolver sentinels into SDK error categories.
func (c *defaultClient) mapResolveError(op string, ref noderef.Ref, err error) error {
	var sentinel error
	switch {
	case errors.Is(err, resolve.ErrDepthExceeded), errors.Is(err, resolve.ErrCycle):
		sentinel = ErrRecursionLimit
	case errors.Is(err, resolve.ErrFetchFailed):
		sentinel = ErrParentFetchFailed
	case errors.Is(err, resolve.ErrNoParent):
		sentinel = ErrUnresolvableParent
	default:
		return NewInternalError(op, err).
			WithContext(map[string]any{"ref": ref.String()})
	}
	return NewResolutionError(op, sentinel).
		WithContext(map[string]any{
			"ref":   ref.String(),
			"cause": err.Error(),
		})
}

// resolverFor lazily builds the resolver once the root is known.
func (c *defaultClient) resolverFor(root noderef.Ref) *resolve.Resolver {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resolver == nil {
		c.resolver = resolve.New(
			resolve.FetcherFunc(c.fetchNode),
			resolve.WithRoot(root),
			resolve.WithMaxDepth(c.maxDepth),
			resolve.WithLogger(c.logger),
		)
	}
	return c.resolver
}

// fetchNode adapts the transport to the resolver's single-node contract.
func (c *defaultClient) fetchNode(ctx context.Context, ref noderef.Ref) (map[string]any, error) {
	payload, err := c.transport.LookupNode(ctx, ref)
	if err != nil {
		return nil, err
	}
	for _, raw := range node.Flatten(payload) {
		if m, ok := raw.(map[string]any); ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("no node in response for %s", ref)
}

// ListChildren lists the immediate children of a node.
//
// The first call probes the direct child-listing operation; its outcome is
// memoized, so servers that lack the call pay the probe exactly once and
// every later listing goes straight to the path-query fallback.
func (c *defaultClient) ListChildren(ctx context.Context, ref noderef.Ref) (*Listing, error) {
	const op = "Client.ListChildren"

	if err := ref.Validate(); err != nil {
		return nil, NewValidationError(op, ErrMalformedReference).
			WithContext(map[string]any{"ref": ref.String()})
	}

	ctx, span, traced := c.startSpan(ctx, "ListChildren", ref)
	listing, err := c.listChildren(ctx, op, ref)
	if traced {
		endSpan(span, err)
	}
	return listing, err
}

func (c *defaultClient) listChildren(ctx context.Context, op string, ref noderef.Ref) (*Listing, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	mode := c.listingMode
	c.mu.Unlock()

	if mode != capUnsupported {
		payload, err := c.transport.ListChildren(ctx, ref)
		if err == nil {
			c.setListingMode(capSupported)
			return c.buildListing(ctx, ref, payload, true), nil
		}

		if mode == capSupported {
			return nil, NewTransportError(op, err).
				WithContext(map[string]any{"ref": ref.String()})
		}

		c.setListingMode(capUnsupported)
		c.logger.Debug("direct child listing unsupported, using path queries",
			slog.String("ref", ref.String()),
			slog.String("error", err.Error()))
	}

	segments, err := c.resolvePath(ctx, op, ref)
	if err != nil {
		return nil, c.aggregateListingFailure(op, ref, err)
	}

	path := "/" + strings.Join(segments, "/") + "/*"
	payload, err := c.transport.QueryPath(ctx, c.storeScheme, c.storeAddress, path)
	if err != nil {
		return nil, c.aggregateListingFailure(op, ref, err)
	}

	return c.buildListing(ctx, ref, payload, false), nil
}

func (c *defaultClient) setListingMode(mode int) {
	c.mu.Lock()
	c.listingMode = mode
	c.mu.Unlock()
}

// aggregateListingFailure reports a listing that failed on both strategies,
// naming the node and the innermost cause.
func (c *defaultClient) aggregateListingFailure(op string, ref noderef.Ref, err error) error {
	cause := err
	for {
		inner := errors.Unwrap(cause)
		if inner == nil {
			break
		}
		cause = inner
	}
	return NewResolutionError(op, ErrChildListingFailed).
		WithContext(map[string]any{
			"ref":   ref.String(),
			"cause": cause.Error(),
		})
}

// buildListing normalizes a child-listing payload and reports dropped rows.
func (c *defaultClient) buildListing(ctx context.Context, ref noderef.Ref, payload any, direct bool) *Listing {
	records, dropped := node.Normalize(payload)
	if dropped > 0 {
		c.logger.Warn("dropped unnormalizable records from listing",
			slog.String("ref", ref.String()),
			slog.Int("dropped", dropped))
	}
	c.recordDropped(ctx, dropped, "list_children")
	return &Listing{Records: records, Dropped: dropped, Direct: direct}
}

// Root path spellings accepted by ListChildrenOf. Both name the repository
// root container, by qualified name and by display name.
var rootPaths = []string{"/" + resolve.RootSegment, "/Company Home"}

func isRootPath(reference string) bool {
	trimmed := strings.TrimSpace(reference)
	for _, p := range rootPaths {
		if strings.EqualFold(trimmed, p) {
			return true
		}
	}
	return false
}

// ListChildrenOf lists the children of a node named by a reference string.
//
// The two well-known root path spellings go straight to the fixed
// root-children path query, skipping root discovery and path resolution
// entirely. Everything else must parse as a canonical reference.
func (c *defaultClient) ListChildrenOf(ctx context.Context, reference string) (*Listing, error) {
	const op = "Client.ListChildrenOf"

	if !isRootPath(reference) {
		ref, err := ParseReference(reference)
		if err != nil {
			return nil, NewValidationError(op, ErrMalformedReference).
				WithContext(map[string]any{"reference": reference})
		}
		return c.ListChildren(ctx, ref)
	}

	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	path := "/" + resolve.RootSegment + "/*"
	payload, err := c.transport.QueryPath(ctx, c.storeScheme, c.storeAddress, path)
	if err != nil {
		return nil, NewTransportError(op, err).
			WithContext(map[string]any{"path": path})
	}
	return c.buildListing(ctx, noderef.Ref{}, payload, false), nil
}

// ListChildrenFiltered lists children and keeps only records matched by
// the CEL filter expression.
func (c *defaultClient) ListChildrenFiltered(ctx context.Context, ref noderef.Ref, filter string) (*Listing, error) {
	f, err := query.NewFilter(filter)
	if err != nil {
		return nil, NewValidationError("Client.ListChildrenFiltered", err)
	}

	listing, err := c.ListChildren(ctx, ref)
	if err != nil {
		return nil, err
	}

	listing.Records = f.Apply(listing.Records)
	return listing, nil
}

// Close releases the transport and session store.
func (c *defaultClient) Close() error {
	var errs []error
	if err := c.transport.Close(); err != nil {
		errs = append(errs, fmt.Errorf("transport: %w", err))
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// startSpan opens a tracing span when a tracer is configured.
func (c *defaultClient) startSpan(ctx context.Context, name string, ref noderef.Ref) (context.Context, trace.Span, bool) {
	if c.tracer == nil {
		return ctx, nil, false
	}
	ctx, span := c.tracer.Start(ctx, "sdk.Client."+name,
		trace.WithAttributes(attribute.String("node.ref", ref.String())))
	return ctx, span, true
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// recordDropped bumps the dropped-record counter when a meter is configured.
func (c *defaultClient) recordDropped(ctx context.Context, dropped int, operation string) {
	if dropped <= 0 || c.droppedCounter == nil {
		return
	}
	c.droppedCounter.Add(ctx, int64(dropped),
		metric.WithAttributes(attribute.String("operation", operation)))
}
