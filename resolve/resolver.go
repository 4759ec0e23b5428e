package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/repobridge/sdk/node"
	"github.com/repobridge/sdk/noderef"
)

// Sentinel errors for path resolution failures. All of them are terminal
// for the resolution that raised them; nothing is retried.
var (
	// ErrDepthExceeded indicates the parent chain is longer than the
	// configured ceiling, which the resolver treats as repository
	// corruption rather than something to silently tolerate.
	ErrDepthExceeded = errors.New("resolve: parent chain exceeds depth ceiling")

	// ErrCycle indicates the same reference was visited twice while
	// walking the parent chain.
	ErrCycle = errors.New("resolve: cycle detected in parent chain")

	// ErrNoParent indicates no parent-reference strategy produced a
	// parent for a non-root node.
	ErrNoParent = errors.New("resolve: no parent reference found")

	// ErrFetchFailed wraps a lookup failure during the walk.
	ErrFetchFailed = errors.New("resolve: node fetch failed")
)

const (
	// DefaultMaxDepth is the default parent-chain ceiling.
	DefaultMaxDepth = 50

	// RootMarker is the literal item ID some servers hand out for the
	// repository root.
	RootMarker = "root"

	// RootSegment is the fixed path segment of the repository root.
	RootSegment = "app:company_home"
)

// Well-known markers by which a fetched node identifies itself as the
// repository root even when its reference does not match the sentinel.
const (
	rootIconValue   = "space-icon-default"
	rootDisplayName = "Company Home"
)

// Fetcher performs the single-node lookup the resolver depends on. It
// returns the raw (un-normalized) sub-record for the node.
type Fetcher interface {
	FetchNode(ctx context.Context, ref noderef.Ref) (map[string]any, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, ref noderef.Ref) (map[string]any, error)

// FetchNode calls f.
func (f FetcherFunc) FetchNode(ctx context.Context, ref noderef.Ref) (map[string]any, error) {
	return f(ctx, ref)
}

// Resolver walks parent chains. The zero value is not usable; construct
// with New.
type Resolver struct {
	fetcher  Fetcher
	root     noderef.Ref
	maxDepth int
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRoot sets the root sentinel the walk short-circuits on.
func WithRoot(root noderef.Ref) Option {
	return func(r *Resolver) {
		r.root = root
	}
}

// WithMaxDepth overrides the parent-chain ceiling.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// WithLogger sets the logger used for per-step debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Resolver that fetches nodes through f.
func New(f Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:  f,
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the ordered path segments from the repository root to
// ref, each segment carrying a "cm:" prefix when the node's type tag begins
// with "cm:". The root itself resolves to [RootSegment]; a bare root-marker
// reference resolves to an empty path.
//
// The walk fails with ErrDepthExceeded or ErrCycle on corrupted parent
// graphs, ErrNoParent when a non-root node exposes no parent by any
// strategy, and ErrFetchFailed (wrapping the cause) when a lookup fails.
// Every error names the reference the resolution started from.
func (r *Resolver) Resolve(ctx context.Context, ref noderef.Ref) ([]string, error) {
	var segments []string
	visited := make(map[string]bool)

	cur := ref
	for depth := 0; ; depth++ {
		if depth > r.maxDepth {
			return nil, fmt.Errorf("%w: resolving %s (ceiling %d)", ErrDepthExceeded, ref, r.maxDepth)
		}

		if cur.ID == RootMarker {
			return segments, nil
		}
		if !r.root.IsZero() && cur.Equal(r.root) {
			return prepend(segments, RootSegment), nil
		}

		key := noderef.Normalize(cur.String())
		if visited[key] {
			return nil, fmt.Errorf("%w: %s revisited while resolving %s", ErrCycle, cur, ref)
		}
		visited[key] = true

		raw, err := r.fetcher.FetchNode(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%w: %s while resolving %s: %v", ErrFetchFailed, cur, ref, err)
		}

		rec := buildRecord(raw, cur)
		if isRootMarked(rec) {
			return prepend(segments, RootSegment), nil
		}

		segments = prepend(segments, segmentFor(rec))

		parent, ok := parentRef(raw, rec.Properties)
		if !ok {
			return nil, fmt.Errorf("%w: %s while resolving %s", ErrNoParent, cur, ref)
		}

		r.logger.Debug("resolved parent step",
			slog.String("node", cur.String()),
			slog.String("parent", parent.String()),
			slog.Int("depth", depth),
		)
		cur = parent
	}
}

// buildRecord normalizes the fetched sub-record, seeding the known
// reference so name resolution always has an identity to fall back on.
func buildRecord(raw map[string]any, ref noderef.Ref) node.Record {
	seeded := raw
	if _, ok := raw["nodeRef"]; !ok {
		seeded = make(map[string]any, len(raw)+1)
		for k, v := range raw {
			seeded[k] = v
		}
		seeded["nodeRef"] = ref.String()
	}

	rec, err := node.Build(seeded)
	if err != nil {
		return node.Record{Ref: ref, Name: ref.ID, Type: node.TypeUnknown}
	}
	return rec
}

// isRootMarked reports whether the fetched node identifies itself as the
// repository root by its icon property or well-known display name.
func isRootMarked(rec node.Record) bool {
	if rec.Name == rootDisplayName {
		return true
	}
	for k, v := range rec.Properties {
		if strings.Contains(k, "icon") && v == rootIconValue {
			return true
		}
	}
	return false
}

// segmentFor chooses the path segment for a node. The "cm:" namespace
// prefix is applied only when the node's own type tag is in that namespace;
// a proper namespace-registry lookup would go here if broader coverage is
// ever needed.
func segmentFor(rec node.Record) string {
	if strings.HasPrefix(rec.Type, "cm:") {
		return "cm:" + rec.Name
	}
	return rec.Name
}

// parentRef extracts the parent reference from a raw sub-record, trying in
// order: a direct parent field, a parent-reference field, a parent-marker
// property, then an associations scan.
func parentRef(raw map[string]any, props map[string]string) (noderef.Ref, bool) {
	for _, field := range []string{"parent", "parentRef"} {
		if ref, ok := refValue(raw[field]); ok {
			return ref, true
		}
	}

	for k, v := range props {
		if strings.Contains(k, "parent") {
			if ref, err := noderef.Parse(v); err == nil {
				return ref, true
			}
		}
	}

	assocs, ok := raw["associations"].([]any)
	if !ok {
		return noderef.Ref{}, false
	}
	for _, a := range assocs {
		assoc, ok := a.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := assoc["type"].(string)
		if !strings.Contains(typ, "parent") {
			continue
		}
		if ref, ok := refValue(assoc["target"]); ok {
			return ref, true
		}
	}
	return noderef.Ref{}, false
}

// refValue parses a reference out of either a canonical string or an
// object that carries one under "nodeRef".
func refValue(v any) (noderef.Ref, bool) {
	switch t := v.(type) {
	case string:
		if ref, err := noderef.Parse(t); err == nil {
			return ref, true
		}
	case map[string]any:
		if s, ok := t["nodeRef"].(string); ok {
			if ref, err := noderef.Parse(s); err == nil {
				return ref, true
			}
		}
	}
	return noderef.Ref{}, false
}

func prepend(segments []string, s string) []string {
	return append([]string{s}, segments...)
}
