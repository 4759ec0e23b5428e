package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/repobridge/sdk/noderef"
)

// chainFetcher serves a synthetic repository keyed by reference string and
// records every lookup it receives.
type chainFetcher struct {
	nodes   map[string]map[string]any
	fetched []string
}

func (f *chainFetcher) FetchNode(_ context.Context, ref noderef.Ref) (map[string]any, error) {
	f.fetched = append(f.fetched, ref.String())
	raw, ok := f.nodes[ref.String()]
	if !ok {
		return nil, fmt.Errorf("no such node: %s", ref)
	}
	return raw, nil
}

func ref(id string) noderef.Ref {
	return noderef.Ref{Scheme: "workspace", Address: "SpacesStore", ID: id}
}

func folderNode(name, parent string) map[string]any {
	raw := map[string]any{
		"name": name,
		"type": "cm:folder",
	}
	if parent != "" {
		raw["parent"] = parent
	}
	return raw
}

func TestResolveSimpleChain(t *testing.T) {
	root := ref("root-node")
	fetcher := &chainFetcher{nodes: map[string]map[string]any{
		ref("leaf").String(): folderNode("Reports", ref("mid").String()),
		ref("mid").String():  folderNode("Finance", root.String()),
	}}

	r := New(fetcher, WithRoot(root))
	segments, err := r.Resolve(context.Background(), ref("leaf"))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	want := []string{RootSegment, "cm:Finance", "cm:Reports"}
	if len(segments) != len(want) {
		t.Fatalf("segments = %v, want %v", segments, want)
	}
	for i := range want {
		if segments[i] != want[i] {
			t.Errorf("segments[%d] = %q, want %q", i, segments[i], want[i])
		}
	}
}

func TestResolveRootSentinelNoFetch(t *testing.T) {
	root := ref("root-node")
	fetcher := &chainFetcher{nodes: map[string]map[string]any{}}

	r := New(fetcher, WithRoot(root))
	segments, err := r.Resolve(context.Background(), root)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(segments) != 1 || segments[0] != RootSegment {
		t.Errorf("segments = %v, want [%s]", segments, RootSegment)
	}
	if len(fetcher.fetched) != 0 {
		t.Errorf("root sentinel resolution performed %d lookups, want 0", len(fetcher.fetched))
	}
}

func TestResolveRootSentinelCaseInsensitive(t *testing.T) {
	root := ref("Root-Node")
	fetcher := &chainFetcher{nodes: map[string]map[string]any{}}

	r := New(fetcher, WithRoot(noderef.Ref{Scheme: "WORKSPACE", Address: "spacesstore", ID: "ROOT-NODE"}))
	if _, err := r.Resolve(context.Background(), root); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(fetcher.fetched) != 0 {
		t.Errorf("expected no lookups, got %d", len(fetcher.fetched))
	}
}

func TestResolveBareRootMarker(t *testing.T) {
	fetcher := &chainFetcher{nodes: map[string]map[string]any{}}

	r := New(fetcher)
	segments, err := r.Resolve(context.Background(), ref(RootMarker))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("segments = %v, want empty path", segments)
	}
}

func TestResolveRootMarkedByProperties(t *testing.T) {
	// The chain tops out at a node that calls itself the root via its icon
	// property rather than matching any sentinel.
	top := ref("company-home")
	fetcher := &chainFetcher{nodes: map[string]map[string]any{
		ref("leaf").String(): folderNode("Docs", top.String()),
		top.String(): {
			"name": "Company Home",
			"type": "cm:folder",
			"properties": map[string]any{
				"app:icon": "space-icon-default",
			},
		},
	}}

	r := New(fetcher)
	segments, err := r.Resolve(context.Background(), ref("leaf"))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := []string{RootSegment, "cm:Docs"}
	if len(segments) != 2 || segments[0] != want[0] || segments[1] != want[1] {
		t.Errorf("segments = %v, want %v", segments, want)
	}
}

func TestResolveDepthExceeded(t *testing.T) {
	// A parent chain of 51 non-root nodes must trip the ceiling instead of
	// walking forever.
	nodes := make(map[string]map[string]any)
	for i := 0; i < 52; i++ {
		nodes[ref(fmt.Sprintf("n%d", i)).String()] = folderNode(
			fmt.Sprintf("Folder%d", i),
			ref(fmt.Sprintf("n%d", i+1)).String(),
		)
	}
	fetcher := &chainFetcher{nodes: nodes}

	r := New(fetcher)
	_, err := r.Resolve(context.Background(), ref("n0"))
	if !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("Resolve error = %v, want ErrDepthExceeded", err)
	}
}

func TestResolveCycleDetected(t *testing.T) {
	fetcher := &chainFetcher{nodes: map[string]map[string]any{
		ref("a").String(): folderNode("A", ref("b").String()),
		ref("b").String(): folderNode("B", ref("a").String()),
	}}

	r := New(fetcher)
	_, err := r.Resolve(context.Background(), ref("a"))
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("Resolve error = %v, want ErrCycle", err)
	}
	// The cycle must be caught deterministically, after exactly one
	// revisit, not after walking to the ceiling.
	if len(fetcher.fetched) > 3 {
		t.Errorf("cycle took %d lookups to detect", len(fetcher.fetched))
	}
}

func TestResolveNoParent(t *testing.T) {
	fetcher := &chainFetcher{nodes: map[string]map[string]any{
		ref("orphan").String(): {"name": "Orphan", "type": "cm:folder"},
	}}

	r := New(fetcher)
	_, err := r.Resolve(context.Background(), ref("orphan"))
	if !errors.Is(err, ErrNoParent) {
		t.Fatalf("Resolve error = %v, want ErrNoParent", err)
	}
}

func TestResolveFetchFailure(t *testing.T) {
	fetcher := &chainFetcher{nodes: map[string]map[string]any{}}

	r := New(fetcher)
	_, err := r.Resolve(context.Background(), ref("missing"))
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Resolve error = %v, want ErrFetchFailed", err)
	}
	// Diagnostics must name the reference that triggered the failure.
	if want := ref("missing").String(); !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name %s", err, want)
	}
}

func TestResolveParentStrategies(t *testing.T) {
	root := ref("root-node")

	tests := []struct {
		name string
		raw  map[string]any
	}{
		{
			name: "direct parent field",
			raw: map[string]any{
				"name": "Docs", "type": "cm:folder",
				"parent": root.String(),
			},
		},
		{
			name: "parentRef field",
			raw: map[string]any{
				"name": "Docs", "type": "cm:folder",
				"parentRef": root.String(),
			},
		},
		{
			name: "parent object with nodeRef",
			raw: map[string]any{
				"name": "Docs", "type": "cm:folder",
				"parent": map[string]any{"nodeRef": root.String()},
			},
		},
		{
			name: "parent marker property",
			raw: map[string]any{
				"name": "Docs", "type": "cm:folder",
				"properties": map[string]any{
					"sys:parent-assoc": root.String(),
				},
			},
		},
		{
			name: "associations scan",
			raw: map[string]any{
				"name": "Docs", "type": "cm:folder",
				"associations": []any{
					map[string]any{"type": "cm:contains-child", "target": "workspace://SpacesStore/other"},
					map[string]any{"type": "sys:parent-assoc", "target": root.String()},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &chainFetcher{nodes: map[string]map[string]any{
				ref("leaf").String(): tt.raw,
			}}
			r := New(fetcher, WithRoot(root))

			segments, err := r.Resolve(context.Background(), ref("leaf"))
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			want := []string{RootSegment, "cm:Docs"}
			if len(segments) != 2 || segments[0] != want[0] || segments[1] != want[1] {
				t.Errorf("segments = %v, want %v", segments, want)
			}
		})
	}
}

func TestResolveNonCMTypeHasNoPrefix(t *testing.T) {
	root := ref("root-node")
	fetcher := &chainFetcher{nodes: map[string]map[string]any{
		ref("leaf").String(): {
			"name":   "datalist",
			"type":   "dl:dataList",
			"parent": root.String(),
		},
	}}

	r := New(fetcher, WithRoot(root))
	segments, err := r.Resolve(context.Background(), ref("leaf"))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if segments[1] != "datalist" {
		t.Errorf("segment = %q, want unprefixed datalist", segments[1])
	}
}
