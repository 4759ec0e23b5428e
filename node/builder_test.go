package node

import (
	"errors"
	"testing"
)

func TestBuildDirectReference(t *testing.T) {
	raw := map[string]any{
		"nodeRef": "workspace://SpacesStore/abc-123",
		"name":    "report.pdf",
		"type":    "cm:content",
		"properties": map[string]any{
			"cm:title": "Quarterly report",
		},
	}

	rec, err := Build(raw)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if got := rec.Ref.String(); got != "workspace://SpacesStore/abc-123" {
		t.Errorf("Ref = %q, want workspace://SpacesStore/abc-123", got)
	}
	if rec.Name != "report.pdf" {
		t.Errorf("Name = %q, want report.pdf", rec.Name)
	}
	if rec.Type != "cm:content" {
		t.Errorf("Type = %q, want cm:content", rec.Type)
	}
	if rec.Properties["cm:title"] != "Quarterly report" {
		t.Errorf("Properties = %v, missing cm:title", rec.Properties)
	}
}

func TestBuildFromColumnBag(t *testing.T) {
	// No direct reference; identity must be reconstructed from the
	// namespace-prefixed identity columns.
	raw := map[string]any{
		"columns": []any{
			column("{http://www.alfresco.org/model/system/1.0}store-protocol", "workspace"),
			column("{http://www.alfresco.org/model/system/1.0}store-identifier", "SpacesStore"),
			column("{http://www.alfresco.org/model/system/1.0}node-uuid", "col-uuid-1"),
			column("{http://www.alfresco.org/model/content/1.0}name", "from-columns.txt"),
		},
	}

	rec, err := Build(raw)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if got := rec.Ref.String(); got != "workspace://SpacesStore/col-uuid-1" {
		t.Errorf("Ref = %q, want workspace://SpacesStore/col-uuid-1", got)
	}
	if rec.Name != "from-columns.txt" {
		t.Errorf("Name = %q, want from-columns.txt", rec.Name)
	}
	if rec.Type != TypeUnknown {
		t.Errorf("Type = %q, want %q", rec.Type, TypeUnknown)
	}
}

func TestBuildNameFallsBackToID(t *testing.T) {
	// No name field and no name-like property: the reference's last path
	// segment becomes the name.
	raw := map[string]any{
		"nodeRef": "workspace://SpacesStore/abc-123",
	}

	rec, err := Build(raw)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if rec.Name != "abc-123" {
		t.Errorf("Name = %q, want abc-123", rec.Name)
	}
}

func TestBuildNamePropertySubstringMatch(t *testing.T) {
	raw := map[string]any{
		"nodeRef": "workspace://SpacesStore/abc-123",
		"properties": map[string]any{
			"{http://www.alfresco.org/model/content/1.0}name": "prop-name.txt",
		},
	}

	rec, err := Build(raw)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if rec.Name != "prop-name.txt" {
		t.Errorf("Name = %q, want prop-name.txt", rec.Name)
	}
}

func TestBuildUnconstructible(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{
			name: "missing uuid column",
			raw: map[string]any{
				"columns": []any{
					column("sys:store-protocol", "workspace"),
					column("sys:store-identifier", "SpacesStore"),
				},
			},
		},
		{
			name: "no identity at all",
			raw:  map[string]any{"name": "orphan"},
		},
		{
			name: "unparseable direct reference",
			raw:  map[string]any{"nodeRef": "not-a-reference"},
		},
		{
			name: "not an object",
			raw:  "scalar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.raw)
			if !errors.Is(err, ErrUnconstructible) {
				t.Errorf("Build error = %v, want ErrUnconstructible", err)
			}
		})
	}
}

func TestBuildColumnLastWriteWins(t *testing.T) {
	raw := map[string]any{
		"nodeRef": "workspace://SpacesStore/abc",
		"columns": []any{
			column("cm:title", "first"),
			column("cm:title", "second"),
		},
	}

	rec, err := Build(raw)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if rec.Properties["cm:title"] != "second" {
		t.Errorf("Properties[cm:title] = %q, want second", rec.Properties["cm:title"])
	}
}

func column(name, value string) map[string]any {
	return map[string]any{"name": name, "value": value}
}
