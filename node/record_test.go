package node

import (
	"testing"
)

// TestNormalizeShapeTolerance feeds the same two logical records through
// every known envelope shape and expects identical output.
func TestNormalizeShapeTolerance(t *testing.T) {
	recA := rawRecord("workspace://SpacesStore/a", "a.txt")
	recB := rawRecord("workspace://SpacesStore/b", "b.txt")

	shapes := map[string]any{
		"bare array": []any{recA, recB},
		"result set rows": map[string]any{
			"resultSet": map[string]any{"rows": []any{recA, recB}},
		},
		"generic items": map[string]any{
			"items": []any{recA, recB},
		},
	}

	for name, payload := range shapes {
		t.Run(name, func(t *testing.T) {
			records, dropped := Normalize(payload)
			if dropped != 0 {
				t.Errorf("dropped = %d, want 0", dropped)
			}
			if len(records) != 2 {
				t.Fatalf("got %d records, want 2", len(records))
			}
			if records[0].Ref.ID != "a" || records[1].Ref.ID != "b" {
				t.Errorf("records out of order: %v", records)
			}
		})
	}
}

func TestNormalizeSingleObjectRow(t *testing.T) {
	payload := map[string]any{
		"resultSet": map[string]any{
			"rows": rawRecord("workspace://SpacesStore/only", "only.txt"),
		},
	}

	records, dropped := Normalize(payload)
	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}
	if len(records) != 1 || records[0].Name != "only.txt" {
		t.Fatalf("got %v, want single only.txt record", records)
	}
}

func TestNormalizeColumnRecords(t *testing.T) {
	payload := []any{
		map[string]any{
			"columns": []any{
				column("sys:store-protocol", "workspace"),
				column("sys:store-identifier", "SpacesStore"),
				column("sys:node-uuid", "uuid-1"),
				column("cm:name", "first.txt"),
			},
		},
		map[string]any{
			"columns": []any{
				column("sys:store-protocol", "workspace"),
				column("sys:store-identifier", "SpacesStore"),
				column("sys:node-uuid", "uuid-2"),
				column("cm:name", "second.txt"),
			},
		},
	}

	records, dropped := Normalize(payload)
	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Ref.String() != "workspace://SpacesStore/uuid-1" {
		t.Errorf("first ref = %s", records[0].Ref)
	}
	if records[1].Name != "second.txt" {
		t.Errorf("second name = %q, want second.txt", records[1].Name)
	}
}

// TestNormalizeDropsUnconstructible checks that unresolvable entries are
// dropped and accounted for: 3 raw records with 1 missing uuid yields
// exactly 2 output records and a dropped count of 1.
func TestNormalizeDropsUnconstructible(t *testing.T) {
	payload := []any{
		rawRecord("workspace://SpacesStore/ok-1", "ok1"),
		map[string]any{
			"columns": []any{
				column("sys:store-protocol", "workspace"),
				column("sys:store-identifier", "SpacesStore"),
				// node-uuid missing: unconstructible
			},
		},
		rawRecord("workspace://SpacesStore/ok-2", "ok2"),
	}

	records, dropped := Normalize(payload)
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for _, rec := range records {
		if rec.Type == "" || rec.Name == "" {
			t.Errorf("record %v has empty name or type", rec)
		}
	}
}

func TestNormalizeEmptyEnvelope(t *testing.T) {
	records, dropped := Normalize(map[string]any{"status": "ok"})
	if len(records) != 0 || dropped != 0 {
		t.Errorf("got %d records, %d dropped, want 0/0", len(records), dropped)
	}
}

func TestIsFolder(t *testing.T) {
	if !(Record{Type: "cm:folder"}).IsFolder() {
		t.Error("cm:folder should be a folder")
	}
	if (Record{Type: "cm:content"}).IsFolder() {
		t.Error("cm:content should not be a folder")
	}
}
