package node

import (
	"github.com/repobridge/sdk/noderef"
)

// TypeUnknown is the sentinel type tag assigned when a raw record carries no
// usable type information.
const TypeUnknown = "unknown"

// Record is the normalized representation of a single repository node.
//
// A Record is built fresh on every normalization call and never cached or
// mutated afterwards; the caller owns it. Name is never empty: when no name
// can be determined from the raw record, the last path segment of the
// reference is used, and failing that the literal "Unknown".
type Record struct {
	// Ref is the canonical three-part reference of the node.
	Ref noderef.Ref `json:"ref"`

	// Name is the display name of the node.
	Name string `json:"name"`

	// Type is the node's type tag (e.g. "cm:folder"), or TypeUnknown.
	Type string `json:"type"`

	// Properties holds the node's property map keyed by the server's
	// (namespace-prefixed) property names.
	Properties map[string]string `json:"properties,omitempty"`
}

// IsFolder reports whether the node's type tag marks it as a container.
func (r Record) IsFolder() bool {
	return r.Type == "cm:folder" || r.Type == "st:site" || r.Type == "cm:systemfolder"
}

// Normalize runs the full pipeline over a raw response envelope: the
// envelope is flattened into raw sub-records and each sub-record is built
// into a Record. Sub-records without a usable identity are dropped; the
// second return value is the number dropped.
//
// Normalize never fails: an uninterpretable envelope yields an empty slice.
func Normalize(payload any) ([]Record, int) {
	raws := Flatten(payload)

	records := make([]Record, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		rec, err := Build(raw)
		if err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}

	return records, dropped
}
