package node

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/repobridge/sdk/noderef"
)

// ErrUnconstructible is returned by Build when a raw sub-record carries
// neither a parseable node reference nor a property bag from which one can
// be reconstructed.
var ErrUnconstructible = errors.New("node: record carries no usable identity")

// Distinguishing substrings of the three well-known identity properties.
// Property names arrive with namespace-URI prefixes that vary by operation
// ("{http://.../system/1.0}store-protocol" vs "sys:store-protocol"), so
// matching is done by substring rather than equality.
const (
	keyStoreProtocol   = "store-protocol"
	keyStoreIdentifier = "store-identifier"
	keyNodeUUID        = "node-uuid"
	keyName            = "name"
)

// Raw record field names that carry a reference or name directly.
const (
	fieldNodeRef    = "nodeRef"
	fieldReference  = "reference"
	fieldName       = "name"
	fieldType       = "type"
	fieldProperties = "properties"
	fieldColumns    = "columns"
)

// Build constructs a normalized Record from one raw sub-record.
//
// Identity comes from a direct reference field when present, otherwise it is
// reconstructed from the property bag's store-protocol, store-identifier and
// node-uuid properties. If neither route produces a valid reference the
// record is unconstructible and Build fails with ErrUnconstructible.
//
// Build is a pure function: no I/O, no mutation of the input.
func Build(raw any) (Record, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Record{}, fmt.Errorf("%w: sub-record is %T, not an object", ErrUnconstructible, raw)
	}

	props := propertyBag(m)

	ref, err := recordRef(m, props)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Ref:        ref,
		Name:       recordName(m, props, ref),
		Type:       recordType(m),
		Properties: props,
	}, nil
}

// recordRef resolves the node reference: direct field first, property-bag
// reconstruction second.
func recordRef(m map[string]any, props map[string]string) (noderef.Ref, error) {
	for _, field := range []string{fieldNodeRef, fieldReference} {
		if s, ok := stringField(m, field); ok {
			ref, err := noderef.Parse(s)
			if err != nil {
				return noderef.Ref{}, fmt.Errorf("%w: %v", ErrUnconstructible, err)
			}
			return ref, nil
		}
	}

	scheme, okScheme := findProperty(props, keyStoreProtocol)
	address, okAddress := findProperty(props, keyStoreIdentifier)
	id, okID := findProperty(props, keyNodeUUID)
	if !okScheme || !okAddress || !okID {
		return noderef.Ref{}, fmt.Errorf("%w: identity properties incomplete", ErrUnconstructible)
	}

	ref := noderef.Ref{Scheme: scheme, Address: address, ID: id}
	if err := ref.Validate(); err != nil {
		return noderef.Ref{}, fmt.Errorf("%w: %v", ErrUnconstructible, err)
	}
	return ref, nil
}

// recordName resolves the display name: explicit field, name-like property,
// last path segment of the reference, literal "Unknown".
func recordName(m map[string]any, props map[string]string, ref noderef.Ref) string {
	if s, ok := stringField(m, fieldName); ok {
		return s
	}
	if s, ok := findProperty(props, keyName); ok && s != "" {
		return s
	}
	if seg := lastSegment(ref.ID); seg != "" {
		return seg
	}
	return "Unknown"
}

func recordType(m map[string]any) string {
	if s, ok := stringField(m, fieldType); ok {
		return s
	}
	return TypeUnknown
}

// propertyBag extracts the node's property map. A structured "properties"
// object wins; otherwise the map is rebuilt from a column array by assigning
// column.value under column.name verbatim, last write wins on collision.
func propertyBag(m map[string]any) map[string]string {
	if pm, ok := m[fieldProperties].(map[string]any); ok {
		props := make(map[string]string, len(pm))
		for k, v := range pm {
			if s, ok := v.(string); ok {
				props[k] = s
			} else if v != nil {
				props[k] = fmt.Sprint(v)
			}
		}
		return props
	}

	cols, ok := m[fieldColumns].([]any)
	if !ok {
		return nil
	}
	props := make(map[string]string, len(cols))
	for _, c := range cols {
		col, ok := c.(map[string]any)
		if !ok {
			continue
		}
		name, ok := stringField(col, "name")
		if !ok {
			continue
		}
		value, _ := stringField(col, "value")
		props[name] = value
	}
	return props
}

// findProperty locates a property whose (namespace-prefixed) name contains
// the given substring and has a non-empty value. Keys are scanned in sorted
// order so a bag with several matching keys resolves the same way on every
// call.
func findProperty(props map[string]string, substr string) (string, bool) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.Contains(k, substr) && props[k] != "" {
			return props[k], true
		}
	}
	return "", false
}

func stringField(m map[string]any, field string) (string, bool) {
	v, ok := m[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// lastSegment returns the part of an item ID after its final "/", which is
// the ID itself for the common flat case.
func lastSegment(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}
