package transport

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// decodeBody converts a SOAP response document into generic nested maps.
//
// Element names lose their namespace prefix, attributes become string
// entries, repeated sibling elements collapse into a sequence, and
// text-only elements become plain strings. The result feeds the node
// package's shape detection, which is why nothing here tries to impose a
// schema on the payload.
func decodeBody(data []byte) (map[string]any, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty document", ErrRequestFailed)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		v, err := decodeElement(d, start)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			m = map[string]any{start.Name.Local: v}
		}
		return m, nil
	}
}

// decodeElement consumes one element and its subtree. An element with no
// child elements decodes to its trimmed character data even when it carries
// attributes, since in the wire format those attributes are type annotations
// and the text is the value.
func decodeElement(d *xml.Decoder, start xml.StartElement) (any, error) {
	children := make(map[string]any)
	for _, attr := range start.Attr {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		children[attr.Name.Local] = attr.Value
	}

	var text strings.Builder
	elems := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(d, t)
			if err != nil {
				return nil, err
			}
			addChild(children, t.Name.Local, child)
			elems++
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if trimmed := strings.TrimSpace(text.String()); elems == 0 && (trimmed != "" || len(children) == 0) {
				return trimmed, nil
			}
			return children, nil
		}
	}
}

// addChild inserts a decoded child, turning repeated siblings into a
// sequence.
func addChild(children map[string]any, name string, child any) {
	existing, ok := children[name]
	if !ok {
		children[name] = child
		return
	}
	if list, ok := existing.([]any); ok {
		children[name] = append(list, child)
		return
	}
	children[name] = []any{existing, child}
}

// unwrap descends from the SOAP envelope to the operation payload: the
// Envelope and Body wrappers are stripped, a Fault is surfaced as an error,
// and single-child response wrappers (getResponse, queryReturn and friends)
// are peeled until a payload-looking map emerges.
func unwrap(doc map[string]any) (any, error) {
	v := any(doc)
	for _, wrapper := range []string{"Envelope", "Body"} {
		m, ok := v.(map[string]any)
		if !ok {
			break
		}
		if inner, ok := m[wrapper]; ok {
			v = inner
		}
	}

	if m, ok := v.(map[string]any); ok {
		if f, ok := m["Fault"]; ok {
			return nil, fmt.Errorf("%w: %s", ErrFault, faultString(f))
		}
	}

	for i := 0; i < 8; i++ {
		m, ok := v.(map[string]any)
		if !ok || isPayload(m) || len(m) != 1 {
			break
		}
		for _, inner := range m {
			v = inner
		}
	}

	synthesizeRefs(v)
	return v, nil
}

// isPayload reports whether a map already exposes one of the envelope
// fields the normalizer knows how to flatten.
func isPayload(m map[string]any) bool {
	for _, k := range []string{"resultSet", "rows", "node", "result", "items", "nodes", "nodeRef", "columns"} {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func faultString(f any) string {
	m, ok := f.(map[string]any)
	if !ok {
		return fmt.Sprint(f)
	}
	for _, k := range []string{"faultstring", "faultString", "Reason"} {
		if s, ok := m[k].(string); ok {
			return s
		}
	}
	return fmt.Sprint(m)
}

// synthesizeRefs walks the payload and, wherever a record carries its
// identity as a nested reference element (scheme/address attributes plus a
// uuid child) instead of a canonical string, writes the equivalent
// "nodeRef" entry so the record builder has a direct reference to use.
func synthesizeRefs(v any) {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			synthesizeRefs(e)
		}
	case map[string]any:
		for _, field := range []string{"reference", "node"} {
			nested, ok := t[field].(map[string]any)
			if !ok {
				continue
			}
			scheme, _ := nested["scheme"].(string)
			address, _ := nested["address"].(string)
			uuid, _ := nested["uuid"].(string)
			if scheme != "" && address != "" && uuid != "" {
				canonical := scheme + "://" + address + "/" + uuid
				if _, exists := t["nodeRef"]; !exists {
					t["nodeRef"] = canonical
				}
				// The nested element may itself be served as the record.
				if _, exists := nested["nodeRef"]; !exists {
					nested["nodeRef"] = canonical
				}
			}
		}
		for _, e := range t {
			synthesizeRefs(e)
		}
	}
}
