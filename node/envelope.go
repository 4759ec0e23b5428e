package node

// Envelope field names probed during shape detection. The order of the
// rules in Flatten is significant: the first matching rule wins.
const (
	fieldResultSet = "resultSet"
	fieldRows      = "rows"
	fieldNode      = "node"
	fieldResult    = "result"
	fieldItems     = "items"
	fieldNodes     = "nodes"
)

// Flatten extracts the flat sequence of raw per-node sub-records from a
// response envelope, discarding the outer shape. The known shapes, in
// priority order:
//
//  1. the envelope itself is a sequence
//  2. a nested result set with a "rows" field (a bare object is coerced
//     to a one-element sequence)
//  3. a singular legacy field ("node" or "result")
//  4. a generic "items" or "nodes" field
//
// Anything else yields an empty sequence. Flatten does not validate the
// sub-records themselves; that is Build's job, which also accounts for
// elements that turn out not to be records at all.
func Flatten(payload any) []any {
	switch v := payload.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	case map[string]any:
		if rs, ok := v[fieldResultSet]; ok {
			if rows := rowsOf(rs); rows != nil {
				return rows
			}
		}
		// Some envelopes hang "rows" directly off the top level.
		if rows, ok := v[fieldRows]; ok {
			return coerceSequence(rows)
		}
		if single, ok := v[fieldNode]; ok {
			return coerceSequence(single)
		}
		if single, ok := v[fieldResult]; ok {
			return coerceSequence(single)
		}
		if items, ok := v[fieldItems]; ok {
			return coerceSequence(items)
		}
		if nodes, ok := v[fieldNodes]; ok {
			return coerceSequence(nodes)
		}
	}
	return nil
}

// rowsOf digs the "rows" field out of a result-set value.
func rowsOf(rs any) []any {
	m, ok := rs.(map[string]any)
	if !ok {
		return nil
	}
	rows, ok := m[fieldRows]
	if !ok {
		return nil
	}
	return coerceSequence(rows)
}

// coerceSequence turns a field value into a sequence of raw sub-records;
// a bare object becomes a one-element sequence.
func coerceSequence(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []map[string]any:
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out
	case map[string]any:
		return []any{s}
	}
	return nil
}
