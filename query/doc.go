// Package query filters node records with CEL expressions.
//
// Listings from large folders often need client-side narrowing before they
// are useful. A Filter compiles a CEL expression once and evaluates it
// against each record, exposing the record's name, type, reference string,
// and property bag as expression variables:
//
//	f, err := query.NewFilter(`type == "cm:folder" && name.startsWith("cm:Fin")`)
//	if err != nil {
//	    return err
//	}
//	folders := f.Apply(records)
//
// Expressions must evaluate to a boolean. Compilation errors surface at
// NewFilter time, not during evaluation.
package query
