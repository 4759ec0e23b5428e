package query

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/repobridge/sdk/node"
)

// ErrNotBoolean is returned when a filter expression does not evaluate to a
// boolean.
var ErrNotBoolean = errors.New("query: expression must evaluate to a boolean")

// Filter is a compiled record predicate.
//
// A Filter is immutable after construction and safe for concurrent use.
type Filter struct {
	expr    string
	program cel.Program
}

// NewFilter compiles a CEL expression into a record predicate.
//
// The expression sees four variables:
//
//	name       string              the record's display name
//	type       string              the record's content type
//	ref        string              the canonical reference string
//	properties map(string, string) the record's property bag
func NewFilter(expr string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("type", cel.StringType),
		cel.Variable("ref", cel.StringType),
		cel.Variable("properties", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("query: failed to create environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("query: failed to compile %q: %w", expr, issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q yields %s", ErrNotBoolean, expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("query: failed to build program for %q: %w", expr, err)
	}

	return &Filter{expr: expr, program: program}, nil
}

// Expression returns the source expression the filter was compiled from.
func (f *Filter) Expression() string {
	return f.expr
}

// Match evaluates the filter against a single record.
func (f *Filter) Match(rec node.Record) (bool, error) {
	properties := rec.Properties
	if properties == nil {
		properties = map[string]string{}
	}

	out, _, err := f.program.Eval(map[string]any{
		"name":       rec.Name,
		"type":       rec.Type,
		"ref":        rec.Ref.String(),
		"properties": properties,
	})
	if err != nil {
		return false, fmt.Errorf("query: failed to evaluate %q: %w", f.expr, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q yielded %T", ErrNotBoolean, f.expr, out.Value())
	}
	return matched, nil
}

// Apply returns the records the filter accepts, preserving input order.
// Records whose evaluation fails are skipped.
func (f *Filter) Apply(records []node.Record) []node.Record {
	matched := make([]node.Record, 0, len(records))
	for _, rec := range records {
		ok, err := f.Match(rec)
		if err != nil || !ok {
			continue
		}
		matched = append(matched, rec)
	}
	return matched
}
