// Package sqlboiler binds the keyset paginator (package cursor) and the CEL
// predicate lowerer (package predicate) to github.com/aarondl/sqlboiler/v4
// query mods, generalizing the teacher's strategy-specific query builder
// (sqlboiler/cursor.go) to an arbitrary caller-supplied predicate tree
// instead of a single hardcoded keyset comparison.
package sqlboiler

import (
	"fmt"
	"strings"
	"time"

	"github.com/aarondl/strmangle"
	"github.com/google/uuid"

	"github.com/nrfta/seekpage/predicate"
)

// FieldHandle is a quoted SQL column reference, e.g. `"products"."price"`.
type FieldHandle string

// sqlPredicate is the concrete Predicate value this package produces: a
// parameterized WHERE fragment using "?" placeholders, which sqlboiler's
// query builder rebinds to the connection's dialect (mirrors the teacher's
// rawWhereClause/queries.AppendWhere pattern).
type sqlPredicate struct {
	clause string
	args   []any
}

// FieldSet maps the caller's allowed field names to quoted columns and
// implements predicate.PredicateBuilder over them.
type FieldSet struct {
	handles map[string]FieldHandle
}

// NewFieldSet builds a FieldSet from a map of field name to column handle,
// e.g. NewFieldSet(map[string]FieldHandle{"category": Column("products", "category")}).
func NewFieldSet(handles map[string]FieldHandle) *FieldSet {
	return &FieldSet{handles: handles}
}

// Column quotes a table.column pair the way sqlboiler-generated model code
// already does, so handles composed here read identically to the SELECT
// list sqlboiler emits for the same table.
func Column(table, column string) FieldHandle {
	return FieldHandle(fmt.Sprintf("%q.%q", table, column))
}

// Fields returns the allowed field names this FieldSet recognizes, for
// constructing ExtractOrdering results and filterexpr safelists from the
// same source of truth.
func (fs *FieldSet) Fields() map[string]bool {
	out := make(map[string]bool, len(fs.handles))
	for name := range fs.handles {
		out[name] = true
	}
	return out
}

func (fs *FieldSet) FieldHandle(name string) (predicate.Handle, bool) {
	h, ok := fs.handles[name]
	return h, ok
}

func (fs *FieldSet) And(preds ...predicate.Predicate) predicate.Predicate {
	return combine(preds, "AND")
}

func (fs *FieldSet) Or(preds ...predicate.Predicate) predicate.Predicate {
	return combine(preds, "OR")
}

func (fs *FieldSet) Not(pred predicate.Predicate) predicate.Predicate {
	p := pred.(sqlPredicate)
	return sqlPredicate{clause: "NOT (" + p.clause + ")", args: p.args}
}

func combine(preds []predicate.Predicate, joiner string) predicate.Predicate {
	if len(preds) == 1 {
		return preds[0]
	}
	clauses := make([]string, len(preds))
	var args []any
	for i, p := range preds {
		sp := p.(sqlPredicate)
		clauses[i] = sp.clause
		args = append(args, sp.args...)
	}
	return sqlPredicate{clause: "(" + strings.Join(clauses, " "+joiner+" ") + ")", args: args}
}

func (fs *FieldSet) Compare(handle predicate.Handle, op predicate.Op, literal any) (predicate.Predicate, error) {
	column := string(handle.(FieldHandle))

	if op == predicate.In {
		values, ok := literal.([]any)
		if !ok {
			return nil, fmt.Errorf("in requires a list literal")
		}
		placeholders := strmangle.Placeholders(false, len(values), 1, 1)
		return sqlPredicate{clause: fmt.Sprintf("%s IN (%s)", column, placeholders), args: values}, nil
	}

	sqlOp, ok := sqlOperator(op)
	if !ok {
		return nil, fmt.Errorf("unsupported operator %q", op)
	}
	return sqlPredicate{clause: fmt.Sprintf("%s %s ?", column, sqlOp), args: []any{convertValueForSQL(literal)}}, nil
}

func (fs *FieldSet) StringMethod(handle predicate.Handle, method predicate.StringMethod, arg string) (predicate.Predicate, error) {
	column := string(handle.(FieldHandle))

	var pattern string
	switch method {
	case predicate.Contains:
		pattern = "%" + arg + "%"
	case predicate.StartsWith:
		pattern = arg + "%"
	case predicate.EndsWith:
		pattern = "%" + arg
	default:
		return nil, fmt.Errorf("unsupported string method %q", method)
	}
	return sqlPredicate{clause: fmt.Sprintf("%s ILIKE ?", column), args: []any{pattern}}, nil
}

func sqlOperator(op predicate.Op) (string, bool) {
	switch op {
	case predicate.Eq:
		return "=", true
	case predicate.Ne:
		return "!=", true
	case predicate.Lt:
		return "<", true
	case predicate.Le:
		return "<=", true
	case predicate.Gt:
		return ">", true
	case predicate.Ge:
		return ">=", true
	default:
		return "", false
	}
}

// convertValueForSQL normalizes JSON-decoded cursor/filter values to the
// types lib/pq expects, matching the teacher's sqlboiler/cursor.go helper
// of the same name. Cursor values round-trip through JSON as strings for
// any scalar type that isn't a plain number or bool, so a timestamp or
// UUID column's seek value arrives here as its canonical string form and
// must be parsed back before it's bound as a query argument.
func convertValueForSQL(val any) any {
	switch v := val.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if id, err := uuid.Parse(v); err == nil {
			return id
		}
		return v
	default:
		return v
	}
}
