// Package predicate lowers a validated CEL filter AST into a
// backend-specific predicate value (C4), via a small capability interface
// the backend binding implements. It never talks to a database itself.
package predicate

import (
	"reflect"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"

	"github.com/nrfta/seekpage"
)

var anyReflectType = reflect.TypeOf((*any)(nil)).Elem()

// Op is one of the comparison operators §4.4 supports.
type Op string

const (
	Eq Op = "=="
	Ne Op = "!="
	Lt Op = "<"
	Le Op = "<="
	Gt Op = ">"
	Ge Op = ">="
	In Op = "in"
)

// StringMethod is one of the three supported string predicate methods.
type StringMethod string

const (
	Contains   StringMethod = "contains"
	StartsWith StringMethod = "startsWith"
	EndsWith   StringMethod = "endsWith"
)

// Handle is an opaque, backend-specific reference to a field (e.g. a
// quoted SQL column name), returned by PredicateBuilder.FieldHandle.
type Handle any

// Predicate is an opaque, backend-specific predicate value.
type Predicate any

// PredicateBuilder is the capability a backend binding supplies to lower a
// filter AST into its own predicate representation (§4.4).
type PredicateBuilder interface {
	// FieldHandle resolves an allowed field name to a backend handle. ok is
	// false when the name is not recognized — a defensive check performed
	// even though the AST should already have passed ValidateFields.
	FieldHandle(name string) (Handle, bool)

	// And and Or combine zero-or-more predicates. A single-element slice
	// must be returned unwrapped, not wrapped in a redundant conjunction.
	And(preds ...Predicate) Predicate
	Or(preds ...Predicate) Predicate

	// Not negates a predicate that could not be inverted by swapping its
	// operator (the fallback path of §4.4's unary-negation rule).
	Not(pred Predicate) Predicate

	// Compare emits a predicate comparing handle to literal using op.
	Compare(handle Handle, op Op, literal any) (Predicate, error)

	// StringMethod emits a predicate for one of the three supported
	// case-insensitive string methods.
	StringMethod(handle Handle, method StringMethod, arg string) (Predicate, error)
}

// Lower walks a (a pre-validated) CEL filter AST and emits a Predicate via
// builder. allowed must be the same safelist the AST was already validated
// against with filterexpr.ValidateFields; Lower re-checks every field
// reference defensively (§4.4, "Safety").
func Lower(a *cel.Ast, allowed map[string]bool, builder PredicateBuilder) (Predicate, error) {
	if a == nil {
		return nil, &paging.ParseError{Expression: "", Cause: nil}
	}
	native := a.NativeRep()
	if native == nil {
		return nil, &paging.ParseError{Expression: "", Cause: nil}
	}
	return lowerExpr(native.Expr(), allowed, builder)
}

func lowerExpr(e ast.Expr, allowed map[string]bool, b PredicateBuilder) (Predicate, error) {
	if e == nil {
		return nil, &paging.ValidationError{Disallowed: nil}
	}

	switch e.Kind() {
	case ast.CallKind:
		return lowerCall(e.AsCall(), allowed, b)
	default:
		return nil, &paging.ValidationError{Disallowed: []string{exprDescription(e)}}
	}
}

func lowerCall(call ast.CallExpr, allowed map[string]bool, b PredicateBuilder) (Predicate, error) {
	fn := call.FunctionName()

	switch fn {
	case "_&&_", "&&":
		return lowerVariadicLogical(call.Args(), allowed, b, b.And)
	case "_||_", "||":
		return lowerVariadicLogical(call.Args(), allowed, b, b.Or)
	case "!_":
		return lowerNegation(call.Args(), allowed, b)
	case "_==_":
		return lowerComparison(call.Args(), Eq, allowed, b)
	case "_!=_":
		return lowerComparison(call.Args(), Ne, allowed, b)
	case "_<_":
		return lowerComparison(call.Args(), Lt, allowed, b)
	case "_<=_":
		return lowerComparison(call.Args(), Le, allowed, b)
	case "_>_":
		return lowerComparison(call.Args(), Gt, allowed, b)
	case "_>=_":
		return lowerComparison(call.Args(), Ge, allowed, b)
	case "@in":
		return lowerComparison(call.Args(), In, allowed, b)
	case "contains":
		return lowerStringMethod(call, Contains, allowed, b)
	case "startsWith":
		return lowerStringMethod(call, StartsWith, allowed, b)
	case "endsWith":
		return lowerStringMethod(call, EndsWith, allowed, b)
	default:
		return nil, &paging.ValidationError{Disallowed: []string{fn + "(...)"}}
	}
}

func lowerVariadicLogical(args []ast.Expr, allowed map[string]bool, b PredicateBuilder, combine func(...Predicate) Predicate) (Predicate, error) {
	preds := make([]Predicate, 0, len(args))
	for _, arg := range args {
		p, err := lowerExpr(arg, allowed, b)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return combine(preds...), nil
}

func lowerNegation(args []ast.Expr, allowed map[string]bool, b PredicateBuilder) (Predicate, error) {
	if len(args) != 1 {
		return nil, &paging.ValidationError{Disallowed: []string{"!(...)"}}
	}
	inner := args[0]

	// Invert a direct == or != comparison by operator instead of wrapping
	// in Not, per §4.4's unary-negation rule; every other negated
	// expression goes through Not below.
	if inner.Kind() == ast.CallKind {
		call := inner.AsCall()
		if inverse, ok := inverseOp(call.FunctionName()); ok {
			return lowerComparison(call.Args(), inverse, allowed, b)
		}
	}

	p, err := lowerExpr(inner, allowed, b)
	if err != nil {
		return nil, err
	}
	return b.Not(p), nil
}

func inverseOp(fn string) (Op, bool) {
	switch fn {
	case "_==_":
		return Ne, true
	case "_!=_":
		return Eq, true
	default:
		return "", false
	}
}

func lowerComparison(args []ast.Expr, op Op, allowed map[string]bool, b PredicateBuilder) (Predicate, error) {
	if len(args) != 2 {
		return nil, &paging.ValidationError{Disallowed: []string{string(op)}}
	}
	handle, field, err := resolveFieldOperand(args[0], allowed, b)
	if err != nil {
		return nil, err
	}
	literal, err := literalValue(args[1])
	if err != nil {
		return nil, err
	}
	pred, err := b.Compare(handle, op, literal)
	if err != nil {
		return nil, &paging.ValidationError{Disallowed: []string{field}}
	}
	return pred, nil
}

func lowerStringMethod(call ast.CallExpr, method StringMethod, allowed map[string]bool, b PredicateBuilder) (Predicate, error) {
	if !call.IsMemberFunction() {
		return nil, &paging.ValidationError{Disallowed: []string{string(method) + "(...)"}}
	}
	handle, field, err := resolveFieldOperand(call.Target(), allowed, b)
	if err != nil {
		return nil, err
	}
	args := call.Args()
	if len(args) != 1 {
		return nil, &paging.ValidationError{Disallowed: []string{field + "." + string(method)}}
	}
	lit, err := literalValue(args[0])
	if err != nil {
		return nil, err
	}
	arg, ok := lit.(string)
	if !ok {
		return nil, &paging.ValidationError{Disallowed: []string{field + "." + string(method)}}
	}
	pred, err := b.StringMethod(handle, method, arg)
	if err != nil {
		return nil, &paging.ValidationError{Disallowed: []string{field}}
	}
	return pred, nil
}

func resolveFieldOperand(e ast.Expr, allowed map[string]bool, b PredicateBuilder) (Handle, string, error) {
	if e.Kind() != ast.IdentKind {
		return nil, "", &paging.ValidationError{Disallowed: []string{exprDescription(e)}}
	}
	name := e.AsIdent()
	if !allowed[name] {
		return nil, name, &paging.ValidationError{Disallowed: []string{name}}
	}
	handle, ok := b.FieldHandle(name)
	if !ok {
		return nil, name, &paging.ValidationError{Disallowed: []string{name}}
	}
	return handle, name, nil
}

func literalValue(e ast.Expr) (any, error) {
	switch e.Kind() {
	case ast.LiteralKind:
		return nativeLiteral(e)
	case ast.ListKind:
		list := e.AsList()
		elems := list.Elements()
		out := make([]any, 0, len(elems))
		for _, el := range elems {
			v, err := literalValue(el)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, &paging.ValidationError{Disallowed: []string{exprDescription(e)}}
	}
}

func nativeLiteral(e ast.Expr) (any, error) {
	val := e.AsLiteral()
	if val == nil {
		return nil, &paging.ValidationError{Disallowed: []string{"literal"}}
	}
	v, err := val.ConvertToNative(anyReflectType)
	if err != nil {
		return nil, &paging.ValidationError{Disallowed: []string{"literal"}}
	}
	if s, ok := v.(string); ok {
		return unquote(s), nil
	}
	return v, nil
}

// unquote strips a single layer of matching quotes the CEL lexer already
// validated; cel-go's native conversion already does this for string
// literals, so this is a defensive no-op for values that still carry
// quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func exprDescription(e ast.Expr) string {
	switch e.Kind() {
	case ast.IdentKind:
		return e.AsIdent()
	case ast.CallKind:
		return e.AsCall().FunctionName() + "(...)"
	default:
		return "expression"
	}
}
