// Package filterexpr parses the CEL filter-expression subset described in
// §6.1 into a google/cel-go AST and validates its identifiers against a
// caller-supplied safelist (C3). It never compiles or runs the expression:
// the safelist of allowed fields is per-call and dynamic, so the module
// uses cel-go's untyped Parse rather than Compile (which requires every
// variable's type to be declared up front in the environment).
package filterexpr

import (
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"

	"github.com/nrfta/seekpage"
)

var baseEnv = mustEnv()

func mustEnv() *cel.Env {
	env, err := cel.NewEnv(cel.EnableMacroCallTracking())
	if err != nil {
		panic(err)
	}
	return env
}

// Parse parses source into a CEL AST without type-checking it against any
// declared variables. An empty or whitespace-only source fails with a
// *paging.ParseError; any parser failure is wrapped the same way.
func Parse(source string) (*cel.Ast, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &paging.ParseError{Expression: source, Cause: nil}
	}

	parsed, issues := baseEnv.Parse(source)
	if issues != nil && issues.Err() != nil {
		return nil, &paging.ParseError{Expression: source, Cause: issues.Err()}
	}
	return parsed, nil
}

// ExtractIdentifiers walks ast collecting every identifier used as a value
// reference (§4.3). A method call's function name is never collected, only
// the identifier(s) feeding its receiver and arguments — e.g. name.contains(x)
// contributes "name" and "x" (if x is itself an identifier), never "contains".
func ExtractIdentifiers(a *cel.Ast) map[string]bool {
	out := map[string]bool{}
	if a == nil {
		return out
	}
	native := a.NativeRep()
	if native == nil {
		return out
	}
	walk(native.Expr(), out)
	return out
}

func walk(e ast.Expr, out map[string]bool) {
	if e == nil {
		return
	}
	switch e.Kind() {
	case ast.IdentKind:
		out[e.AsIdent()] = true
	case ast.SelectKind:
		sel := e.AsSelect()
		walk(sel.Operand(), out)
	case ast.CallKind:
		call := e.AsCall()
		if call.IsMemberFunction() {
			walk(call.Target(), out)
		}
		for _, arg := range call.Args() {
			walk(arg, out)
		}
	case ast.ListKind:
		list := e.AsList()
		for _, elem := range list.Elements() {
			walk(elem, out)
		}
	case ast.StructKind:
		s := e.AsStruct()
		for _, f := range s.Fields() {
			walk(f.Value(), out)
		}
	case ast.MapKind:
		m := e.AsMap()
		for _, entry := range m.Entries() {
			walk(entry.Key(), out)
			walk(entry.Value(), out)
		}
	case ast.ComprehensionKind:
		c := e.AsComprehension()
		walk(c.IterRange(), out)
		walk(c.AccuInit(), out)
		walk(c.LoopCondition(), out)
		walk(c.LoopStep(), out)
		walk(c.Result(), out)
	}
}

// ValidateFields fails with a *paging.ValidationError naming every
// identifier ExtractIdentifiers finds that is not a key of allowed.
func ValidateFields(a *cel.Ast, allowed map[string]bool) error {
	identifiers := ExtractIdentifiers(a)
	var disallowed []string
	for name := range identifiers {
		if !allowed[name] {
			disallowed = append(disallowed, name)
		}
	}
	if len(disallowed) == 0 {
		return nil
	}
	sortStrings(disallowed)
	return &paging.ValidationError{Disallowed: disallowed}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
