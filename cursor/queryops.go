package cursor

import (
	"context"

	"github.com/nrfta/seekpage"
)

// QueryOps is the capability a backend binding supplies to drive keyset
// pagination over an already filtered, already ordered query object. It
// generalizes the teacher repository's Fetcher[T] to also cover ordering
// extraction, seek-predicate construction, ordering reversal, and limit
// application — the operations §4.5 requires but that are necessarily
// backend-specific (SQL WHERE clauses, qm.QueryMod composition, etc).
//
// Implementations must treat every method as returning a new, independent
// query value; the paginator never mutates a QueryOps in place (§5,
// "Predicate/query objects are treated immutably").
type QueryOps[T any] interface {
	// ExtractOrdering recovers the (field, direction) pairs the caller
	// already applied to this query (via C2/C3/C4). A query with no
	// ordering at all must return a *paging.PaginationError.
	ExtractOrdering() (paging.OrderingSpec, error)

	// BuildSeekPredicate constructs the disjunction-of-conjunctions seek
	// expression of §4.5.2 for the given ordering, the cursor's last-seen
	// values, and navigation direction.
	BuildSeekPredicate(ordering paging.OrderingSpec, values map[string]any, isPrev bool) (Predicate, error)

	// ApplyWhere returns a new QueryOps with predicate added as an
	// additional conjunct.
	ApplyWhere(predicate Predicate) QueryOps[T]

	// ApplyLimit returns a new QueryOps capped to at most n rows.
	ApplyLimit(n int) QueryOps[T]

	// ReverseOrdering returns a new QueryOps with every ordering axis'
	// direction flipped (§4.5.3).
	ReverseOrdering() QueryOps[T]

	// Count returns the number of rows matching this query, ignoring any
	// limit/seek predicate that hasn't been applied yet.
	Count(ctx context.Context) (int64, error)

	// Fetch executes the query and returns its rows.
	Fetch(ctx context.Context) ([]T, error)
}

// Predicate is an opaque, backend-specific predicate value produced by
// QueryOps.BuildSeekPredicate and consumed by QueryOps.ApplyWhere. Its
// concrete type is defined by the backend binding (e.g. a parameterized
// WHERE fragment plus its arguments for the sqlboiler binding).
type Predicate any

// Extractor pulls the cursor values for every ordering field out of an
// item, for encoding the prev/next cursors of a page. It should return a
// value for at least every field name that can appear in an OrderingSpec
// this paginator is configured with — mirroring the per-field extractor
// functions of the teacher's cursor.Schema.
type Extractor[T any] func(item T) map[string]any
