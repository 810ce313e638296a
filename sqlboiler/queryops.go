package sqlboiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/aarondl/sqlboiler/v4/queries/qm"

	"github.com/nrfta/seekpage"
	"github.com/nrfta/seekpage/cursor"
)

// QueryFunc executes a sqlboiler query and returns its rows. T is the
// sqlboiler model type (e.g. *models.Product), matching the teacher's
// sqlboiler.QueryFunc[T].
type QueryFunc[T any] func(ctx context.Context, mods ...qm.QueryMod) ([]T, error)

// CountFunc executes a sqlboiler count query.
type CountFunc func(ctx context.Context, mods ...qm.QueryMod) (int64, error)

// QueryOps implements cursor.QueryOps[T] over sqlboiler query mods,
// generalizing the teacher's strategy-specific Fetcher to the immutable,
// compose-as-you-go shape §5 requires: every Apply*/Reverse method returns
// a new value, never mutating the receiver.
type QueryOps[T any] struct {
	fields    *FieldSet
	ordering  paging.OrderingSpec
	baseMods  []qm.QueryMod
	whereMods []qm.QueryMod
	limit     int
	queryFunc QueryFunc[T]
	countFunc CountFunc
}

// NewQueryOps builds a cursor.QueryOps[T] over a sqlboiler model. baseMods
// is the caller's filter (already built via predicate.Lower + ApplyPredicate,
// or any other qm.QueryMod such as a fixed qm.Where for a tenant/visibility
// scope) composed before the keyset seek predicate. ordering is the
// caller-parsed OrderingSpec (package ordering), already validated against
// fields.
func NewQueryOps[T any](fields *FieldSet, ordering paging.OrderingSpec, baseMods []qm.QueryMod, queryFunc QueryFunc[T], countFunc CountFunc) cursor.QueryOps[T] {
	return &QueryOps[T]{
		fields:    fields,
		ordering:  ordering,
		baseMods:  baseMods,
		queryFunc: queryFunc,
		countFunc: countFunc,
	}
}

// ApplyPredicate is a convenience constructor step that appends a
// predicate.Predicate produced by predicate.Lower (over fields) to
// baseMods as a raw WHERE fragment, before NewQueryOps is called.
func ApplyPredicate(mods []qm.QueryMod, pred any) []qm.QueryMod {
	sp := pred.(sqlPredicate)
	return append(mods, qm.Where(sp.clause, sp.args...))
}

func (q *QueryOps[T]) clone() *QueryOps[T] {
	cp := *q
	cp.whereMods = append([]qm.QueryMod(nil), q.whereMods...)
	return &cp
}

func (q *QueryOps[T]) ExtractOrdering() (paging.OrderingSpec, error) {
	if len(q.ordering) == 0 {
		return nil, &paging.PaginationError{Reason: "query has no ORDER BY; keyset pagination requires a deterministic total order"}
	}
	return q.ordering, nil
}

// BuildSeekPredicate generalizes the teacher's buildKeysetWhereClause to an
// arbitrary number of ordering axes and a resolved FieldHandle per axis,
// producing the disjunction-of-conjunctions expression of §4.5.2.
func (q *QueryOps[T]) BuildSeekPredicate(ordering paging.OrderingSpec, values map[string]any, isPrev bool) (cursor.Predicate, error) {
	if len(ordering) == 0 || len(values) == 0 {
		return nil, &paging.PaginationError{Reason: "cannot build a seek predicate without an ordering and cursor values"}
	}

	var parts []string
	var args []any

	for i, axis := range ordering {
		handle, ok := q.fields.FieldHandle(axis.Field)
		if !ok {
			return nil, &paging.PaginationError{Reason: "ordering field \"" + axis.Field + "\" has no registered column handle"}
		}
		column := string(handle.(FieldHandle))

		val, exists := values[axis.Field]
		if !exists {
			return nil, &paging.CursorError{Reason: "cursor is missing a value for ordering field \"" + axis.Field + "\""}
		}

		operator := seekOperator(axis.Dir, isPrev)

		if i == 0 {
			parts = append(parts, fmt.Sprintf("%s %s ?", column, operator))
			args = append(args, convertValueForSQL(val))
			continue
		}

		var equality []string
		for j := 0; j < i; j++ {
			prevAxis := ordering[j]
			prevHandle, _ := q.fields.FieldHandle(prevAxis.Field)
			equality = append(equality, fmt.Sprintf("%s = ?", string(prevHandle.(FieldHandle))))
			args = append(args, convertValueForSQL(values[prevAxis.Field]))
		}
		parts = append(parts, fmt.Sprintf("(%s AND %s %s ?)", strings.Join(equality, " AND "), column, operator))
		args = append(args, convertValueForSQL(val))
	}

	clause := "(" + strings.Join(parts, " OR ") + ")"
	return sqlPredicate{clause: clause, args: args}, nil
}

// seekOperator mirrors §4.5.2's per-axis comparison table.
func seekOperator(dir paging.Direction, isPrev bool) string {
	forward := dir == paging.Asc
	if isPrev {
		forward = !forward
	}
	if forward {
		return ">"
	}
	return "<"
}

func (q *QueryOps[T]) ApplyWhere(predicate cursor.Predicate) cursor.QueryOps[T] {
	cp := q.clone()
	sp := predicate.(sqlPredicate)
	cp.whereMods = append(cp.whereMods, qm.Where(sp.clause, sp.args...))
	return cp
}

func (q *QueryOps[T]) ApplyLimit(n int) cursor.QueryOps[T] {
	cp := q.clone()
	cp.limit = n
	return cp
}

func (q *QueryOps[T]) ReverseOrdering() cursor.QueryOps[T] {
	cp := q.clone()
	reversed := make(paging.OrderingSpec, len(q.ordering))
	for i, s := range q.ordering {
		d := paging.Asc
		if s.Dir == paging.Asc {
			d = paging.Desc
		}
		reversed[i] = paging.Sort{Field: s.Field, Dir: d}
	}
	cp.ordering = reversed
	return cp
}

func (q *QueryOps[T]) Count(ctx context.Context) (int64, error) {
	mods := append(append([]qm.QueryMod(nil), q.baseMods...), q.whereMods...)
	count, err := q.countFunc(ctx, mods...)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (q *QueryOps[T]) Fetch(ctx context.Context) ([]T, error) {
	mods := append(append([]qm.QueryMod(nil), q.baseMods...), q.whereMods...)
	if len(q.ordering) > 0 {
		mods = append(mods, qm.OrderBy(orderByClause(q.fields, q.ordering)))
	}
	if q.limit > 0 {
		mods = append(mods, qm.Limit(q.limit))
	}
	items, err := q.queryFunc(ctx, mods...)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func orderByClause(fields *FieldSet, ordering paging.OrderingSpec) string {
	parts := make([]string, len(ordering))
	for i, s := range ordering {
		handle, _ := fields.FieldHandle(s.Field)
		dir := "ASC"
		if s.Dir == paging.Desc {
			dir = "DESC"
		}
		parts[i] = fmt.Sprintf("%s %s", string(handle.(FieldHandle)), dir)
	}
	return strings.Join(parts, ", ")
}
