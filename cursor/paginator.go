package cursor

import (
	"context"

	"github.com/nrfta/seekpage"
)

// Paginator implements paging.Paginator[T] for keyset (seek-method)
// pagination, combining a QueryOps[T] backend binding with an Extractor
// that pulls cursor values out of items (§4.5).
type Paginator[T any] struct {
	query     QueryOps[T]
	extractor Extractor[T]
}

// New creates a keyset Paginator. query must already have the caller's
// filter and ordering applied (via the ordering/filterexpr/predicate
// packages); extractor must be able to produce a value for every field
// name query.ExtractOrdering() can return.
func New[T any](query QueryOps[T], extractor Extractor[T]) *Paginator[T] {
	return &Paginator[T]{query: query, extractor: extractor}
}

var _ paging.Paginator[struct{}] = (*Paginator[struct{}])(nil)

// Paginate implements the page-assembly algorithm of §4.5.4.
func (p *Paginator[T]) Paginate(ctx context.Context, opts *paging.PageOptions) (*paging.Paginated[T], error) {
	ordering, err := p.query.ExtractOrdering()
	if err != nil {
		return nil, err
	}
	if len(ordering) == 0 {
		return nil, &paging.PaginationError{Reason: "query has no ordering; keyset pagination requires a deterministic total order"}
	}

	var (
		hasCursor    bool
		cursorValues map[string]any
		cursorDir    Direction
	)
	if tok := opts.Cursor(); tok != nil {
		cursorOrdering, values, dir, decodeErr := Decode(*tok)
		if decodeErr != nil {
			return nil, decodeErr
		}
		if validateErr := ValidateOrdering(cursorOrdering, ordering); validateErr != nil {
			return nil, validateErr
		}
		if validateErr := ValidateFields(values, ordering.Fields()); validateErr != nil {
			return nil, validateErr
		}
		hasCursor = true
		cursorValues = values
		cursorDir = dir
	}

	// total_size is computed over the base (pre-seek) query: filtered and
	// ordered, but before the cursor's seek predicate is applied (§4.5.4.1,
	// §8 property 8).
	total, err := p.query.Count(ctx)
	if err != nil {
		return nil, err
	}

	isPrev := hasCursor && cursorDir == Prev

	query := p.query
	if hasCursor {
		predicate, seekErr := query.BuildSeekPredicate(ordering, cursorValues, isPrev)
		if seekErr != nil {
			return nil, seekErr
		}
		query = query.ApplyWhere(predicate)
	}
	if isPrev {
		query = query.ReverseOrdering()
	}

	size := opts.Size()
	items, err := query.ApplyLimit(size + 1).Fetch(ctx)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > size
	if hasMore {
		items = items[:size]
	}
	if isPrev {
		reverse(items)
	}

	var hasNext, hasPrevious bool
	if isPrev {
		hasPrevious = hasMore
		hasNext = true
	} else {
		hasPrevious = hasCursor
		hasNext = hasMore
	}

	page := &paging.Paginated[T]{TotalSize: total, Items: items}

	if hasNext && len(items) > 0 {
		next, encodeErr := p.encodeCursorFor(items[len(items)-1], ordering, Next)
		if encodeErr != nil {
			return nil, encodeErr
		}
		page.Next = &next
	}
	if (hasPrevious || (opts.IncludePrevCursor() && len(items) > 0)) && len(items) > 0 {
		prev, encodeErr := p.encodeCursorFor(items[0], ordering, Prev)
		if encodeErr != nil {
			return nil, encodeErr
		}
		page.Prev = &prev
	}

	return page, nil
}

func (p *Paginator[T]) encodeCursorFor(item T, ordering paging.OrderingSpec, direction Direction) (string, error) {
	values := p.extractor(item)
	return Encode(ordering, values, direction)
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
