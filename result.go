package paging

import "context"

// Paginated is the output of a keyset Paginate call (§3, §6.4). TotalSize
// is the count of the base (filtered, ordered) query, independent of the
// cursor and page size (§8, property 8).
type Paginated[T any] struct {
	TotalSize int64
	Prev      *string
	Next      *string
	Items     []T
}

// Paginator is implemented by every pagination strategy this module ships
// (currently only the keyset strategy in package cursor, plus quotafill's
// decorator over it).
type Paginator[T any] interface {
	Paginate(ctx context.Context, opts *PageOptions) (*Paginated[T], error)
}

// Metadata carries observability information about a single Paginate call.
// It is not part of the wire-facing Paginated shape; callers that want it
// use a strategy-specific entry point that returns it alongside the page
// (see quotafill.Wrapper.PaginateWithMetadata).
type Metadata struct {
	Strategy       string
	ItemsExamined  int
	IterationsUsed int
	SafeguardHit   *string
}

// FilterFunc is a post-fetch filter applied to a batch of items, typically
// for authorization or visibility rules the backend predicate can't express.
// See package quotafill.
type FilterFunc[T any] func(ctx context.Context, items []T) ([]T, error)
