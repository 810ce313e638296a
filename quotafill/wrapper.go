// Package quotafill adapts the teacher repository's quota-fill decorator
// (quotafill/wrapper.go) to the keyset Paginator[T]/Paginated[T] shape of
// this module. It wraps any paging.Paginator[T] with a post-fetch
// FilterFunc[T] — typically an authorization or visibility check the
// backend predicate can't express — re-fetching additional batches when
// filtering removes enough rows that the page would undershoot the
// requested size (§4.5.7).
//
// Composing this way only works because the wrapped paginator's cursors
// are self-contained (they embed the ordering, §4.1): the wrapper can
// safely re-drive the base paginator with successive next cursors it
// discovers on its own, without knowing anything about the backend.
package quotafill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nrfta/seekpage"
	"github.com/nrfta/seekpage/cursor"
)

const (
	defaultMaxIterations      = 5
	defaultMaxRecordsExamined = 100
	defaultTimeout            = 3 * time.Second
)

// defaultBackoffMultipliers is a Fibonacci-like overscan progression: fetch
// exactly what's needed on the first pass, then progressively overscan as
// the filter's pass rate proves too low to fill the quota in one round
// trip.
var defaultBackoffMultipliers = []int{1, 2, 3, 5, 8}

const (
	safeguardTimeout       = "timeout"
	safeguardMaxRecords    = "max_records"
	safeguardMaxIterations = "max_iterations"
)

// Option configures a Wrapper.
type Option func(*config)

type config struct {
	maxIterations      int
	maxRecordsExamined int
	timeout            time.Duration
	backoffMultipliers []int
}

// WithMaxIterations bounds the number of fetch-filter rounds. Default 5.
func WithMaxIterations(n int) Option {
	return func(c *config) { c.maxIterations = n }
}

// WithMaxRecordsExamined bounds the total rows fetched across all rounds
// before the pre-filter safeguard trips. Default 100.
func WithMaxRecordsExamined(n int) Option {
	return func(c *config) { c.maxRecordsExamined = n }
}

// WithTimeout bounds the wall-clock time of the whole Paginate call.
// Default 3s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithBackoffMultipliers overrides the per-iteration overscan multipliers.
func WithBackoffMultipliers(multipliers []int) Option {
	return func(c *config) { c.backoffMultipliers = multipliers }
}

// Wrapper decorates a keyset Paginator[T] with a post-fetch filter.
type Wrapper[T any] struct {
	base               paging.Paginator[T]
	filter             paging.FilterFunc[T]
	ordering           paging.OrderingSpec
	extractor          cursor.Extractor[T]
	maxIterations      int
	maxRecordsExamined int
	timeout            time.Duration
	backoffMultipliers []int
}

// Wrap builds a Wrapper. ordering and extractor must describe the same
// ordering the base paginator's query is running under — they're used to
// mint a next cursor from the exact boundary item quota-fill settles on,
// which will not in general coincide with any single underlying batch's
// own cursor once filtering has discarded rows from the middle of a batch.
func Wrap[T any](base paging.Paginator[T], filter paging.FilterFunc[T], ordering paging.OrderingSpec, extractor cursor.Extractor[T], opts ...Option) *Wrapper[T] {
	cfg := &config{
		maxIterations:      defaultMaxIterations,
		maxRecordsExamined: defaultMaxRecordsExamined,
		timeout:            defaultTimeout,
		backoffMultipliers: defaultBackoffMultipliers,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Wrapper[T]{
		base:               base,
		filter:             filter,
		ordering:           ordering,
		extractor:          extractor,
		maxIterations:      cfg.maxIterations,
		maxRecordsExamined: cfg.maxRecordsExamined,
		timeout:            cfg.timeout,
		backoffMultipliers: cfg.backoffMultipliers,
	}
}

var _ paging.Paginator[struct{}] = (*Wrapper[struct{}])(nil)

// Paginate implements paging.Paginator[T], discarding the observability
// Metadata PaginateWithMetadata returns alongside the page.
func (w *Wrapper[T]) Paginate(ctx context.Context, opts *paging.PageOptions) (*paging.Paginated[T], error) {
	page, _, err := w.PaginateWithMetadata(ctx, opts)
	return page, err
}

// PaginateWithMetadata runs the fetch-filter loop of §4.5.7 and returns the
// resulting page alongside its Metadata (items examined, iterations used,
// which safeguard if any fired).
func (w *Wrapper[T]) PaginateWithMetadata(ctx context.Context, opts *paging.PageOptions) (*paging.Paginated[T], paging.Metadata, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	requestedSize := opts.Size()
	targetSize := requestedSize + 1

	state := &paginationState[T]{currentCursor: opts.Cursor()}

	for state.needsMore(targetSize) && state.iteration < w.maxIterations {
		safeguard := w.fetchIteration(timeoutCtx, opts, targetSize, state)
		if state.lastError != nil {
			return nil, paging.Metadata{}, state.lastError
		}
		if safeguard != "" {
			state.safeguardHit = &safeguard
			break
		}
	}

	if state.iteration >= w.maxIterations && len(state.filteredItems) < targetSize {
		hit := safeguardMaxIterations
		state.safeguardHit = &hit
	}

	page, err := w.buildResult(state, opts, requestedSize)
	if err != nil {
		return nil, paging.Metadata{}, err
	}

	return page, paging.Metadata{
		Strategy:       "quotafill",
		ItemsExamined:  state.examinedCount,
		IterationsUsed: state.iteration,
		SafeguardHit:   state.safeguardHit,
	}, nil
}

type paginationState[T any] struct {
	firstPage     *paging.Paginated[T]
	filteredItems []T
	examinedCount int
	iteration     int
	currentCursor *string
	safeguardHit  *string
	lastError     error
	noMoreData    bool
}

func (s *paginationState[T]) needsMore(targetSize int) bool {
	return len(s.filteredItems) < targetSize && !s.noMoreData
}

func (w *Wrapper[T]) getMultiplier(iteration int) int {
	if iteration >= len(w.backoffMultipliers) {
		return w.backoffMultipliers[len(w.backoffMultipliers)-1]
	}
	return w.backoffMultipliers[iteration]
}

func (w *Wrapper[T]) fetchIteration(ctx context.Context, opts *paging.PageOptions, targetSize int, state *paginationState[T]) string {
	select {
	case <-ctx.Done():
		return safeguardTimeout
	default:
	}

	remaining := targetSize - len(state.filteredItems)
	fetchSize := remaining * w.getMultiplier(state.iteration)
	if fetchSize > paging.MaxPageSize {
		fetchSize = paging.MaxPageSize
	}
	if fetchSize < paging.MinPageSize {
		fetchSize = paging.MinPageSize
	}

	if state.examinedCount+fetchSize > w.maxRecordsExamined {
		return safeguardMaxRecords
	}

	fetchOpts, err := paging.NewPageOptions(state.currentCursor, fetchSize, false)
	if err != nil {
		state.lastError = fmt.Errorf("build fetch options (iteration %d): %w", state.iteration+1, err)
		return ""
	}

	page, err := w.base.Paginate(ctx, fetchOpts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return safeguardTimeout
		}
		state.lastError = fmt.Errorf("fetch batch (iteration %d): %w", state.iteration+1, err)
		return ""
	}
	if state.firstPage == nil {
		state.firstPage = page
	}

	filtered, err := w.filter(ctx, page.Items)
	if err != nil {
		state.lastError = fmt.Errorf("apply filter (iteration %d): %w", state.iteration+1, err)
		return ""
	}

	state.filteredItems = append(state.filteredItems, filtered...)
	state.examinedCount += len(page.Items)
	state.iteration++

	if page.Next == nil {
		state.noMoreData = true
		return ""
	}
	state.currentCursor = page.Next
	return ""
}

func (w *Wrapper[T]) buildResult(state *paginationState[T], opts *paging.PageOptions, requestedSize int) (*paging.Paginated[T], error) {
	hasNext := len(state.filteredItems) > requestedSize
	items := state.filteredItems
	if hasNext {
		items = items[:requestedSize]
	}

	var totalSize int64
	if state.firstPage != nil {
		totalSize = state.firstPage.TotalSize
	}

	page := &paging.Paginated[T]{TotalSize: totalSize, Items: items}

	if hasNext {
		next, err := cursor.Encode(w.ordering, w.extractor(items[len(items)-1]), cursor.Next)
		if err != nil {
			return nil, err
		}
		page.Next = &next
	}

	if state.firstPage != nil {
		page.Prev = state.firstPage.Prev
	}
	if opts.IncludePrevCursor() && page.Prev == nil && len(items) > 0 {
		prev, err := cursor.Encode(w.ordering, w.extractor(items[0]), cursor.Prev)
		if err != nil {
			return nil, err
		}
		page.Prev = &prev
	}

	return page, nil
}
