package atproto

import (
	"context"
)

// Page is one slice of a cursor-paginated collection. An empty Cursor
// marks the end of the collection.
type Page[T any] struct {
	Items  []T
	Cursor string
}

// PageFunc fetches one page of at most limit items starting at cursor.
type PageFunc[T any] func(ctx context.Context, cursor string, limit int) (Page[T], error)

// PageOptions bounds a paginated fetch.
type PageOptions struct {
	// PageSize is the per-request limit. Defaults to 100, the XRPC maximum
	// for graph listings.
	PageSize int
	// Total caps the number of accumulated items; 0 means fetch the whole
	// collection.
	Total int
}

// FetchAll drains a cursor-paginated collection through fetch, stopping when
// the cursor runs out or opts.Total is reached.
//
// On a request error it returns everything accumulated so far together with
// the error: a partial follower set is still useful, so callers surface the
// error as a warning rather than discarding the items.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T], opts PageOptions) ([]T, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	var items []T
	cursor := ""
	for {
		limit := pageSize
		if opts.Total > 0 && opts.Total-len(items) < limit {
			limit = opts.Total - len(items)
		}

		page, err := fetch(ctx, cursor, limit)
		if err != nil {
			return items, err
		}

		items = append(items, page.Items...)
		if opts.Total > 0 && len(items) >= opts.Total {
			return items[:opts.Total], nil
		}
		if page.Cursor == "" {
			return items, nil
		}
		cursor = page.Cursor
	}
}
