package atproto

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves count items in pages, recording how many requests it saw.
func fakeSource(count int) (PageFunc[int], *int) {
	calls := new(int)
	fetch := func(ctx context.Context, cursor string, limit int) (Page[int], error) {
		*calls++
		start := 0
		if cursor != "" {
			start, _ = strconv.Atoi(cursor)
		}
		end := start + limit
		if end > count {
			end = count
		}
		page := Page[int]{}
		for i := start; i < end; i++ {
			page.Items = append(page.Items, i)
		}
		if end < count {
			page.Cursor = strconv.Itoa(end)
		}
		return page, nil
	}
	return fetch, calls
}

func TestFetchAll_DrainsCollection(t *testing.T) {
	fetch, calls := fakeSource(250)

	items, err := FetchAll(context.Background(), fetch, PageOptions{PageSize: 100})
	require.NoError(t, err)
	assert.Len(t, items, 250)
	assert.Equal(t, 3, *calls, "250 items at page size 100 should take 3 requests")

	// Order is the server's pagination order.
	for i, v := range items {
		require.Equal(t, i, v)
	}
}

func TestFetchAll_TotalTruncatesMidPage(t *testing.T) {
	fetch, _ := fakeSource(250)

	items, err := FetchAll(context.Background(), fetch, PageOptions{PageSize: 100, Total: 120})
	require.NoError(t, err)
	assert.Len(t, items, 120)
	assert.Equal(t, 119, items[119])
}

func TestFetchAll_DefaultPageSize(t *testing.T) {
	fetch, calls := fakeSource(150)

	items, err := FetchAll(context.Background(), fetch, PageOptions{})
	require.NoError(t, err)
	assert.Len(t, items, 150)
	assert.Equal(t, 2, *calls)
}

func TestFetchAll_PartialResultOnError(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, cursor string, limit int) (Page[int], error) {
		calls++
		if calls == 2 {
			return Page[int]{}, fmt.Errorf("boom")
		}
		return Page[int]{Items: []int{1, 2, 3}, Cursor: "next"}, nil
	}

	items, err := FetchAll(context.Background(), fetch, PageOptions{PageSize: 3})
	require.Error(t, err)
	assert.Equal(t, []int{1, 2, 3}, items, "page fetched before the failure is kept")
}

func TestFetchAll_EmptyCollection(t *testing.T) {
	fetch, calls := fakeSource(0)

	items, err := FetchAll(context.Background(), fetch, PageOptions{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, *calls)
}
