// Package pager walks offset-paginated collections of the form
// {startAt, maxResults, total, items} until they are exhausted.
package pager

import (
    "context"
    "fmt"
)

// Page is one slice of a paginated collection as reported by the server.
type Page[T any] struct {
    Items      []T
    StartAt    int
    MaxResults int
    Total      int
}

// PageFunc fetches the page that starts at startAt with at most maxResults items.
type PageFunc[T any] func(ctx context.Context, startAt, maxResults int) (Page[T], error)

// FetchAll returns every item of the collection in server order.
func FetchAll[T any](ctx context.Context, pageSize int, fetch PageFunc[T]) ([]T, error) {
    items, _, err := Collect(ctx, pageSize, fetch)
    return items, err
}

// Collect is FetchAll that also reports the last total the server announced.
//
// The offset advances by the number of items actually returned, and the total
// is re-read on every page. A page with no items ends the walk even if the
// total has not been reached, so a misbehaving upstream cannot loop forever.
func Collect[T any](ctx context.Context, pageSize int, fetch PageFunc[T]) ([]T, int, error) {
    var all []T
    startAt := 0
    total := 0
    for {
        if err := ctx.Err(); err != nil { return all, total, err }
        page, err := fetch(ctx, startAt, pageSize)
        if err != nil { return all, total, fmt.Errorf("fetch page at %d: %w", startAt, err) }
        total = page.Total
        all = append(all, page.Items...)
        if len(page.Items) == 0 || len(all) >= total { return all, total, nil }
        startAt += len(page.Items)
    }
}
