package portal

import (
	"context"
	"fmt"
	"net/url"

	"estate-portal/internal/domain"
	"estate-portal/internal/listing"
)

// FeaturedCount is how many listings the home page shows.
const FeaturedCount = 6

// Featured returns the n most expensive listings.
func Featured(ctx context.Context, f listing.Fetcher, n int) ([]domain.Property, error) {
	q := url.Values{}
	q.Set("sortBy", string(listing.SortByPrice))
	q.Set("order", string(listing.Desc))
	items, err := f.FetchProperties(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load featured: %w", err)
	}
	if len(items) > n {
		items = items[:n]
	}
	if items == nil {
		items = []domain.Property{}
	}
	return items, nil
}
