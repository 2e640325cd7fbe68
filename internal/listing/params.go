// Package listing turns browsing inputs into a backend query plus a local
// filter and pagination pass over the response.
package listing

import (
	"fmt"
	"net/url"
	"strings"

	"estate-portal/internal/domain"
)

type SortField string

const (
	SortByPostedDate SortField = "postedDate"
	SortByPrice      SortField = "price"
	SortByName       SortField = "name"
)

func (f SortField) Valid() bool {
	switch f {
	case SortByPostedDate, SortByPrice, SortByName:
		return true
	}
	return false
}

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

func (o SortOrder) Valid() bool { return o == Asc || o == Desc }

const (
	DefaultPageSize = 9
	DefaultSortBy   = SortByPostedDate
	DefaultOrder    = Desc
)

// Params are the browsing inputs of one listing view. Search and sort are evaluated by the
// backend; Category, the price bounds and City are applied locally to the response.
type Params struct {
	Search   string
	SortBy   SortField
	Order    SortOrder
	Category domain.Category // empty means any
	PriceMin *float64
	PriceMax *float64
	City     string
	Page     int
	PageSize int
}

func DefaultParams() Params {
	return Params{SortBy: DefaultSortBy, Order: DefaultOrder, Page: 1, PageSize: DefaultPageSize}
}

// BackendQuery is the server-side subset of p. A blank search is omitted rather than sent
// as an empty match.
func (p Params) BackendQuery() url.Values {
	q := url.Values{}
	if s := strings.TrimSpace(p.Search); s != "" {
		q.Set("search", s)
	}
	sortBy, order := p.SortBy, p.Order
	if !sortBy.Valid() {
		sortBy = DefaultSortBy
	}
	if !order.Valid() {
		order = DefaultOrder
	}
	q.Set("sortBy", string(sortBy))
	q.Set("order", string(order))
	return q
}

// Validate rejects values the view should never produce.
func (p Params) Validate() error {
	if p.SortBy != "" && !p.SortBy.Valid() {
		return fmt.Errorf("%w: unknown sort field %q", domain.ErrValidation, p.SortBy)
	}
	if p.Order != "" && !p.Order.Valid() {
		return fmt.Errorf("%w: unknown sort order %q", domain.ErrValidation, p.Order)
	}
	if p.Category != "" && !p.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", domain.ErrValidation, p.Category)
	}
	if p.PriceMin != nil && *p.PriceMin < 0 || p.PriceMax != nil && *p.PriceMax < 0 {
		return fmt.Errorf("%w: negative price bound", domain.ErrValidation)
	}
	return nil
}

func (p Params) WithSearch(s string) Params {
	p.Search = s
	p.Page = 1
	return p
}

func (p Params) WithSort(field SortField, order SortOrder) Params {
	p.SortBy, p.Order = field, order
	p.Page = 1
	return p
}

func (p Params) WithCategory(c domain.Category) Params {
	p.Category = c
	p.Page = 1
	return p
}

// WithPriceRange sets both bounds; nil clears a bound.
func (p Params) WithPriceRange(lower, upper *float64) Params {
	p.PriceMin, p.PriceMax = lower, upper
	p.Page = 1
	return p
}

func (p Params) WithCity(city string) Params {
	p.City = city
	p.Page = 1
	return p
}

func (p Params) WithPage(page int) Params {
	p.Page = page
	return p
}

// serverSideChanged reports whether moving from p to q needs a new backend request.
func (p Params) serverSideChanged(q Params) bool {
	return p.BackendQuery().Encode() != q.BackendQuery().Encode()
}

// filtersChanged reports whether any input other than the page differs.
func (p Params) filtersChanged(q Params) bool {
	return strings.TrimSpace(p.Search) != strings.TrimSpace(q.Search) ||
		p.SortBy != q.SortBy || p.Order != q.Order ||
		p.Category != q.Category ||
		!sameBound(p.PriceMin, q.PriceMin) || !sameBound(p.PriceMax, q.PriceMax) ||
		strings.TrimSpace(p.City) != strings.TrimSpace(q.City)
}

func sameBound(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
