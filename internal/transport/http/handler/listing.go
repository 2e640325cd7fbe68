package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"estate-portal/internal/domain"
	"estate-portal/internal/listing"
	"estate-portal/internal/portal"
	"estate-portal/internal/transport/http/ez"
)

type listingQuery struct {
	Search   string   `form:"search"`
	SortBy   string   `form:"sortBy"`
	Order    string   `form:"order"`
	Category string   `form:"category"`
	MinPrice *float64 `form:"minPrice"`
	MaxPrice *float64 `form:"maxPrice"`
	City     string   `form:"city"`
	Page     int      `form:"page" binding:"omitempty,min=1"`
	Refresh  bool     `form:"refresh"`
}

// params is the full view state described by q; absent sort fields take the defaults.
func (q listingQuery) params(cur listing.Params) listing.Params {
	sortBy, order := listing.SortField(q.SortBy), listing.SortOrder(q.Order)
	if sortBy == "" {
		sortBy = listing.DefaultSortBy
	}
	if order == "" {
		order = listing.DefaultOrder
	}
	return cur.
		WithSearch(q.Search).
		WithSort(sortBy, order).
		WithCategory(domain.Category(q.Category)).
		WithPriceRange(q.MinPrice, q.MaxPrice).
		WithCity(q.City).
		WithPage(cur.Page)
}

type paramsView struct {
	Search   string          `json:"search"`
	SortBy   string          `json:"sortBy"`
	Order    string          `json:"order"`
	Category domain.Category `json:"category,omitempty"`
	MinPrice *float64        `json:"minPrice,omitempty"`
	MaxPrice *float64        `json:"maxPrice,omitempty"`
	City     string          `json:"city,omitempty"`
	PageSize int             `json:"pageSize"`
}

type listingView struct {
	Params     paramsView        `json:"params"`
	Items      []domain.Property `json:"items"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	Total      int               `json:"total"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
	FetchedAt  *time.Time        `json:"fetchedAt,omitempty"`
}

func listingViewOf(v listing.View) listingView {
	out := listingView{
		Params: paramsView{
			Search: v.Params.Search, SortBy: string(v.Params.SortBy), Order: string(v.Params.Order),
			Category: v.Params.Category, MinPrice: v.Params.PriceMin, MaxPrice: v.Params.PriceMax,
			City: v.Params.City, PageSize: v.Params.PageSize,
		},
		Items:      v.Items,
		Page:       v.Page,
		TotalPages: v.TotalPages,
		Total:      v.Total,
		Loading:    v.Loading,
	}
	if v.Err != nil {
		out.Error = domain.UserMessage(v.Err)
	}
	if !v.FetchedAt.IsZero() {
		t := v.FetchedAt
		out.FetchedAt = &t
	}
	return out
}

func (h *Handler) mountListing(g *gin.RouterGroup) {
	e := h.ez(g)

	ez.RegisterAction(e, ez.Action[struct{}, []domain.Property]{
		Method: http.MethodGet,
		Path:   "/home",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Property, error) {
			return portal.Featured(c.Request.Context(), h.Featured, portal.FeaturedCount)
		},
	})

	// GET /properties describes the whole view state. Search and sort changes are debounced
	// into one backend request; poll the same URL to see the result. refresh=true, or any
	// call before a first successful load, fetches synchronously.
	ez.RegisterAction(e, ez.Action[listingQuery, listingView]{
		Method: http.MethodGet,
		Path:   "/properties",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, q *listingQuery) (listingView, error) {
			v, err := h.Listing.Update(q.params)
			if err != nil {
				return listingView{}, err
			}
			if q.Refresh || v.FetchedAt.IsZero() {
				// a failed fetch is reported in the view, not as a request error
				_ = h.Listing.Refresh(c.Request.Context())
			}
			if q.Page > 0 {
				v, err = h.Listing.Update(func(p listing.Params) listing.Params { return p.WithPage(q.Page) })
				if err != nil {
					return listingView{}, err
				}
			} else {
				v = h.Listing.View()
			}
			return listingViewOf(v), nil
		},
	})
}
