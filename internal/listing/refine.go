package listing

import (
	"strings"

	"estate-portal/internal/domain"
)

// Predicate keeps a property when it returns true.
type Predicate func(domain.Property) bool

// Result is one page of refined listings.
type Result struct {
	Items      []domain.Property
	Page       int
	TotalPages int
	Total      int
}

// Predicates returns the local filters of p in their fixed evaluation order:
// category, price lower bound, price upper bound, city.
func (p Params) Predicates() []Predicate {
	var preds []Predicate
	if p.Category != "" {
		c := p.Category
		preds = append(preds, func(it domain.Property) bool { return it.Category == c })
	}
	if p.PriceMin != nil {
		lower := *p.PriceMin
		preds = append(preds, func(it domain.Property) bool { return it.Price >= lower })
	}
	if p.PriceMax != nil {
		upper := *p.PriceMax
		preds = append(preds, func(it domain.Property) bool { return it.Price <= upper })
	}
	if city := strings.ToLower(strings.TrimSpace(p.City)); city != "" {
		preds = append(preds, func(it domain.Property) bool {
			return strings.Contains(strings.ToLower(it.Location.City), city)
		})
	}
	return preds
}

// Filter keeps the items matching every predicate. The input slice is not modified.
func Filter(items []domain.Property, preds ...Predicate) []domain.Property {
	out := make([]domain.Property, 0, len(items))
next:
	for _, it := range items {
		for _, keep := range preds {
			if !keep(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

// Refine filters items by p and slices out the requested page. The page is clamped into
// [1, TotalPages]; with no matches the result is page 1 of 0.
func Refine(items []domain.Property, p Params) Result {
	filtered := Filter(items, p.Predicates()...)
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(filtered)
	pages := (total + size - 1) / size

	page := p.Page
	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}
	res := Result{Page: page, TotalPages: pages, Total: total, Items: []domain.Property{}}
	if total == 0 {
		return res
	}
	lo := (page - 1) * size
	hi := min(lo+size, total)
	res.Items = filtered[lo:hi]
	return res
}
