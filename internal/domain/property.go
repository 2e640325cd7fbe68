package domain

import "time"

// Category is the listing category used by the category filter.
type Category string

const (
	CategorySale       Category = "Sale"
	CategoryRent       Category = "Rent"
	CategoryCommercial Category = "Commercial"
	CategoryLand       Category = "Land"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySale, CategoryRent, CategoryCommercial, CategoryLand:
		return true
	}
	return false
}

type Location struct {
	City    string `json:"city"`
	Area    string `json:"area"`
	Address string `json:"address"`
}

// Owner is the snapshot of the listing user stored with the property.
type Owner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Property is a read-only listing as returned by the backend.
type Property struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Price       float64   `json:"price"`
	Location    Location  `json:"location"`
	ImageLink   string    `json:"imageLink"`
	PostedDate  time.Time `json:"postedDate"`
	User        Owner     `json:"user"`
}

// NewProperty is the payload for creating a listing.
type NewProperty struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Price       float64  `json:"price"`
	Location    Location `json:"location"`
	ImageLink   string   `json:"imageLink"`
	User        Owner    `json:"user"`
}

// PropertyPatch carries the editable fields of an owned listing. Nil fields are left untouched.
type PropertyPatch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	Location    *Location `json:"location,omitempty"`
	ImageLink   *string   `json:"imageLink,omitempty"`
}

// Apply returns p with the non-nil patch fields merged in.
func (pp PropertyPatch) Apply(p Property) Property {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Location != nil {
		p.Location = *pp.Location
	}
	if pp.ImageLink != nil {
		p.ImageLink = *pp.ImageLink
	}
	return p
}
