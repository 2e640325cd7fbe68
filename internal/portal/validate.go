package portal

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"estate-portal/internal/domain"
)

// FieldErrors maps a form field to its problem. It unwraps to domain.ErrValidation.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fe[k]
	}
	return fmt.Sprintf("%s: %s", domain.ErrValidation, strings.Join(parts, "; "))
}

func (fe FieldErrors) Unwrap() error { return domain.ErrValidation }

func (fe FieldErrors) orNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func checkImageLink(fe FieldErrors, link string) {
	if link == "" {
		return
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fe["imageLink"] = "must be an http(s) URL"
	}
}

// ValidatePatch checks the fields an owner may edit.
func ValidatePatch(p domain.PropertyPatch) error {
	fe := FieldErrors{}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		fe["name"] = "must not be empty"
	}
	if p.Category != nil && !p.Category.Valid() {
		fe["category"] = "unknown category"
	}
	if p.Price != nil && *p.Price <= 0 {
		fe["price"] = "must be positive"
	}
	if p.Location != nil && strings.TrimSpace(p.Location.City) == "" {
		fe["city"] = "must not be empty"
	}
	if p.ImageLink != nil {
		checkImageLink(fe, *p.ImageLink)
	}
	return fe.orNil()
}

// Fields exposes the per-field problems to the transport layer.
func (fe FieldErrors) Fields() map[string]string { return fe }
