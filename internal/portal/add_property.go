package portal

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"estate-portal/internal/domain"
)

const anonymousOwner = "Anonymous User"

// PropertyForm is the add-listing form as entered.
type PropertyForm struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    domain.Category `json:"category"`
	Price       float64         `json:"price"`
	City        string          `json:"city"`
	Area        string          `json:"area"`
	Address     string          `json:"address"`
	ImageLink   string          `json:"imageLink"`
}

func (f PropertyForm) Validate() error {
	fe := FieldErrors{}
	if strings.TrimSpace(f.Name) == "" {
		fe["name"] = "is required"
	}
	if !f.Category.Valid() {
		fe["category"] = "choose Sale, Rent, Commercial or Land"
	}
	if f.Price <= 0 {
		fe["price"] = "must be positive"
	}
	if strings.TrimSpace(f.City) == "" {
		fe["city"] = "is required"
	}
	checkImageLink(fe, strings.TrimSpace(f.ImageLink))
	return fe.orNil()
}

// AddProperty posts new listings owned by the signed-in user.
type AddProperty struct {
	be   Backend
	sess Sessions
	inv  Invalidator
	log  *zap.Logger
}

func NewAddProperty(be Backend, sess Sessions, inv Invalidator, log *zap.Logger) *AddProperty {
	if log == nil {
		log = zap.NewNop()
	}
	return &AddProperty{be: be, sess: sess, inv: inv, log: log}
}

func (a *AddProperty) Submit(ctx context.Context, f PropertyForm) (domain.Property, error) {
	id, err := currentIdentity(a.sess)
	if err != nil {
		return domain.Property{}, err
	}
	if err := f.Validate(); err != nil {
		return domain.Property{}, err
	}
	owner := domain.Owner{Email: id.Email, Name: id.DisplayName}
	if owner.Name == "" {
		owner.Name = anonymousOwner
	}
	created, err := a.be.CreateProperty(ctx, id.Email, domain.NewProperty{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		Category:    f.Category,
		Price:       f.Price,
		Location: domain.Location{
			City:    strings.TrimSpace(f.City),
			Area:    strings.TrimSpace(f.Area),
			Address: strings.TrimSpace(f.Address),
		},
		ImageLink: strings.TrimSpace(f.ImageLink),
		User:      owner,
	})
	if err != nil {
		return domain.Property{}, fmt.Errorf("add property: %w", err)
	}
	invalidate(ctx, a.inv)
	a.log.Info("property added", zap.String("property_id", created.ID), zap.String("owner", id.Email))
	return created, nil
}
