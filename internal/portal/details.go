package portal

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"estate-portal/internal/domain"
)

// Details is a property page: the listing, its reviews and their average.
type Details struct {
	Property      domain.Property `json:"property"`
	Reviews       []domain.Review `json:"reviews"`
	AverageRating float64         `json:"averageRating"`
	ReviewCount   int             `json:"reviewCount"`
}

type PropertyDetails struct {
	be Backend
}

func NewPropertyDetails(be Backend) *PropertyDetails { return &PropertyDetails{be: be} }

func (d *PropertyDetails) Get(ctx context.Context, id string) (Details, error) {
	var out Details
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Property, err = d.be.Property(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		out.Reviews, err = d.be.PropertyReviews(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return Details{}, fmt.Errorf("property %s: %w", id, err)
	}
	out.ReviewCount = len(out.Reviews)
	out.AverageRating = AverageRating(out.Reviews)
	return out, nil
}

// AverageRating is the mean star rating rounded to one decimal; 0 without reviews.
func AverageRating(reviews []domain.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.StarRating
	}
	return math.Round(float64(sum)/float64(len(reviews))*10) / 10
}
