package portal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"estate-portal/internal/domain"
)

// RatingsView is the "my ratings" screen: what I reviewed and what I may review.
type RatingsView struct {
	Reviews    []domain.Review            `json:"reviews"`
	Reviewable []domain.Property          `json:"reviewable"`
	Reviewed   map[string]domain.Property `json:"reviewed"`
}

// Ratings loads and submits the signed-in user's reviews. Details of reviewed properties
// are fetched once per property id and reused.
type Ratings struct {
	be   Backend
	sess Sessions
	log  *zap.Logger
	now  func() time.Time

	mu      sync.Mutex
	email   string
	userID  string
	details map[string]domain.Property
}

func NewRatings(be Backend, sess Sessions, log *zap.Logger) *Ratings {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ratings{be: be, sess: sess, log: log, now: time.Now, details: map[string]domain.Property{}}
}

func (r *Ratings) Load(ctx context.Context) (RatingsView, error) {
	id, err := currentIdentity(r.sess)
	if err != nil {
		return RatingsView{}, err
	}
	var (
		user       domain.UserRecord
		reviews    []domain.Review
		reviewable []domain.Property
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = r.be.LookupUser(gctx, id.Email)
		return err
	})
	g.Go(func() (err error) {
		reviews, err = r.be.MyReviews(gctx, id.Email)
		return err
	})
	g.Go(func() (err error) {
		reviewable, err = r.be.NotMyProperties(gctx, id.Email)
		return err
	})
	if err := g.Wait(); err != nil {
		return RatingsView{}, fmt.Errorf("load ratings: %w", err)
	}

	r.mu.Lock()
	if r.email != id.Email {
		r.details = map[string]domain.Property{}
	}
	r.email, r.userID = id.Email, user.ID
	r.mu.Unlock()

	return RatingsView{Reviews: reviews, Reviewable: reviewable, Reviewed: r.reviewedDetails(ctx, reviews)}, nil
}

// reviewedDetails returns the properties behind reviews. Lookups that fail are left out.
func (r *Ratings) reviewedDetails(ctx context.Context, reviews []domain.Review) map[string]domain.Property {
	out := map[string]domain.Property{}
	var missing []string
	r.mu.Lock()
	for _, rv := range reviews {
		if p, ok := r.details[rv.PropertyID]; ok {
			out[rv.PropertyID] = p
		} else if _, queued := out[rv.PropertyID]; !queued && !contains(missing, rv.PropertyID) {
			missing = append(missing, rv.PropertyID)
		}
	}
	r.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(4)
	var mu sync.Mutex
	for _, pid := range missing {
		pid := pid
		g.Go(func() error {
			p, err := r.be.Property(ctx, pid)
			if err != nil {
				r.log.Warn("property details unavailable", zap.String("property_id", pid), zap.Error(err))
				return nil
			}
			mu.Lock()
			out[pid] = p
			mu.Unlock()
			r.mu.Lock()
			r.details[pid] = p
			r.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// Submit posts a review and returns the refreshed list of my reviews.
func (r *Ratings) Submit(ctx context.Context, propertyID string, stars int, text string) ([]domain.Review, error) {
	id, err := currentIdentity(r.sess)
	if err != nil {
		return nil, err
	}
	fe := FieldErrors{}
	if strings.TrimSpace(propertyID) == "" {
		fe["propertyId"] = "choose a property"
	}
	if stars < 1 || stars > 5 {
		fe["starRating"] = "must be between 1 and 5"
	}
	if strings.TrimSpace(text) == "" {
		fe["reviewText"] = "is required"
	}
	if err := fe.orNil(); err != nil {
		return nil, err
	}

	userID, err := r.reviewerID(ctx, id.Email)
	if err != nil {
		return nil, fmt.Errorf("submit review: %w", err)
	}
	err = r.be.CreateReview(ctx, domain.NewReview{
		ReviewerID: userID,
		PropertyID: propertyID,
		StarRating: stars,
		ReviewText: strings.TrimSpace(text),
		ReviewDate: r.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("submit review: %w", err)
	}
	reviews, err := r.be.MyReviews(ctx, id.Email)
	if err != nil {
		return nil, fmt.Errorf("refresh reviews: %w", err)
	}
	return reviews, nil
}

func (r *Ratings) reviewerID(ctx context.Context, email string) (string, error) {
	r.mu.Lock()
	if r.email == email && r.userID != "" {
		defer r.mu.Unlock()
		return r.userID, nil
	}
	r.mu.Unlock()

	u, err := r.be.LookupUser(ctx, email)
	if err != nil {
		return "", err
	}
	if u.ID == "" {
		return "", fmt.Errorf("%w: no user record for %s", domain.ErrNotFound, email)
	}
	r.mu.Lock()
	r.email, r.userID = email, u.ID
	r.mu.Unlock()
	return u.ID, nil
}
