package portal

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-portal/internal/backend"
	"estate-portal/internal/backend/backendtest"
	"estate-portal/internal/core/auth"
	"estate-portal/internal/domain"
)

type staticSession struct {
	mu sync.Mutex
	s  domain.Session
}

func (s *staticSession) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s.Clone()
}

func (s *staticSession) set(email string, role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if email == "" {
		s.s = domain.Session{}
		return
	}
	s.s = domain.Session{Identity: &domain.Identity{UID: "uid-" + email, Email: email, DisplayName: "Alice"}, Role: role}
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.n++
	return nil
}

type env struct {
	fake *backendtest.Server
	be   *backend.Client
	sess *staticSession
	inv  *countingInvalidator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	jwt := &auth.JWTer{Secret: []byte("portal-test"), Issuer: "portal-test", TTL: time.Hour}
	e := &env{fake: backendtest.New(jwt).Start(), sess: &staticSession{}, inv: &countingInvalidator{}}
	t.Cleanup(e.fake.Close)
	be, err := backend.New(backend.Options{
		BaseURL: e.fake.URL(),
		Tokens: backend.TokenFunc(func(context.Context) (string, error) {
			s := e.sess.Snapshot()
			if s.Identity == nil {
				return "", domain.ErrAuthorization
			}
			return e.fake.Token(s.Identity.Email), nil
		}),
	})
	require.NoError(t, err)
	e.be = be
	e.sess.set("a@b.com", domain.RoleUser)
	e.fake.AddUser(domain.UserRecord{Name: "Alice", Email: "a@b.com"})
	return e
}

func TestMyProperties_ConfirmThenUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mine := e.fake.AddProperty(domain.Property{Name: "Flat", Category: domain.CategoryRent, Price: 900, User: domain.Owner{Email: "a@b.com"}})
	e.fake.AddProperty(domain.Property{Name: "Not mine", Price: 1, User: domain.Owner{Email: "o@b.com"}})

	svc := NewMyProperties(e.be, e.sess, e.inv, nil)
	items, err := svc.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	name := "Bright flat"
	updated, err := svc.Update(ctx, mine.ID, domain.PropertyPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Bright flat", updated.Name)
	assert.Equal(t, 900.0, updated.Price)
	assert.Equal(t, "Bright flat", svc.Items()[0].Name)

	// rejected by the backend: local list untouched
	e.fake.Fail("PATCH /my-properties/:id", http.StatusInternalServerError)
	other := "Broken"
	_, err = svc.Update(ctx, mine.ID, domain.PropertyPatch{Name: &other})
	require.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, "Bright flat", svc.Items()[0].Name)

	e.fake.Fail("DELETE /my-properties/:id", http.StatusForbidden)
	require.ErrorIs(t, svc.Delete(ctx, mine.ID), domain.ErrAuthorization)
	assert.Len(t, svc.Items(), 1)

	e.fake.Fail("DELETE /my-properties/:id", 0)
	require.NoError(t, svc.Delete(ctx, mine.ID))
	assert.Empty(t, svc.Items())
	assert.Equal(t, 2, e.inv.n)
}

func TestMyProperties_UpdateWithoutLocalListReadsBack(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mine := e.fake.AddProperty(domain.Property{Name: "Flat", Category: domain.CategoryRent, Price: 900, User: domain.Owner{Email: "a@b.com"}})

	svc := NewMyProperties(e.be, e.sess, e.inv, nil)
	price := 1200.0
	updated, err := svc.Update(ctx, mine.ID, domain.PropertyPatch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, mine.ID, updated.ID)
	assert.Equal(t, "Flat", updated.Name)
	assert.Equal(t, 1200.0, updated.Price)
	assert.Equal(t, 1, e.fake.Hits("GET /property/:id"))
}

func TestMyProperties_Validation(t *testing.T) {
	e := newEnv(t)
	svc := NewMyProperties(e.be, e.sess, nil, nil)
	price := -5.0
	cat := domain.Category("Castle")
	_, err := svc.Update(context.Background(), "p1", domain.PropertyPatch{Price: &price, Category: &cat})
	require.ErrorIs(t, err, domain.ErrValidation)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "price")
	assert.Contains(t, fe, "category")
	assert.Equal(t, 0, e.fake.Hits("PATCH /my-properties/:id"))
}

func TestMyProperties_ItemsHiddenAfterSignOut(t *testing.T) {
	e := newEnv(t)
	e.fake.AddProperty(domain.Property{Name: "Flat", Price: 1, User: domain.Owner{Email: "a@b.com"}})
	svc := NewMyProperties(e.be, e.sess, nil, nil)
	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	e.sess.set("", "")
	assert.Nil(t, svc.Items())
	_, err = svc.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestAddProperty(t *testing.T) {
	e := newEnv(t)
	svc := NewAddProperty(e.be, e.sess, e.inv, nil)

	_, err := svc.Submit(context.Background(), PropertyForm{Price: -1, ImageLink: "ftp://x"})
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Len(t, fe, 5)

	created, err := svc.Submit(context.Background(), PropertyForm{
		Name: " Lake house ", Category: domain.CategorySale, Price: 250000, City: "Sylhet",
		ImageLink: "https://img.example/lake.png",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	stored := e.fake.Properties()
	require.Len(t, stored, 1)
	assert.Equal(t, "Lake house", stored[0].Name)
	assert.Equal(t, domain.Owner{Name: "Alice", Email: "a@b.com"}, stored[0].User)
	assert.Equal(t, 1, e.inv.n)
}

func TestRatings_LoadAndSubmit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	me, _ := e.fake.User("a@b.com")
	loft := e.fake.AddProperty(domain.Property{Name: "Loft", Price: 10, User: domain.Owner{Email: "o@b.com"}})
	barn := e.fake.AddProperty(domain.Property{Name: "Barn", Price: 20, User: domain.Owner{Email: "o@b.com"}})
	e.fake.AddReview(domain.Review{PropertyID: loft.ID, ReviewerID: me.ID, StarRating: 5, ReviewText: "Great"})
	e.fake.AddReview(domain.Review{PropertyID: loft.ID, ReviewerID: me.ID, StarRating: 4, ReviewText: "Still great"})

	svc := NewRatings(e.be, e.sess, nil)
	view, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Reviews, 2)
	assert.Len(t, view.Reviewable, 2)
	assert.Equal(t, "Loft", view.Reviewed[loft.ID].Name)
	assert.Equal(t, 1, e.fake.Hits("GET /property/:id"), "one details fetch per property")

	_, err = svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, e.fake.Hits("GET /property/:id"), "details are reused")

	_, err = svc.Submit(ctx, barn.ID, 6, "")
	require.ErrorIs(t, err, domain.ErrValidation)

	reviews, err := svc.Submit(ctx, barn.ID, 3, "Drafty")
	require.NoError(t, err)
	assert.Len(t, reviews, 3)
}

func TestRatings_LoadFailsWhenAnyRequestFails(t *testing.T) {
	e := newEnv(t)
	e.fake.Fail("GET /not-my-properties", http.StatusInternalServerError)
	_, err := NewRatings(e.be, e.sess, nil).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestPropertyDetails(t *testing.T) {
	e := newEnv(t)
	p := e.fake.AddProperty(domain.Property{Name: "Loft", Price: 10})
	for _, stars := range []int{5, 4, 4} {
		e.fake.AddReview(domain.Review{PropertyID: p.ID, StarRating: stars})
	}
	d, err := NewPropertyDetails(e.be).Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loft", d.Property.Name)
	assert.Equal(t, 3, d.ReviewCount)
	assert.Equal(t, 4.3, d.AverageRating)

	_, err = NewPropertyDetails(e.be).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAverageRating(t *testing.T) {
	assert.Equal(t, 0.0, AverageRating(nil))
	assert.Equal(t, 4.5, AverageRating([]domain.Review{{StarRating: 4}, {StarRating: 5}}))
	assert.Equal(t, 2.7, AverageRating([]domain.Review{{StarRating: 1}, {StarRating: 2}, {StarRating: 5}}))
}

func TestDashboard_Load(t *testing.T) {
	e := newEnv(t)
	e.fake.AddProperty(domain.Property{Name: "A", Category: domain.CategorySale, Price: 100, User: domain.Owner{Email: "a@b.com"}})
	e.fake.AddProperty(domain.Property{Name: "B", Category: domain.CategorySale, Price: 200, User: domain.Owner{Email: "a@b.com"}})

	d, err := NewDashboard(e.be, e.sess).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, d.Stats.TotalProperties)
	assert.Equal(t, []domain.CategoryShare{{Name: "Sale", Value: 2}}, d.Distribution)
	assert.Len(t, d.Recent, 2)
	assert.Len(t, d.Monthly, 1)

	e.fake.Fail("GET /dashboard/changes", http.StatusBadGateway)
	_, err = NewDashboard(e.be, e.sess).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.fake.AddProperty(domain.Property{Name: "A", Price: 100})
	r := e.fake.AddReview(domain.Review{PropertyID: p.ID, StarRating: 3})

	svc := NewAdmin(e.be, e.sess, e.inv, nil)
	_, err := svc.Load(ctx)
	require.ErrorIs(t, err, domain.ErrAuthorization, "user role is refused locally")

	e.sess.set("a@b.com", domain.RoleAdmin)
	_, err = svc.Load(ctx)
	require.ErrorIs(t, err, domain.ErrAuthorization, "backend still says user")

	e.fake.AddUser(domain.UserRecord{Name: "Alice", Email: "a@b.com", Role: "admin"})
	data, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, data.Stats.TotalProperties)
	assert.Len(t, data.Users, 1)

	e.fake.Fail("DELETE /admin/properties/:id", http.StatusInternalServerError)
	require.Error(t, svc.DeleteProperty(ctx, p.ID))
	assert.Len(t, svc.Data().Properties, 1)

	e.fake.Fail("DELETE /admin/properties/:id", 0)
	require.NoError(t, svc.DeleteProperty(ctx, p.ID))
	require.NoError(t, svc.DeleteReview(ctx, r.ID))
	got := svc.Data()
	assert.Empty(t, got.Properties)
	assert.Empty(t, got.Reviews)
	assert.Equal(t, 0, got.Stats.TotalProperties)
	assert.Equal(t, 0, got.Stats.TotalReviews)
	assert.Equal(t, 1, e.inv.n)
}

func TestFeatured(t *testing.T) {
	e := newEnv(t)
	for i := 1; i <= 8; i++ {
		e.fake.AddProperty(domain.Property{Name: "p", Category: domain.CategorySale, Price: float64(i * 1000), User: domain.Owner{Email: "o@b.com"}})
	}
	items, err := Featured(context.Background(), e.be, FeaturedCount)
	require.NoError(t, err)
	require.Len(t, items, FeaturedCount)
	assert.Equal(t, 8000.0, items[0].Price)
	assert.Equal(t, 3000.0, items[5].Price)

	e.fake.Fail("GET /property", http.StatusInternalServerError)
	_, err = Featured(context.Background(), e.be, FeaturedCount)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}
