// Package backendtest runs an in-memory listings backend on a loopback port for tests and
// for the portal's dev mode.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"estate-portal/internal/core/auth"
	"estate-portal/internal/domain"
	"estate-portal/pkg/utils"
)

const ctxEmail = "backendtest.email"

// Server is a fake backend speaking the listings REST API. Tokens are verified with JWT,
// so it pairs with the local identity provider.
type Server struct {
	JWT *auth.JWTer
	// Now stamps created listings and reviews.
	Now func() time.Time

	engine *gin.Engine
	srv    *httptest.Server

	mu         sync.Mutex
	users      map[string]*domain.UserRecord // by email
	properties []domain.Property
	reviews    []domain.Review
	failures   map[string]int
	hits       map[string]int
}

// New builds the fake without listening; use Start, or mount Handler yourself.
func New(jwt *auth.JWTer) *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		JWT:      jwt,
		Now:      time.Now,
		users:    map[string]*domain.UserRecord{},
		failures: map[string]int{},
		hits:     map[string]int{},
	}
	s.engine = s.routes()
	return s
}

// Start listens on a loopback port.
func (s *Server) Start() *Server {
	s.srv = httptest.NewServer(s.engine)
	return s
}

func (s *Server) URL() string { return s.srv.URL }

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Close() {
	if s.srv != nil {
		s.srv.Close()
	}
}

// Fail makes endpoint (e.g. "GET /property/:id") answer with status until cleared with 0.
func (s *Server) Fail(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, endpoint)
		return
	}
	s.failures[endpoint] = status
}

// Hits counts the requests endpoint received, failed ones included.
func (s *Server) Hits(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[endpoint]
}

// Token issues a bearer token for email.
func (s *Server) Token(email string) string {
	tok, err := s.JWT.Issue(domain.Identity{UID: "uid-" + email, Email: email})
	if err != nil {
		panic(err)
	}
	return tok
}

func (s *Server) AddUser(u domain.UserRecord) domain.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	if u.Properties == nil {
		u.Properties = []string{}
	}
	s.users[strings.ToLower(u.Email)] = &u
	return u
}

func (s *Server) User(email string) (domain.UserRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return domain.UserRecord{}, false
	}
	return *u, true
}

func (s *Server) AddProperty(p domain.Property) domain.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = utils.NewID()
	}
	if p.PostedDate.IsZero() {
		p.PostedDate = s.Now().UTC()
	}
	s.properties = append(s.properties, p)
	if u, ok := s.users[strings.ToLower(p.User.Email)]; ok {
		u.Properties = append(u.Properties, p.ID)
	}
	return p
}

func (s *Server) Properties() []domain.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Property(nil), s.properties...)
}

func (s *Server) AddReview(r domain.Review) domain.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = utils.NewID()
	}
	s.reviews = append(s.reviews, r)
	return r
}

func (s *Server) Reviews() []domain.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Review(nil), s.reviews...)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.countAndFail)

	r.GET("/users", s.getUser)
	r.GET("/property", s.listProperties)
	r.GET("/property/:id", s.getProperty)
	r.GET("/reviews/:propertyId", s.propertyReviews)

	authed := r.Group("/", s.requireToken)
	authed.POST("/users", s.ensureUser)
	authed.POST("/property", s.ownerOnly, s.createProperty)
	authed.GET("/my-properties", s.ownerOnly, s.myProperties)
	authed.PATCH("/my-properties/:id", s.ownerOnly, s.updateMyProperty)
	authed.DELETE("/my-properties/:id", s.ownerOnly, s.deleteMyProperty)
	authed.GET("/not-my-properties", s.ownerOnly, s.notMyProperties)
	authed.GET("/reviews", s.ownerOnly, s.myReviews)
	authed.POST("/reviews", s.createReview)

	dash := authed.Group("/dashboard", s.ownerOnly)
	dash.GET("/stats", s.dashboardStats)
	dash.GET("/monthly-activity", s.monthlyActivity)
	dash.GET("/property-distribution", s.propertyDistribution)
	dash.GET("/recent-properties", s.recentProperties)
	dash.GET("/changes", s.changes)

	admin := authed.Group("/admin", s.adminOnly)
	admin.GET("/dashboard/stats", s.adminStats)
	admin.GET("/users", s.adminUsers)
	admin.GET("/properties", s.adminProperties)
	admin.GET("/reviews", s.adminReviews)
	admin.DELETE("/properties/:id", s.adminDeleteProperty)
	admin.DELETE("/reviews/:id", s.adminDeleteReview)
	return r
}

func (s *Server) countAndFail(c *gin.Context) {
	endpoint := c.Request.Method + " " + c.FullPath()
	s.mu.Lock()
	s.hits[endpoint]++
	status, fail := s.failures[endpoint]
	s.mu.Unlock()
	if fail {
		c.AbortWithStatusJSON(status, gin.H{"message": "injected failure"})
		return
	}
	c.Next()
}

func (s *Server) requireToken(c *gin.Context) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized access"})
		return
	}
	claims, err := s.JWT.Parse(strings.TrimPrefix(h, "Bearer "))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized access"})
		return
	}
	c.Set(ctxEmail, strings.ToLower(claims.Email))
	c.Next()
}

// ownerOnly rejects requests whose email query does not match the token.
func (s *Server) ownerOnly(c *gin.Context) {
	if q := c.Query("email"); !strings.EqualFold(q, c.GetString(ctxEmail)) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "forbidden access"})
		return
	}
	c.Next()
}

func (s *Server) adminOnly(c *gin.Context) {
	s.mu.Lock()
	u, ok := s.users[c.GetString(ctxEmail)]
	isAdmin := ok && u.Role == "admin"
	s.mu.Unlock()
	if !isAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "forbidden access"})
		return
	}
	c.Next()
}

func (s *Server) getUser(c *gin.Context) {
	u, ok := s.User(c.Query("email"))
	if !ok {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) ensureUser(c *gin.Context) {
	var in domain.UserRecord
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email is required"})
		return
	}
	if _, ok := s.User(in.Email); ok {
		c.JSON(http.StatusOK, domain.EnsureUserResult{ExistingUser: true})
		return
	}
	in.ID, in.Role = "", ""
	u := s.AddUser(in)
	c.JSON(http.StatusOK, domain.EnsureUserResult{InsertedID: u.ID})
}

func (s *Server) listProperties(c *gin.Context) {
	items := s.Properties()
	if q := strings.ToLower(strings.TrimSpace(c.Query("search"))); q != "" {
		kept := items[:0]
		for _, p := range items {
			if strings.Contains(strings.ToLower(p.Name), q) ||
				strings.Contains(strings.ToLower(p.Description), q) ||
				strings.Contains(strings.ToLower(p.Location.City), q) {
				kept = append(kept, p)
			}
		}
		items = kept
	}
	sortProperties(items, c.DefaultQuery("sortBy", "postedDate"), c.DefaultQuery("order", "desc"))
	c.JSON(http.StatusOK, items)
}

func sortProperties(items []domain.Property, by, order string) {
	less := func(a, b domain.Property) bool { return a.PostedDate.Before(b.PostedDate) }
	switch by {
	case "price":
		less = func(a, b domain.Property) bool { return a.Price < b.Price }
	case "name":
		less = func(a, b domain.Property) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	}
	sort.SliceStable(items, func(i, j int) bool {
		if order == "asc" {
			return less(items[i], items[j])
		}
		return less(items[j], items[i])
	})
}

func (s *Server) findProperty(id string) (domain.Property, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.properties {
		if p.ID == id {
			return p, i
		}
	}
	return domain.Property{}, -1
}

func (s *Server) getProperty(c *gin.Context) {
	p, i := s.findProperty(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "property not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) createProperty(c *gin.Context) {
	var in domain.NewProperty
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if strings.TrimSpace(in.Name) == "" || !in.Category.Valid() || in.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "name, category and a positive price are required"})
		return
	}
	p := s.AddProperty(domain.Property{
		Name: in.Name, Description: in.Description, Category: in.Category, Price: in.Price,
		Location: in.Location, ImageLink: in.ImageLink, User: in.User,
	})
	c.JSON(http.StatusCreated, gin.H{"acknowledged": true, "insertedId": p.ID})
}

func (s *Server) ownedBy(email string, mine bool) []domain.Property {
	out := []domain.Property{}
	for _, p := range s.Properties() {
		if strings.EqualFold(p.User.Email, email) == mine {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) myProperties(c *gin.Context) {
	c.JSON(http.StatusOK, s.ownedBy(c.Query("email"), true))
}

func (s *Server) notMyProperties(c *gin.Context) {
	c.JSON(http.StatusOK, s.ownedBy(c.Query("email"), false))
}

// owned resolves :id for the caller, writing 404/403 itself.
func (s *Server) owned(c *gin.Context) (domain.Property, bool) {
	p, i := s.findProperty(c.Param("id"))
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "property not found"})
		return p, false
	}
	if !strings.EqualFold(p.User.Email, c.GetString(ctxEmail)) {
		c.JSON(http.StatusForbidden, gin.H{"message": "not your property"})
		return p, false
	}
	return p, true
}

func (s *Server) updateMyProperty(c *gin.Context) {
	var patch domain.PropertyPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if _, ok := s.owned(c); !ok {
		return
	}
	id := c.Param("id")
	s.mu.Lock()
	for i, p := range s.properties {
		if p.ID == id {
			s.properties[i] = patch.Apply(p)
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"matchedCount": 1, "modifiedCount": 1})
}

func (s *Server) deleteMyProperty(c *gin.Context) {
	if _, ok := s.owned(c); !ok {
		return
	}
	s.removeProperty(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"deletedCount": 1})
}

func (s *Server) removeProperty(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.properties {
		if p.ID == id {
			s.properties = append(s.properties[:i], s.properties[i+1:]...)
			return
		}
	}
}

func (s *Server) propertyReviews(c *gin.Context) {
	id := c.Param("propertyId")
	out := []domain.Review{}
	for _, r := range s.Reviews() {
		if r.PropertyID == id {
			out = append(out, r)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) myReviews(c *gin.Context) {
	u, ok := s.User(c.Query("email"))
	out := []domain.Review{}
	if ok {
		for _, r := range s.Reviews() {
			if r.ReviewerID == u.ID {
				out = append(out, r)
			}
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createReview(c *gin.Context) {
	var in domain.NewReview
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if in.StarRating < 1 || in.StarRating > 5 || strings.TrimSpace(in.ReviewText) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "rating 1-5 and review text are required"})
		return
	}
	if _, i := s.findProperty(in.PropertyID); i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "property not found"})
		return
	}
	me, _ := s.User(c.GetString(ctxEmail))
	if me.ID != in.ReviewerID {
		c.JSON(http.StatusForbidden, gin.H{"message": "reviewer mismatch"})
		return
	}
	date := in.ReviewDate
	if date.IsZero() {
		date = s.Now().UTC()
	}
	r := s.AddReview(domain.Review{
		PropertyID: in.PropertyID, ReviewerID: in.ReviewerID, ReviewerName: me.Name,
		StarRating: in.StarRating, ReviewText: in.ReviewText, ReviewDate: date,
	})
	c.JSON(http.StatusCreated, gin.H{"acknowledged": true, "insertedId": r.ID})
}

func (s *Server) adminUsers(c *gin.Context) {
	s.mu.Lock()
	out := make([]domain.UserRecord, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	c.JSON(http.StatusOK, out)
}

func (s *Server) adminProperties(c *gin.Context) { c.JSON(http.StatusOK, s.Properties()) }

func (s *Server) adminReviews(c *gin.Context) { c.JSON(http.StatusOK, s.Reviews()) }

func (s *Server) adminStats(c *gin.Context) {
	s.mu.Lock()
	st := domain.AdminStats{TotalUsers: len(s.users), TotalProperties: len(s.properties), TotalReviews: len(s.reviews)}
	for _, u := range s.users {
		if u.Role == "admin" {
			st.TotalAdmins++
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, st)
}

func (s *Server) adminDeleteProperty(c *gin.Context) {
	if _, i := s.findProperty(c.Param("id")); i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "property not found"})
		return
	}
	s.removeProperty(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"deletedCount": 1})
}

func (s *Server) adminDeleteReview(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reviews {
		if r.ID == id {
			s.reviews = append(s.reviews[:i], s.reviews[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"deletedCount": 1})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "review not found"})
}
