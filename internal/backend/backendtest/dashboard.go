package backendtest

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"estate-portal/internal/domain"
)

// reviewsOf returns the reviews written about the given listings.
func (s *Server) reviewsOf(props []domain.Property) []domain.Review {
	ids := map[string]bool{}
	for _, p := range props {
		ids[p.ID] = true
	}
	var out []domain.Review
	for _, r := range s.Reviews() {
		if ids[r.PropertyID] {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) dashboardStats(c *gin.Context) {
	mine := s.ownedBy(c.Query("email"), true)
	revs := s.reviewsOf(mine)
	st := domain.DashboardStats{TotalProperties: len(mine), TotalReviews: len(revs)}
	for _, p := range mine {
		st.TotalValue += p.Price
	}
	if len(mine) > 0 {
		st.AveragePrice = st.TotalValue / float64(len(mine))
	}
	if len(revs) > 0 {
		sum := 0
		for _, r := range revs {
			sum += r.StarRating
		}
		st.AverageRating = float64(sum) / float64(len(revs))
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) monthlyActivity(c *gin.Context) {
	mine := s.ownedBy(c.Query("email"), true)
	byMonth := map[string]*domain.MonthlyActivity{}
	get := func(m string) *domain.MonthlyActivity {
		if byMonth[m] == nil {
			byMonth[m] = &domain.MonthlyActivity{Month: m}
		}
		return byMonth[m]
	}
	for _, p := range mine {
		get(p.PostedDate.Format("2006-01")).Properties++
	}
	for _, r := range s.reviewsOf(mine) {
		get(r.ReviewDate.Format("2006-01")).Reviews++
	}
	out := make([]domain.MonthlyActivity, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	c.JSON(http.StatusOK, out)
}

func (s *Server) propertyDistribution(c *gin.Context) {
	counts := map[string]int{}
	for _, p := range s.ownedBy(c.Query("email"), true) {
		counts[string(p.Category)]++
	}
	out := make([]domain.CategoryShare, 0, len(counts))
	for name, n := range counts {
		out = append(out, domain.CategoryShare{Name: name, Value: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	c.JSON(http.StatusOK, out)
}

func (s *Server) recentProperties(c *gin.Context) {
	mine := s.ownedBy(c.Query("email"), true)
	sortProperties(mine, "postedDate", "desc")
	if len(mine) > 5 {
		mine = mine[:5]
	}
	c.JSON(http.StatusOK, mine)
}

// changes compares the current calendar month with the previous one.
func (s *Server) changes(c *gin.Context) {
	now := s.Now().UTC()
	cur := now.Format("2006-01")
	prev := now.AddDate(0, -1, 0).Format("2006-01")
	var n, value [2]float64
	for _, p := range s.ownedBy(c.Query("email"), true) {
		switch p.PostedDate.Format("2006-01") {
		case cur:
			n[0]++
			value[0] += p.Price
		case prev:
			n[1]++
			value[1] += p.Price
		}
	}
	c.JSON(http.StatusOK, domain.Changes{
		PropertyChange: pct(n[0], n[1]),
		ValueChange:    pct(value[0], value[1]),
	})
}

func pct(cur, prev float64) float64 {
	if prev == 0 {
		if cur == 0 {
			return 0
		}
		return 100
	}
	return (cur - prev) / prev * 100
}
