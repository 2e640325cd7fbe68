package domain

type DashboardStats struct {
	TotalProperties int     `json:"totalProperties"`
	TotalValue      float64 `json:"totalValue"`
	AveragePrice    float64 `json:"averagePrice"`
	TotalReviews    int     `json:"totalReviews"`
	AverageRating   float64 `json:"averageRating"`
}

type MonthlyActivity struct {
	Month      string `json:"month"`
	Properties int    `json:"properties"`
	Reviews    int    `json:"reviews"`
}

type CategoryShare struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Changes holds month-over-month percentages shown next to the dashboard cards.
type Changes struct {
	PropertyChange float64 `json:"propertyChange"`
	ValueChange    float64 `json:"valueChange"`
	ReviewChange   float64 `json:"reviewChange"`
	RatingChange   float64 `json:"ratingChange"`
}

type AdminStats struct {
	TotalUsers      int `json:"totalUsers"`
	TotalProperties int `json:"totalProperties"`
	TotalReviews    int `json:"totalReviews"`
	TotalAdmins     int `json:"totalAdmins"`
}
