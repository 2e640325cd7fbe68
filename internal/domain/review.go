package domain

import "time"

type Review struct {
	ID           string    `json:"_id"`
	PropertyID   string    `json:"propertyId"`
	ReviewerID   string    `json:"reviewerId"`
	ReviewerName string    `json:"reviewerName,omitempty"`
	StarRating   int       `json:"starRating"`
	ReviewText   string    `json:"reviewText"`
	ReviewDate   time.Time `json:"reviewDate"`
}

type NewReview struct {
	ReviewerID string    `json:"reviewerId"`
	PropertyID string    `json:"propertyId"`
	StarRating int       `json:"starRating"`
	ReviewText string    `json:"reviewText"`
	ReviewDate time.Time `json:"reviewDate"`
}
