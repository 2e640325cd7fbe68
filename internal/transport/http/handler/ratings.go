package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estate-portal/internal/domain"
	"estate-portal/internal/portal"
	"estate-portal/internal/transport/http/ez"
)

type reviewIn struct {
	PropertyID string `json:"propertyId"`
	StarRating int    `json:"starRating"`
	ReviewText string `json:"reviewText"`
}

func (h *Handler) mountRatings(g *gin.RouterGroup) {
	e := h.ez(g)

	ez.RegisterAction(e, ez.Action[struct{}, portal.RatingsView]{
		Method: http.MethodGet,
		Path:   "/my-ratings",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (portal.RatingsView, error) {
			return h.Ratings.Load(c.Request.Context())
		},
	})

	ez.RegisterAction(e, ez.Action[reviewIn, []domain.Review]{
		Method: http.MethodPost,
		Path:   "/my-ratings",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *reviewIn) ([]domain.Review, error) {
			return h.Ratings.Submit(c.Request.Context(), in.PropertyID, in.StarRating, in.ReviewText)
		},
	})
}
