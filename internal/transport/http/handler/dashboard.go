package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estate-portal/internal/portal"
	"estate-portal/internal/transport/http/ez"
)

func (h *Handler) mountDashboard(g *gin.RouterGroup) {
	ez.RegisterAction(h.ez(g), ez.Action[struct{}, portal.DashboardData]{
		Method: http.MethodGet,
		Path:   "/dashboard",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (portal.DashboardData, error) {
			return h.Dashboard.Load(c.Request.Context())
		},
	})
}
