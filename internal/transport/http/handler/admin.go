package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estate-portal/internal/portal"
	"estate-portal/internal/transport/http/ez"
)

func (h *Handler) mountAdmin(g *gin.RouterGroup) {
	e := h.ez(g)

	ez.RegisterAction(e, ez.Action[struct{}, portal.AdminData]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (portal.AdminData, error) {
			return h.Admin.Load(c.Request.Context())
		},
	})

	// deletes answer with the panel as it stands after the removal
	ez.RegisterAction(e, ez.Action[struct{}, portal.AdminData]{
		Method: http.MethodDelete,
		Path:   "/properties/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (portal.AdminData, error) {
			if err := h.Admin.DeleteProperty(c.Request.Context(), c.Param("id")); err != nil {
				return portal.AdminData{}, err
			}
			return h.Admin.Data(), nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, portal.AdminData]{
		Method: http.MethodDelete,
		Path:   "/reviews/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (portal.AdminData, error) {
			if err := h.Admin.DeleteReview(c.Request.Context(), c.Param("id")); err != nil {
				return portal.AdminData{}, err
			}
			return h.Admin.Data(), nil
		},
	})
}
