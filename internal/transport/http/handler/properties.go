package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estate-portal/internal/domain"
	"estate-portal/internal/portal"
	"estate-portal/internal/transport/http/ez"
)

func (h *Handler) mountProperties(g *gin.RouterGroup) {
	e := h.ez(g)

	ez.RegisterAction(e, ez.Action[struct{}, portal.Details]{
		Method: http.MethodGet,
		Path:   "/properties/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (portal.Details, error) {
			return h.Details.Get(c.Request.Context(), c.Param("id"))
		},
	})

	ez.RegisterAction(e, ez.Action[portal.PropertyForm, domain.Property]{
		Method: http.MethodPost,
		Path:   "/properties",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *portal.PropertyForm) (domain.Property, error) {
			return h.AddProperty.Submit(c.Request.Context(), *in)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, []domain.Property]{
		Method: http.MethodGet,
		Path:   "/my-properties",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Property, error) {
			items, err := h.MyProperties.Load(c.Request.Context())
			if items == nil && err == nil {
				items = []domain.Property{}
			}
			return items, err
		},
	})

	ez.RegisterAction(e, ez.Action[domain.PropertyPatch, domain.Property]{
		Method: http.MethodPatch,
		Path:   "/my-properties/:id",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *domain.PropertyPatch) (domain.Property, error) {
			return h.MyProperties.Update(c.Request.Context(), c.Param("id"), *in)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, []domain.Property]{
		Method: http.MethodDelete,
		Path:   "/my-properties/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Property, error) {
			if err := h.MyProperties.Delete(c.Request.Context(), c.Param("id")); err != nil {
				return nil, err
			}
			items := h.MyProperties.Items()
			if items == nil {
				items = []domain.Property{}
			}
			return items, nil
		},
	})
}
