package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"estate-portal/internal/backend"
)

const KeyRequestID = "X-Request-ID"

// RequestID echoes or mints X-Request-ID and forwards it to backend calls made for the request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.Request.Header.Get(KeyRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Request = c.Request.WithContext(backend.WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}
