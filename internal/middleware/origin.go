package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shift-booking-api/internal/service"
)

// RequestOrigin stores the client address and user agent on the request
// context so services can stamp audit records.
func RequestOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := service.WithRequestOrigin(c.Request.Context(), service.RequestOrigin{
			IP:        c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
