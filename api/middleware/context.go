package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/openstay/reservstack/internal/utils"
)

// CustomContextMiddleware copies the gin request state into the application
// context so lower layers see the tenant without touching gin.
func CustomContextMiddleware(appSource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := utils.WithCustomContextFromGinRequest(c, appSource)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
