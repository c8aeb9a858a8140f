package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TenantParamMiddleware takes the tenant from the URL and stores it in the
// gin context for CustomContextMiddleware to pick up. Must run before it.
func TenantParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := c.Param("tenant")
		if tenant == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant is required"})
			c.Abort()
			return
		}

		c.Set("TenantName", tenant)
		c.Next()
	}
}
