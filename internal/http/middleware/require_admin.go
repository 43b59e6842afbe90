package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/apperr"
)

// RequireAdmin must run after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			Fail(c, apperr.UnauthorizedErr("Missing bearer token."))
			return
		}
		if !u.IsAdmin {
			Fail(c, apperr.ForbiddenErr("Admin only"))
			return
		}
		c.Next()
	}
}
