package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/auth"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/apperr"
)

const CtxKeyUser = "auth_user"

// RequireUser verifies the bearer token and stores the claims for
// CurrentUser. Missing or invalid tokens fail with 401.
func RequireUser(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			Fail(c, apperr.UnauthorizedErr("Missing bearer token.").WithCause(err))
			return
		}
		claims, err := v.Verify(raw)
		if err != nil {
			Fail(c, err)
			return
		}
		c.Set(CtxKeyUser, claims)
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (auth.Claims, bool) {
	v, ok := c.Get(CtxKeyUser)
	if !ok {
		return auth.Claims{}, false
	}
	u, ok := v.(auth.Claims)
	return u, ok
}
