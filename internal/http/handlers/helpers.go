package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/auth"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http/middleware"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/apperr"
)

// PathID parses a positive numeric path parameter.
func PathID(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.InvalidErr("Invalid id", map[string]string{name: "must be a positive integer"})
	}
	return id, nil
}

// user returns the claims set by RequireUser. Routes without that
// middleware get 401.
func user(c *gin.Context) (auth.Claims, bool) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Missing bearer token."))
	}
	return u, ok
}
