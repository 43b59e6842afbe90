package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/apperr"
)

// Recovery turns a handler panic into a 500 rendered by ErrorHandler.
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		l.Error("panic_recovered",
			zap.String("request_id", GetRequestID(c)),
			zap.Any("panic", recovered),
			zap.Stack("stack"),
		)
		Fail(c, apperr.Wrap(fmt.Errorf("panic: %v", recovered)))
	})
}
