// Package http assembles the gin engines for the order and payment
// services.
package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/auth"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http/handlers"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http/handlers/admin"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http/middleware"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/orders"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/payments"
)

type Deps struct {
	Log      *zap.Logger
	Verifier *auth.Verifier
	// DB is pinged by /health when set.
	DB handlers.Pinger
}

func newEngine(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Log),
		middleware.Recovery(d.Log),
		middleware.ErrorHandler(d.Log),
	)
	r.GET("/health", handlers.Health(d.DB))
	return r
}

func NewOrderRouter(d Deps, svc *orders.Service) *gin.Engine {
	r := newEngine(d)
	h := handlers.NewOrdersHandler(svc)

	g := r.Group("/orders", middleware.RequireUser(d.Verifier))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/pay", h.Pay)
	g.PATCH("/:id", h.Patch)

	ah := admin.NewOrdersHandler(svc)
	ag := r.Group("/admin/orders", middleware.RequireUser(d.Verifier), middleware.RequireAdmin())
	ag.GET("", ah.List)
	ag.GET("/:id", ah.Detail)

	return r
}

func NewPaymentRouter(d Deps, svc *payments.Service) *gin.Engine {
	r := newEngine(d)
	h := handlers.NewPaymentsHandler(svc)

	g := r.Group("/payments", middleware.RequireUser(d.Verifier))
	g.POST("/:orderId", h.Pay)
	g.GET("/:id", h.Get)
	g.GET("", h.List)

	return r
}
