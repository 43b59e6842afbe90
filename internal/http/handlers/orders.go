package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http/middleware"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http/validation"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/orders"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

type OrderItemOut struct {
	ProductID uint64       `json:"product_id"`
	Qty       int          `json:"qty"`
	UnitPrice money.Amount `json:"unit_price"`
}

type OrderOut struct {
	ID        uint64         `json:"id"`
	UserID    uint64         `json:"user_id"`
	UserEmail string         `json:"user_email"`
	Status    string         `json:"status"`
	Total     money.Amount   `json:"total"`
	PaidAt    *time.Time     `json:"paid_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Items     []OrderItemOut `json:"items"`
}

func ToOrderOut(o orders.Order) OrderOut {
	out := OrderOut{
		ID:        o.ID,
		UserID:    o.UserID,
		UserEmail: o.UserEmail,
		Status:    o.Status,
		Total:     o.Total,
		PaidAt:    o.PaidAt,
		CreatedAt: o.CreatedAt,
		Items:     make([]OrderItemOut, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, OrderItemOut{ProductID: it.ProductID, Qty: it.Qty, UnitPrice: it.UnitPrice})
	}
	return out
}

func toOrderOuts(in []orders.Order) []OrderOut {
	out := make([]OrderOut, 0, len(in))
	for _, o := range in {
		out = append(out, ToOrderOut(o))
	}
	return out
}

type OrdersHandler struct {
	Svc *orders.Service
}

func NewOrdersHandler(svc *orders.Service) *OrdersHandler {
	return &OrdersHandler{Svc: svc}
}

// Line validation lives in the service so the public messages stay
// "Empty cart" and "Invalid qty"; binding only checks the JSON shape.
type createOrderRequest struct {
	Items []struct {
		ProductID uint64 `json:"product_id"`
		Qty       int    `json:"qty"`
	} `json:"items"`
}

func (h *OrdersHandler) Create(c *gin.Context) {
	u, ok := user(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := validation.BindJSON(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}

	lines := make([]orders.Line, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, orders.Line{ProductID: it.ProductID, Qty: it.Qty})
	}

	o, err := h.Svc.CreateOrder(c.Request.Context(), u, lines)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ToOrderOut(o))
}

func (h *OrdersHandler) List(c *gin.Context) {
	u, ok := user(c)
	if !ok {
		return
	}
	list, err := h.Svc.ListOrders(c.Request.Context(), u)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderOuts(list))
}

func (h *OrdersHandler) Get(c *gin.Context) {
	u, ok := user(c)
	if !ok {
		return
	}
	id, err := PathID(c, "id")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	o, err := h.Svc.GetOrder(c.Request.Context(), u, id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ToOrderOut(o))
}

// Pay backs POST /orders/:id/pay, the direct CREATED -> PAID transition.
// Publishing payment.succeeded from here is opt-in (ORDER_PUBLISH_ON_PAY);
// by default the payment service owns that event and this endpoint only
// changes the status.
func (h *OrdersHandler) Pay(c *gin.Context) {
	u, ok := user(c)
	if !ok {
		return
	}
	id, err := PathID(c, "id")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	o, err := h.Svc.PayOrder(c.Request.Context(), u, id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": o.Status})
}

type patchOrderRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *OrdersHandler) Patch(c *gin.Context) {
	u, ok := user(c)
	if !ok {
		return
	}
	id, err := PathID(c, "id")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	var req patchOrderRequest
	if err := validation.BindJSON(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}
	o, err := h.Svc.PatchStatus(c.Request.Context(), u, id, req.Status)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": o.Status})
}
