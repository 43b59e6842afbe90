package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http/middleware"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http/validation"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/payments"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

type PaymentOut struct {
	ID        uint64       `json:"id"`
	OrderID   uint64       `json:"order_id"`
	UserID    uint64       `json:"user_id"`
	Amount    money.Amount `json:"amount"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

func toPaymentOut(p payments.Payment) PaymentOut {
	return PaymentOut{
		ID:        p.ID,
		OrderID:   p.OrderID,
		UserID:    p.UserID,
		Amount:    p.Amount,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	}
}

type PaymentsHandler struct {
	Svc *payments.Service
}

func NewPaymentsHandler(svc *payments.Service) *PaymentsHandler {
	return &PaymentsHandler{Svc: svc}
}

type payRequest struct {
	ShippingAddress string `json:"shipping_address" binding:"required,max=500"`
	PhoneNumber     string `json:"phone_number" binding:"required,max=32"`
}

// Pay backs POST /payments/:orderId. A replay of a successful payment
// answers with the original payment id.
func (h *PaymentsHandler) Pay(c *gin.Context) {
	u, ok := user(c)
	if !ok {
		return
	}
	orderID, err := PathID(c, "orderId")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	var req payRequest
	if err := validation.BindJSON(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}

	res, err := h.Svc.Pay(c.Request.Context(), payments.PayInput{
		OrderID:         orderID,
		Claims:          u,
		ShippingAddress: req.ShippingAddress,
		PhoneNumber:     req.PhoneNumber,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "payment_id": res.PaymentID})
}

func (h *PaymentsHandler) Get(c *gin.Context) {
	u, ok := user(c)
	if !ok {
		return
	}
	id, err := PathID(c, "id")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	p, err := h.Svc.GetPayment(c.Request.Context(), u, id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentOut(p))
}

func (h *PaymentsHandler) List(c *gin.Context) {
	u, ok := user(c)
	if !ok {
		return
	}
	list, err := h.Svc.ListPayments(c.Request.Context(), u)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	out := make([]PaymentOut, 0, len(list))
	for _, p := range list {
		out = append(out, toPaymentOut(p))
	}
	c.JSON(http.StatusOK, out)
}
