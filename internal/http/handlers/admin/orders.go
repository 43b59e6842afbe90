package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http/handlers"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http/middleware"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/http/validation"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/orders"
)

type OrdersHandler struct {
	Svc *orders.Service
}

func NewOrdersHandler(svc *orders.Service) *OrdersHandler {
	return &OrdersHandler{Svc: svc}
}

type listQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=CREATED PAID created paid"`
	UserID   uint64 `form:"user_id"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type listResponse struct {
	Items    []handlers.OrderOut `json:"items"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

func (h *OrdersHandler) List(c *gin.Context) {
	var q listQuery
	if err := validation.BindQuery(c, &q); err != nil {
		middleware.Fail(c, err)
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = 30
	}

	res, err := h.Svc.AdminList(c.Request.Context(), orders.AdminListParams{
		Status: q.Status, UserID: q.UserID, Page: q.Page, PageSize: q.PageSize,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	items := make([]handlers.OrderOut, 0, len(res.Items))
	for _, o := range res.Items {
		items = append(items, handlers.ToOrderOut(o))
	}
	c.JSON(http.StatusOK, listResponse{Items: items, Total: res.Total, Page: q.Page, PageSize: q.PageSize})
}

func (h *OrdersHandler) Detail(c *gin.Context) {
	id, err := handlers.PathID(c, "id")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	o, err := h.Svc.AdminGet(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handlers.ToOrderOut(o))
}
