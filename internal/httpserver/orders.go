package httpserver

import (
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain"
	ordersvc "storefront/internal/service/order"

	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

type placeOrderRequest struct {
	Address       *domain.Address `json:"address"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentID     string          `json:"paymentId"`
}

type updateStatusRequest struct {
	Status               string `json:"status"`
	ExpectedDeliveryDate string `json:"expectedDeliveryDate"`
}

func (h *handlers) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	order, err := h.orders.PlaceOrder(c.Request.Context(), ordersvc.PlaceOrderInput{
		UserID:         actorFrom(c).UserID,
		Address:        req.Address,
		PaymentMethod:  req.PaymentMethod,
		PaymentID:      req.PaymentID,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order placed", "order": order})
}

func (h *handlers) myOrders(c *gin.Context) {
	orders, err := h.orders.ListMine(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeOrders(c, orders)
}

func (h *handlers) allOrders(c *gin.Context) {
	orders, err := h.orders.ListAll(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeOrders(c, orders)
}

func (h *handlers) getOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	in := ordersvc.UpdateStatusInput{Status: req.Status}
	if req.ExpectedDeliveryDate != "" {
		t, err := parseDate(req.ExpectedDeliveryDate)
		if err != nil {
			badRequest(c, "expectedDeliveryDate must be RFC3339 or YYYY-MM-DD")
			return
		}
		in.ExpectedDeliveryDate = &t
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), actorFrom(c), c.Param("id"), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": order})
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func writeOrders(c *gin.Context, orders []domain.Order) {
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}
