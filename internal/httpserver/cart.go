package httpserver

import (
	"net/http"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

type cartLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.carts.Get(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeCart(c, cart)
}

func (h *handlers) addToCart(c *gin.Context) {
	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cart, err := h.carts.Add(c.Request.Context(), actorFrom(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeCart(c, cart)
}

func (h *handlers) updateCart(c *gin.Context) {
	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cart, err := h.carts.Update(c.Request.Context(), actorFrom(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeCart(c, cart)
}

func (h *handlers) removeFromCart(c *gin.Context) {
	cart, err := h.carts.Remove(c.Request.Context(), actorFrom(c).UserID, c.Param("productId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeCart(c, cart)
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), actorFrom(c).UserID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

func writeCart(c *gin.Context, cart *domain.Cart) {
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart, "subtotalCents": cart.SubtotalCents()})
}
