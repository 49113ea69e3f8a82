package httpserver

import (
	"net/http"
	"strconv"

	"storefront/internal/money"
	productrepo "storefront/internal/repository/product"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *handlers) listProducts(c *gin.Context) {
	filter := productrepo.ListFilter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "limit must be an integer")
			return
		}
		filter.Limit = limit
	}
	products, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": products, "count": len(products)})
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Prices arrive in major units and are converted once here.
type updateProductRequest struct {
	Price      *decimal.Decimal `json:"price"`
	OfferPrice *decimal.Decimal `json:"offerPrice"`
	ClearOffer bool             `json:"clearOffer"`
	Stock      *int             `json:"stock"`
}

func (h *handlers) updateProduct(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	in := productrepo.UpdateInput{ClearOffer: req.ClearOffer, Stock: req.Stock}
	if req.Price != nil {
		minor, err := money.ToMinor(*req.Price)
		if err != nil {
			badRequest(c, "price: "+err.Error())
			return
		}
		in.PriceCents = &minor
	}
	if req.OfferPrice != nil {
		minor, err := money.ToMinor(*req.OfferPrice)
		if err != nil {
			badRequest(c, "offerPrice: "+err.Error())
			return
		}
		in.OfferPriceCents = &minor
	}
	p, err := h.products.Update(c.Request.Context(), actorFrom(c), c.Param("id"), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) listCategories(c *gin.Context) {
	list, err := h.categories.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": list})
}
