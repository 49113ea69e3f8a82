package httpserver

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	customersvc "storefront/internal/service/customer"

	"github.com/gin-gonic/gin"
)

// writeError maps service errors to status codes. Anything unrecognised is logged and
// reported as a bare 500 so internal detail never reaches the client.
func (h *handlers) writeError(c *gin.Context, err error) {
	var (
		validation   *domain.ValidationError
		insufficient *domain.InsufficientStockError
		payment      *domain.PaymentVerificationError
		transition   *domain.InvalidTransitionError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"message": validation.Error(), "field": validation.Field})
	case errors.Is(err, domain.ErrCartEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Cart is empty"})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusBadRequest, gin.H{"message": insufficient.Error(), "productId": insufficient.ProductID})
	case errors.As(err, &payment):
		c.JSON(http.StatusPaymentRequired, gin.H{"message": payment.Error()})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"message": transition.Error()})
	case errors.Is(err, customersvc.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"message": "already exists"})
	default:
		h.logger.Printf("http: %s %s error=%v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
