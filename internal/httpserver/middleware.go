package httpserver

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"storefront/internal/domain"
	customersvc "storefront/internal/service/customer"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// authMiddleware resolves the bearer token to an actor and aborts with 401 otherwise.
func authMiddleware(svc customerService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}
		cust, err := svc.LookupByToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, customersvc.ErrInvalidToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
				return
			}
			logger.Printf("auth: lookup token error=%v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
			return
		}
		c.Set(actorKey, domain.Actor{UserID: cust.ID, IsAdmin: cust.IsAdmin})
		c.Next()
	}
}

func requireAdmin(c *gin.Context) {
	if !actorFrom(c).IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "admin access required"})
		return
	}
	c.Next()
}

func actorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(domain.Actor); ok {
			return a
		}
	}
	return domain.Actor{}
}

func bearerToken(c *gin.Context) string {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}
