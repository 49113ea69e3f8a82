package httpserver

import (
	"net/http"

	customersvc "storefront/internal/service/customer"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handlers) signup(c *gin.Context) {
	var req customersvc.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cust, err := h.customers.Signup(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": cust})
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cust, token, err := h.customers.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   h.customers.AccessTTLSeconds(),
		"customer":     cust,
	})
}

func (h *handlers) me(c *gin.Context) {
	a := actorFrom(c)
	c.JSON(http.StatusOK, gin.H{"id": a.UserID, "isAdmin": a.IsAdmin})
}

func (h *handlers) logout(c *gin.Context) {
	if err := h.customers.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
