package httpserver

import (
	"errors"
	"net/http"
	"net/url"

	"storefront/internal/money"
	gateway "storefront/internal/payment"
	"storefront/internal/payment/ccavenue"
	"storefront/internal/payment/razorpay"
	paymentsvc "storefront/internal/service/payment"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createOrderRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type hostedOrderRequest struct {
	OrderID string          `json:"orderId"`
	Amount  decimal.Decimal `json:"amount"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Phone   string          `json:"phone"`
}

func (h *handlers) createSignatureOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	amount, err := money.ToMinor(req.Amount)
	if err != nil {
		badRequest(c, "amount: "+err.Error())
		return
	}
	payload, err := h.payments.CreateTransaction(c.Request.Context(), paymentsvc.CreateInput{
		UserID:      actorFrom(c).UserID,
		Processor:   razorpay.Name,
		AmountCents: amount,
	})
	if err != nil {
		h.writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": payload.OrderHandle, "amount": payload.AmountCents, "currency": payload.Currency})
}

// verifySignaturePayment takes the widget handler payload as-is.
func (h *handlers) verifySignaturePayment(c *gin.Context) {
	raw := map[string]string{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	confirmed, err := h.payments.Confirm(c.Request.Context(), razorpay.Name, actorFrom(c).UserID, raw)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Payment verified",
		"orderId":   confirmed.Reference,
		"paymentId": confirmed.PaymentID,
	})
}

func (h *handlers) createHostedOrder(c *gin.Context) {
	var req hostedOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	amount, err := money.ToMinor(req.Amount)
	if err != nil {
		badRequest(c, "amount: "+err.Error())
		return
	}
	payload, err := h.payments.CreateTransaction(c.Request.Context(), paymentsvc.CreateInput{
		UserID:      actorFrom(c).UserID,
		Processor:   ccavenue.Name,
		Reference:   req.OrderID,
		AmountCents: amount,
		Billing:     gateway.Billing{Name: req.Name, Email: req.Email, Phone: req.Phone},
	})
	if err != nil {
		h.writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"encRequest": payload.EncRequest, "accessCode": payload.AccessCode})
}

// hostedPageResponse is posted by the processor from the shopper's browser, so it carries
// no bearer token. Every outcome is a redirect.
func (h *handlers) hostedPageResponse(c *gin.Context) {
	raw := map[string]string{ccavenue.FieldEncResp: c.PostForm(ccavenue.FieldEncResp)}
	confirmed, err := h.payments.Confirm(c.Request.Context(), ccavenue.Name, "", raw)
	if err != nil {
		h.logger.Printf("http: hosted payment response rejected error=%v", err)
		c.Redirect(http.StatusSeeOther, h.failureURL)
		return
	}
	c.Redirect(http.StatusSeeOther, withQuery(h.successURL, url.Values{
		"orderId":   {confirmed.Reference},
		"paymentId": {confirmed.PaymentID},
	}))
}

// writePaymentError hides processor outages behind a 503.
func (h *handlers) writePaymentError(c *gin.Context, err error) {
	if errors.Is(err, razorpay.ErrUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "payment provider unavailable, try again shortly"})
		return
	}
	h.writeError(c, err)
}

func withQuery(base string, q url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	merged := u.Query()
	for k, v := range q {
		merged[k] = v
	}
	u.RawQuery = merged.Encode()
	return u.String()
}
