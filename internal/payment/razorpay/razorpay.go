// Package razorpay implements the signature-verification payment protocol: the server
// creates an order with the processor, the browser completes checkout, and the callback
// is authenticated with an HMAC-SHA256 signature over "order_id|payment_id".
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"storefront/internal/payment"

	"github.com/sony/gobreaker/v2"
)

const (
	Name            = "razorpay"
	DefaultBaseURL  = "https://api.razorpay.com"
	FieldOrderID    = "razorpay_order_id"
	FieldPaymentID  = "razorpay_payment_id"
	FieldSignature  = "razorpay_signature"
	maxErrorBodyLen = 512
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("razorpay: processor unavailable")

type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

type Processor struct {
	cfg    Config
	client *http.Client
	cb     *gobreaker.CircuitBreaker[*orderResponse]
	logger *log.Logger
}

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func New(cfg Config, client *http.Client, logger *log.Logger) *Processor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	cb := gobreaker.NewCircuitBreaker[*orderResponse](gobreaker.Settings{
		Name:        "razorpay-orders",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("razorpay: breaker %s %s -> %s", name, from, to)
		},
	})

	return &Processor{cfg: cfg, client: client, cb: cb, logger: logger}
}

func (p *Processor) Name() string { return Name }

// CreateTransaction registers an order with the processor. The returned OrderHandle is
// the processor's order id and becomes the ledger reference.
func (p *Processor) CreateTransaction(ctx context.Context, req payment.CreateRequest) (*payment.ClientPayload, error) {
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("razorpay: amount must be positive")
	}

	resp, err := p.cb.Execute(func() (*orderResponse, error) {
		return p.createOrder(ctx, orderRequest{
			Amount:   req.AmountCents,
			Currency: req.Currency,
			Receipt:  req.Reference,
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrUnavailable
		}
		return nil, err
	}

	p.logger.Printf("razorpay: created order id=%s receipt=%s amount=%d", resp.ID, req.Reference, resp.Amount)
	return &payment.ClientPayload{
		Reference:   resp.ID,
		OrderHandle: resp.ID,
		AmountCents: resp.Amount,
		Currency:    resp.Currency,
	}, nil
}

func (p *Processor) createOrder(ctx context.Context, body orderRequest) (*orderResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(p.cfg.KeyID, p.cfg.KeySecret)

	res, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("razorpay: create order: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyLen))
		return nil, fmt.Errorf("razorpay: create order: status %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out orderResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("razorpay: decode order: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("razorpay: order response without id")
	}
	return &out, nil
}

// ConfirmCallback checks the signature the browser relays after checkout.
func (p *Processor) ConfirmCallback(_ context.Context, raw map[string]string) (*payment.Confirmation, error) {
	orderID := raw[FieldOrderID]
	paymentID := raw[FieldPaymentID]
	signature := raw[FieldSignature]
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, payment.ErrMalformedCallback
	}

	ok := Verify(p.cfg.KeySecret, orderID, paymentID, signature)
	status := "captured"
	if !ok {
		status = "signature_mismatch"
	}
	return &payment.Confirmation{
		Verified:  ok,
		Reference: orderID,
		PaymentID: paymentID,
		Status:    status,
	}, nil
}

// Sign returns hex(HMAC_SHA256(secret, orderID + "|" + paymentID)).
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares signatures in constant time.
func Verify(secret, orderID, paymentID, signature string) bool {
	expected := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
