// Package ccavenue implements the hosted-page payment protocol: order parameters are
// encrypted server-side, posted by the browser to the processor, and the processor posts
// back an encrypted response carrying the outcome.
package ccavenue

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"

	"storefront/internal/money"
	"storefront/internal/payment"
)

const (
	Name          = "ccavenue"
	FieldEncResp  = "encResp"
	StatusSuccess = "Success"
)

type Config struct {
	MerchantID  string
	AccessCode  string
	WorkingKey  string
	RedirectURL string
	CancelURL   string
}

type Processor struct {
	cfg    Config
	cipher *Cipher
	logger *log.Logger
}

func New(cfg Config, logger *log.Logger) (*Processor, error) {
	c, err := NewCipher(cfg.WorkingKey)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Processor{cfg: cfg, cipher: c, logger: logger}, nil
}

func (p *Processor) Name() string { return Name }

// CreateTransaction encrypts the merchant parameters for the hosted page.
func (p *Processor) CreateTransaction(_ context.Context, req payment.CreateRequest) (*payment.ClientPayload, error) {
	if req.Reference == "" {
		return nil, fmt.Errorf("ccavenue: order reference is required")
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("ccavenue: amount must be positive")
	}

	params := url.Values{}
	params.Set("merchant_id", p.cfg.MerchantID)
	params.Set("order_id", req.Reference)
	params.Set("currency", req.Currency)
	params.Set("amount", money.FormatMinor(req.AmountCents))
	params.Set("redirect_url", p.cfg.RedirectURL)
	params.Set("cancel_url", p.cfg.CancelURL)
	params.Set("language", "EN")
	params.Set("billing_name", req.Billing.Name)
	params.Set("billing_email", req.Billing.Email)
	params.Set("billing_tel", req.Billing.Phone)

	return &payment.ClientPayload{
		Reference:   req.Reference,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		EncRequest:  p.cipher.Encrypt(params.Encode()),
		AccessCode:  p.cfg.AccessCode,
	}, nil
}

// ConfirmCallback decrypts encResp and reads the order status. Any decrypt or parse
// failure is reported as ErrMalformedCallback; the detail only goes to the log.
func (p *Processor) ConfirmCallback(_ context.Context, raw map[string]string) (*payment.Confirmation, error) {
	enc := raw[FieldEncResp]
	if enc == "" {
		return nil, payment.ErrMalformedCallback
	}

	plain, err := p.cipher.Decrypt(enc)
	if err != nil {
		p.logger.Printf("ccavenue: decrypt callback: %v", err)
		return nil, payment.ErrMalformedCallback
	}
	values, err := url.ParseQuery(plain)
	if err != nil {
		p.logger.Printf("ccavenue: parse callback: %v", err)
		return nil, payment.ErrMalformedCallback
	}

	conf := &payment.Confirmation{
		Reference: values.Get("order_id"),
		PaymentID: values.Get("tracking_id"),
		Status:    values.Get("order_status"),
	}
	if conf.Reference == "" {
		p.logger.Printf("ccavenue: callback without order_id")
		return nil, payment.ErrMalformedCallback
	}
	if amt := values.Get("amount"); amt != "" {
		cents, err := money.ParseMinor(amt)
		if err != nil {
			p.logger.Printf("ccavenue: callback order_id=%s bad amount %q: %v", conf.Reference, amt, err)
			return nil, payment.ErrMalformedCallback
		}
		conf.AmountCents = cents
	}
	conf.Verified = conf.Status == StatusSuccess && conf.PaymentID != ""
	return conf, nil
}
