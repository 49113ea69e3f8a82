package main

import (
	"io"
	"log"
	"testing"

	"storefront/internal/config"
	"storefront/internal/payment/ccavenue"
	"storefront/internal/payment/razorpay"
)

func TestBuildProcessors(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	none, err := buildProcessors(config.Config{}, logger)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no processors, got %d err=%v", len(none), err)
	}

	cfg := config.Config{
		Razorpay: config.RazorpayConfig{KeyID: "rzp_test", KeySecret: "secret"},
		CCAvenue: config.CCAvenueConfig{MerchantID: "M1", AccessCode: "AC1", WorkingKey: "workingkey123"},
	}
	both, err := buildProcessors(cfg, logger)
	if err != nil {
		t.Fatalf("buildProcessors: %v", err)
	}
	if len(both) != 2 || both[0].Name() != razorpay.Name || both[1].Name() != ccavenue.Name {
		t.Fatalf("unexpected processors %v", both)
	}

	cfg.Razorpay.KeySecret = ""
	only, err := buildProcessors(cfg, logger)
	if err != nil || len(only) != 1 || only[0].Name() != ccavenue.Name {
		t.Fatalf("expected only ccavenue, got %v err=%v", only, err)
	}
}
