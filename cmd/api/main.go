package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/metrics"
	"storefront/internal/migrate"
	"storefront/internal/outbox"
	gateway "storefront/internal/payment"
	"storefront/internal/payment/ccavenue"
	"storefront/internal/payment/razorpay"
	cartrepo "storefront/internal/repository/cart"
	categoryrepo "storefront/internal/repository/category"
	customerrepo "storefront/internal/repository/customer"
	orderrepo "storefront/internal/repository/order"
	paymentrepo "storefront/internal/repository/payment"
	productrepo "storefront/internal/repository/product"
	tokenrepo "storefront/internal/repository/token"
	cartsvc "storefront/internal/service/cart"
	categorysvc "storefront/internal/service/category"
	customersvc "storefront/internal/service/customer"
	"storefront/internal/service/inventory"
	ordersvc "storefront/internal/service/order"
	paymentsvc "storefront/internal/service/payment"
	productsvc "storefront/internal/service/product"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	if err := migrate.Apply(ctx, dbpool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	var cartCache cache.CartCache = cache.Noop{}
	var readiness []httpserver.ReadinessCheck
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Printf("redis unreachable at %s, cart cache disabled: %v", cfg.RedisAddr, err)
		} else {
			cartCache = cache.NewRedisCache(rdb, cfg.CartCacheTTL)
			readiness = append(readiness, httpserver.ReadinessCheck{
				Name:  "redis",
				Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			})
		}
	}

	publisher, err := events.Open(cfg, logger)
	if err != nil {
		logger.Fatalf("open events publisher: %v", err)
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	processors, err := buildProcessors(cfg, logger)
	if err != nil {
		logger.Fatalf("init payment processors: %v", err)
	}

	productRepo := productrepo.NewPostgres(dbpool, logger)
	customerRepo := customerrepo.NewPostgres(dbpool, logger)
	tokenRepo := tokenrepo.NewPostgres(dbpool)
	cartRepo := cartrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	paymentRepo := paymentrepo.NewPostgres(dbpool, logger)

	ledger := inventory.New(productRepo, logger)
	customerService := customersvc.New(customerRepo, tokenRepo, cfg.AccessTokenTTL)
	productService := productsvc.New(productRepo)
	categoryService := categorysvc.New(categoryrepo.NewPostgres(dbpool, logger))
	cartService := cartsvc.New(cartRepo, ledger, productRepo, cartCache, logger)
	orderService := ordersvc.New(orderRepo, cartService, m, cfg.Currency, logger)
	paymentService := paymentsvc.New(paymentRepo, m, cfg.Currency, logger, processors...)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CustomerSvc:       customerService,
		ProductSvc:        productService,
		CategorySvc:       categoryService,
		CartSvc:           cartService,
		OrderSvc:          orderService,
		PaymentSvc:        paymentService,
		Metrics:           m,
		AllowedOrigins:    cfg.AllowedOrigins,
		PaymentSuccessURL: cfg.PaymentSuccessURL,
		PaymentFailureURL: cfg.PaymentFailureURL,
		ReadinessChecks:   readiness,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	relay := outbox.NewRelay(outbox.NewPgStore(dbpool), publisher, cfg.OutboxPollInterval, logger)
	go relay.Run(ctx)
	go purgeExpiredTokens(ctx, tokenRepo, time.Hour, logger)

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Printf("received shutdown signal")
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

// buildProcessors enables each gateway whose credentials are configured.
func buildProcessors(cfg config.Config, logger *log.Logger) ([]gateway.Processor, error) {
	var out []gateway.Processor
	if cfg.Razorpay.KeyID != "" && cfg.Razorpay.KeySecret != "" {
		out = append(out, razorpay.New(razorpay.Config{
			KeyID:     cfg.Razorpay.KeyID,
			KeySecret: cfg.Razorpay.KeySecret,
			BaseURL:   cfg.Razorpay.BaseURL,
			Timeout:   cfg.Razorpay.Timeout,
		}, nil, logger))
	} else {
		logger.Printf("razorpay credentials not set, processor disabled")
	}
	if cfg.CCAvenue.WorkingKey != "" {
		p, err := ccavenue.New(ccavenue.Config{
			MerchantID:  cfg.CCAvenue.MerchantID,
			AccessCode:  cfg.CCAvenue.AccessCode,
			WorkingKey:  cfg.CCAvenue.WorkingKey,
			RedirectURL: cfg.CCAvenue.RedirectURL,
			CancelURL:   cfg.CCAvenue.CancelURL,
		}, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	} else {
		logger.Printf("ccavenue working key not set, processor disabled")
	}
	return out, nil
}

type expiredTokenPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func purgeExpiredTokens(ctx context.Context, repo expiredTokenPurger, every time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx, time.Now().UTC())
			if err != nil && ctx.Err() == nil {
				logger.Printf("token purge error=%v", err)
				continue
			}
			if n > 0 {
				logger.Printf("purged %d expired tokens", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
