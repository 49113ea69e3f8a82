package httpserver

import (
	"context"
	"errors"
	"log"
	"slices"
	"time"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	gateway "storefront/internal/payment"
	productrepo "storefront/internal/repository/product"
	customersvc "storefront/internal/service/customer"
	ordersvc "storefront/internal/service/order"
	paymentsvc "storefront/internal/service/payment"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type customerService interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, error)
	Login(ctx context.Context, email, password string) (*domain.Customer, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.Customer, error)
	Logout(ctx context.Context, token string) error
	AccessTTLSeconds() int
}

type productService interface {
	List(ctx context.Context, filter productrepo.ListFilter) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, actor domain.Actor, id string, in productrepo.UpdateInput) (*domain.Product, error)
}

type categoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
}

type cartService interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Add(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	Update(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	Remove(ctx context.Context, userID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

type orderService interface {
	PlaceOrder(ctx context.Context, in ordersvc.PlaceOrderInput) (*domain.Order, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error)
	ListMine(ctx context.Context, actor domain.Actor) ([]domain.Order, error)
	ListAll(ctx context.Context, actor domain.Actor) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, id string, in ordersvc.UpdateStatusInput) (*domain.Order, error)
}

type paymentService interface {
	CreateTransaction(ctx context.Context, in paymentsvc.CreateInput) (*gateway.ClientPayload, error)
	Confirm(ctx context.Context, processor, userID string, raw map[string]string) (*paymentsvc.Confirmed, error)
}

// Deps holds the services the router dispatches to.
type Deps struct {
	CustomerSvc customerService
	ProductSvc  productService
	CategorySvc categoryService
	CartSvc     cartService
	OrderSvc    orderService
	PaymentSvc  paymentService
	Metrics     *metrics.Metrics

	AllowedOrigins    []string
	PaymentSuccessURL string
	PaymentFailureURL string

	// ReadinessChecks run after the database check on /readyz.
	ReadinessChecks []ReadinessCheck
}

func (d Deps) validate() error {
	switch {
	case d.CustomerSvc == nil:
		return errors.New("customer service is required")
	case d.ProductSvc == nil:
		return errors.New("product service is required")
	case d.CategorySvc == nil:
		return errors.New("category service is required")
	case d.CartSvc == nil:
		return errors.New("cart service is required")
	case d.OrderSvc == nil:
		return errors.New("order service is required")
	case d.PaymentSvc == nil:
		return errors.New("payment service is required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}
	if c, ok := corsConfig(deps.AllowedOrigins); ok {
		router.Use(cors.New(c))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(logger, readinessChecks(db, deps.ReadinessChecks)))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	h := &handlers{
		logger:     logger,
		customers:  deps.CustomerSvc,
		products:   deps.ProductSvc,
		categories: deps.CategorySvc,
		carts:      deps.CartSvc,
		orders:     deps.OrderSvc,
		payments:   deps.PaymentSvc,
		successURL: deps.PaymentSuccessURL,
		failureURL: deps.PaymentFailureURL,
	}
	authed := authMiddleware(deps.CustomerSvc, logger)

	auth := router.Group("/auth")
	auth.POST("/signup", h.signup)
	auth.POST("/login", h.login)
	auth.GET("/me", authed, h.me)
	auth.POST("/logout", authed, h.logout)

	products := router.Group("/products")
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)
	products.PUT("/admin/:id", authed, requireAdmin, h.updateProduct)
	router.GET("/categories", h.listCategories)

	cart := router.Group("/cart", authed)
	cart.GET("", h.getCart)
	cart.POST("/add", h.addToCart)
	cart.PUT("/update", h.updateCart)
	cart.DELETE("/remove/:productId", h.removeFromCart)
	cart.DELETE("/clear", h.clearCart)

	orders := router.Group("/orders", authed)
	orders.POST("/place", h.placeOrder)
	orders.GET("/my", h.myOrders)
	orders.GET("/admin/all", requireAdmin, h.allOrders)
	orders.PUT("/admin/update-status/:id", requireAdmin, h.updateOrderStatus)
	orders.GET("/:id", h.getOrder)

	payment := router.Group("/payment")
	payment.POST("/create-order", authed, h.createSignatureOrder)
	payment.POST("/verify", authed, h.verifySignaturePayment)
	payment.POST("/ccavenue-order", authed, h.createHostedOrder)
	payment.POST("/ccavenue-response", h.hostedPageResponse)

	return router, nil
}

func corsConfig(origins []string) (cors.Config, bool) {
	if len(origins) == 0 {
		return cors.Config{}, false
	}
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", idempotencyHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c, true
}

type handlers struct {
	logger     *log.Logger
	customers  customerService
	products   productService
	categories categoryService
	carts      cartService
	orders     orderService
	payments   paymentService
	successURL string
	failureURL string
}
