package httpserver

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/domain"
	gateway "storefront/internal/payment"
	productrepo "storefront/internal/repository/product"
	customersvc "storefront/internal/service/customer"
	ordersvc "storefront/internal/service/order"
	paymentsvc "storefront/internal/service/payment"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	shopperToken = "shopper-token"
	adminToken   = "admin-token"
)

type stubCustomers struct {
	lookupErr error
	loggedOut string
}

func (s *stubCustomers) Signup(_ context.Context, in customersvc.SignupInput) (*domain.Customer, error) {
	if in.Email == "" {
		return nil, domain.NewValidationError("email", "is required")
	}
	return &domain.Customer{ID: "u-new", Email: in.Email}, nil
}

func (s *stubCustomers) Login(_ context.Context, email, password string) (*domain.Customer, string, error) {
	if password != "correct horse" {
		return nil, "", customersvc.ErrInvalidCredentials
	}
	return &domain.Customer{ID: "u1", Email: email}, shopperToken, nil
}

func (s *stubCustomers) LookupByToken(_ context.Context, token string) (*domain.Customer, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	switch token {
	case shopperToken:
		return &domain.Customer{ID: "u1"}, nil
	case adminToken:
		return &domain.Customer{ID: "admin", IsAdmin: true}, nil
	}
	return nil, customersvc.ErrInvalidToken
}

func (s *stubCustomers) Logout(_ context.Context, token string) error {
	s.loggedOut = token
	return nil
}

func (s *stubCustomers) AccessTTLSeconds() int { return 3600 }

type stubProducts struct {
	lastFilter productrepo.ListFilter
	lastUpdate productrepo.UpdateInput
}

func (s *stubProducts) List(_ context.Context, f productrepo.ListFilter) ([]domain.Product, error) {
	s.lastFilter = f
	return []domain.Product{{ID: "p1", Name: "Tomato", PriceCents: 100}}, nil
}

func (s *stubProducts) Get(_ context.Context, id string) (*domain.Product, error) {
	if id != "p1" {
		return nil, domain.ErrNotFound
	}
	return &domain.Product{ID: "p1", Name: "Tomato", PriceCents: 100}, nil
}

func (s *stubProducts) Update(_ context.Context, actor domain.Actor, id string, in productrepo.UpdateInput) (*domain.Product, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	s.lastUpdate = in
	return &domain.Product{ID: id}, nil
}

type stubCategories struct{}

func (stubCategories) List(context.Context) ([]domain.Category, error) {
	return []domain.Category{{Name: "vegetables", ProductCount: 2, InStockCount: 1}}, nil
}

type stubCarts struct {
	cleared string
	addErr  error
}

func (s *stubCarts) Get(_ context.Context, userID string) (*domain.Cart, error) {
	return &domain.Cart{UserID: userID}, nil
}

func (s *stubCarts) Add(_ context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	p := &domain.Product{ID: productID, PriceCents: 250}
	return &domain.Cart{UserID: userID, Items: []domain.CartItem{{ProductID: productID, Quantity: qty, Product: p}}}, nil
}

func (s *stubCarts) Update(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	return s.Add(ctx, userID, productID, qty)
}

func (s *stubCarts) Remove(_ context.Context, userID, _ string) (*domain.Cart, error) {
	return &domain.Cart{UserID: userID}, nil
}

func (s *stubCarts) Clear(_ context.Context, userID string) error {
	s.cleared = userID
	return nil
}

type stubOrders struct {
	placeErr   error
	lastPlace  ordersvc.PlaceOrderInput
	lastUpdate ordersvc.UpdateStatusInput
	updateErr  error
}

func (s *stubOrders) PlaceOrder(_ context.Context, in ordersvc.PlaceOrderInput) (*domain.Order, error) {
	s.lastPlace = in
	if s.placeErr != nil {
		return nil, s.placeErr
	}
	return &domain.Order{ID: "o1", UserID: in.UserID, TotalCents: 20000, CurrentStatus: domain.StatusPreparing}, nil
}

func (s *stubOrders) Get(_ context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	if id != "o1" || (actor.UserID != "u1" && !actor.IsAdmin) {
		return nil, domain.ErrNotFound
	}
	return &domain.Order{ID: "o1", UserID: "u1"}, nil
}

func (s *stubOrders) ListMine(_ context.Context, actor domain.Actor) ([]domain.Order, error) {
	return nil, nil
}

func (s *stubOrders) ListAll(_ context.Context, actor domain.Actor) ([]domain.Order, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	return []domain.Order{{ID: "o1"}, {ID: "o2"}}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, _ domain.Actor, id string, in ordersvc.UpdateStatusInput) (*domain.Order, error) {
	s.lastUpdate = in
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &domain.Order{ID: id, CurrentStatus: domain.OrderStatus(in.Status)}, nil
}

type stubPayments struct {
	lastCreate paymentsvc.CreateInput
	createErr  error
	confirmErr error
	lastRaw    map[string]string
	lastUser   string
}

func (s *stubPayments) CreateTransaction(_ context.Context, in paymentsvc.CreateInput) (*gateway.ClientPayload, error) {
	s.lastCreate = in
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &gateway.ClientPayload{
		Reference:   "ref_1",
		OrderHandle: "order_rzp_1",
		AmountCents: in.AmountCents,
		Currency:    "INR",
		EncRequest:  "deadbeef",
		AccessCode:  "AC1",
	}, nil
}

func (s *stubPayments) Confirm(_ context.Context, _, userID string, raw map[string]string) (*paymentsvc.Confirmed, error) {
	s.lastRaw = raw
	s.lastUser = userID
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}
	return &paymentsvc.Confirmed{Reference: "ref_1", PaymentID: "pay_9", AmountCents: 20000}, nil
}

type fixture struct {
	router    *gin.Engine
	customers *stubCustomers
	products  *stubProducts
	carts     *stubCarts
	orders    *stubOrders
	payments  *stubPayments
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		customers: &stubCustomers{},
		products:  &stubProducts{},
		carts:     &stubCarts{},
		orders:    &stubOrders{},
		payments:  &stubPayments{},
	}
	router, err := buildRouter(log.New(io.Discard, "", 0), nil, Deps{
		CustomerSvc:       f.customers,
		ProductSvc:        f.products,
		CategorySvc:       stubCategories{},
		CartSvc:           f.carts,
		OrderSvc:          f.orders,
		PaymentSvc:        f.payments,
		PaymentSuccessURL: "https://shop.example/payment/success",
		PaymentFailureURL: "https://shop.example/payment/failure",
	})
	require.NoError(t, err)
	f.router = router
	return f
}

func (f *fixture) do(method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

