package order

import (
	"context"
	"errors"
	"sort"
	"sync"

	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
)

// memoryRepo is a transactional in-memory store. InTx works on a copy of the state and
// swaps it in only on success, so a failed settlement leaves nothing behind.
type memoryRepo struct {
	mu    sync.Mutex
	state *memoryState

	failOn string
}

type memoryState struct {
	products map[string]domain.Product
	carts    map[string][]domain.CartItem
	orders   map[string]domain.Order
	payments map[string]domain.PaymentTransaction
	outbox   []string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{
		products: map[string]domain.Product{},
		carts:    map[string][]domain.CartItem{},
		orders:   map[string]domain.Order{},
		payments: map[string]domain.PaymentTransaction{},
	}}
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		products: make(map[string]domain.Product, len(s.products)),
		carts:    make(map[string][]domain.CartItem, len(s.carts)),
		orders:   make(map[string]domain.Order, len(s.orders)),
		payments: make(map[string]domain.PaymentTransaction, len(s.payments)),
		outbox:   append([]string(nil), s.outbox...),
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.carts {
		out.carts[k] = append([]domain.CartItem(nil), v...)
	}
	for k, v := range s.orders {
		out.orders[k] = copyOrder(v)
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	return out
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

// fixtures

func (r *memoryRepo) addProduct(p domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.products[p.ID] = p
}

func (r *memoryRepo) setPrice(id string, price int64, offer *int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.state.products[id]
	p.PriceCents = price
	p.OfferPriceCents = offer
	r.state.products[id] = p
}

func (r *memoryRepo) addToCart(userID, productID string, qty int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.carts[userID] = append(r.state.carts[userID], domain.CartItem{ProductID: productID, Quantity: qty})
}

func (r *memoryRepo) addPayment(txn domain.PaymentTransaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.payments[txn.PaymentID] = txn
}

func (r *memoryRepo) stock(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.products[id].Stock
}

func (r *memoryRepo) cart(userID string) []domain.CartItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CartItem(nil), r.state.carts[userID]...)
}

func (r *memoryRepo) orderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.orders)
}

func (r *memoryRepo) payment(paymentID string) domain.PaymentTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.payments[paymentID]
}

func (r *memoryRepo) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.state.outbox...)
}

// orderrepo.Repository

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.state.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyOrder(o)
	return &out, nil
}

func (r *memoryRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Order{}
	for _, o := range r.state.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) ListAll(_ context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Order{}
	for _, o := range r.state.orders {
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) GetByIdempotencyKey(_ context.Context, userID, key string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.state.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			out := copyOrder(o)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) InTx(ctx context.Context, fn func(tx orderrepo.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	work := r.state.clone()
	if err := fn(&memoryTx{st: work, failOn: r.failOn}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id string, mutate func(tx orderrepo.Tx, o *domain.Order) error) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	work := r.state.clone()
	o, ok := work.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := mutate(&memoryTx{st: work, failOn: r.failOn}, &o); err != nil {
		return nil, err
	}
	work.orders[id] = o
	r.state = work
	out := copyOrder(o)
	return &out, nil
}

var errInjected = errors.New("injected failure")

type memoryTx struct {
	st     *memoryState
	failOn string
}

func (t *memoryTx) fail(op string) error {
	if t.failOn == op {
		return errInjected
	}
	return nil
}

func (t *memoryTx) LoadCart(_ context.Context, userID string) (*domain.Cart, error) {
	if err := t.fail("LoadCart"); err != nil {
		return nil, err
	}
	cart := &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
	for _, item := range t.st.carts[userID] {
		p := t.st.products[item.ProductID]
		item.Product = &p
		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}

func (t *memoryTx) LockProducts(_ context.Context, ids []string) (map[string]domain.Product, error) {
	out := map[string]domain.Product{}
	for _, id := range ids {
		if p, ok := t.st.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *memoryTx) Stock(_ context.Context, id string) (int, error) {
	p, ok := t.st.products[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p.Stock, nil
}

func (t *memoryTx) DecrementStock(_ context.Context, id string, qty int) error {
	if err := t.fail("DecrementStock"); err != nil {
		return err
	}
	p, ok := t.st.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Stock < qty {
		return &domain.NegativeStockError{ProductID: id, Requested: qty}
	}
	p.Stock -= qty
	t.st.products[id] = p
	return nil
}

func (t *memoryTx) ConsumePayment(_ context.Context, paymentID, userID, orderID string) (*domain.PaymentTransaction, error) {
	txn, ok := t.st.payments[paymentID]
	if !ok || txn.UserID != userID || txn.Status != domain.PaymentVerified {
		return nil, domain.ErrNotFound
	}
	txn.Status = domain.PaymentConsumed
	txn.OrderID = orderID
	t.st.payments[paymentID] = txn
	return &txn, nil
}

func (t *memoryTx) InsertOrder(_ context.Context, o *domain.Order) error {
	if err := t.fail("InsertOrder"); err != nil {
		return err
	}
	for _, existing := range t.st.orders {
		if o.IdempotencyKey != "" && existing.UserID == o.UserID && existing.IdempotencyKey == o.IdempotencyKey {
			return domain.ErrAlreadyExists
		}
	}
	t.st.orders[o.ID] = copyOrder(*o)
	return nil
}

func (t *memoryTx) ClearCart(_ context.Context, userID string) error {
	if err := t.fail("ClearCart"); err != nil {
		return err
	}
	delete(t.st.carts, userID)
	return nil
}

func (t *memoryTx) Enqueue(_ context.Context, topic, _ string, _ any) error {
	if err := t.fail("Enqueue"); err != nil {
		return err
	}
	t.st.outbox = append(t.st.outbox, topic)
	return nil
}

type recordingCache struct {
	mu      sync.Mutex
	deleted []string
}

func (c *recordingCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, userID)
	return nil
}
