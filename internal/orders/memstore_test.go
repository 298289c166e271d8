package orders

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

var errInjected = errors.New("injected fault")

type memItem struct {
	orderID   int64
	productID int64
	quantity  int
}

type memState struct {
	nextOrderID int64
	orders      map[int64]NewOrder
	items       []memItem
	addresses   map[int64]domain.ShippingAddress
	stock       map[int64]int
	cart        map[int64]int
}

func (s memState) clone() memState {
	c := memState{
		nextOrderID: s.nextOrderID,
		orders:      make(map[int64]NewOrder, len(s.orders)),
		items:       append([]memItem(nil), s.items...),
		addresses:   make(map[int64]domain.ShippingAddress, len(s.addresses)),
		stock:       make(map[int64]int, len(s.stock)),
		cart:        make(map[int64]int, len(s.cart)),
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.cart {
		c.cart[k] = v
	}
	return c
}

// memStore is a Store and Reader backed by maps. A Tx works on a copy of the
// committed state which replaces it on Commit.
type memStore struct {
	mu        sync.Mutex
	state     memState
	policy    StockPolicy
	failOn    string
	begun     int
	committed int
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{
			nextOrderID: 1,
			orders:      map[int64]NewOrder{},
			addresses:   map[int64]domain.ShippingAddress{},
			stock:       map[int64]int{1: 50, 2: 50, 3: 50},
			cart:        map[int64]int{1: 3},
		},
		policy: StockUnguarded,
	}
}

func (s *memStore) Begin(_ context.Context) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begun++
	if s.failOn == "begin" {
		return nil, errInjected
	}
	return &memTx{store: s, state: s.state.clone()}, nil
}

func (s *memStore) stockOf(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.stock[productID]
}

func (s *memStore) cartSize(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.cart[userID]
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.orders)
}

func (s *memStore) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.state.orders[id]
	if !ok {
		return nil, nil
	}
	return s.state.order(id, row), nil
}

func (s *memStore) ListByUser(_ context.Context, userID int64) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Order{}
	for id := s.state.nextOrderID - 1; id > 0; id-- {
		row, ok := s.state.orders[id]
		if ok && row.UserID == userID {
			out = append(out, *s.state.order(id, row))
		}
	}
	return out, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.state.orders[id]
	if !ok {
		return false, nil
	}
	row.Status = status
	s.state.orders[id] = row
	return true, nil
}

func (s memState) order(id int64, row NewOrder) *domain.Order {
	o := &domain.Order{
		ID:                    id,
		UserID:                row.UserID,
		Total:                 row.Total,
		PaymentMethod:         row.PaymentMethod,
		Status:                row.Status,
		SubscribeToNewsletter: row.SubscribeToNewsletter,
		Items:                 []domain.OrderItem{},
		CreatedAt:             row.CreatedAt,
	}
	for _, item := range s.items {
		if item.orderID == id {
			o.Items = append(o.Items, domain.OrderItem{ProductID: item.productID, Quantity: item.quantity})
		}
	}
	if addr, ok := s.addresses[id]; ok {
		o.ShippingAddress = &addr
	}
	return o
}

type memTx struct {
	store *memStore
	state memState
	done  bool
}

func (t *memTx) fail(step string) error {
	if t.store.failOn == step {
		return errInjected
	}
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, order NewOrder) (int64, error) {
	if err := t.fail("insert order"); err != nil {
		return 0, err
	}
	id := t.state.nextOrderID
	t.state.nextOrderID++
	t.state.orders[id] = order
	return id, nil
}

func (t *memTx) InsertOrderItem(_ context.Context, orderID int64, item ItemInput) error {
	if err := t.fail("insert order item"); err != nil {
		return err
	}
	if _, ok := t.state.stock[item.ProductID]; !ok {
		return ErrUnknownProduct
	}
	t.state.items = append(t.state.items, memItem{orderID: orderID, productID: item.ProductID, quantity: item.Quantity})
	return nil
}

func (t *memTx) DecrementStock(_ context.Context, productID int64, quantity int) error {
	if err := t.fail("decrement stock"); err != nil {
		return err
	}
	if t.store.policy == StockGuarded && t.state.stock[productID] < quantity {
		return &InsufficientStockError{ProductID: productID, Requested: quantity}
	}
	t.state.stock[productID] -= quantity
	return nil
}

func (t *memTx) InsertShippingAddress(_ context.Context, orderID int64, addr domain.ShippingAddress) error {
	if err := t.fail("insert shipping address"); err != nil {
		return err
	}
	t.state.addresses[orderID] = addr
	return nil
}

func (t *memTx) ClearCart(_ context.Context, userID int64) (int64, error) {
	if err := t.fail("clear cart"); err != nil {
		return 0, err
	}
	n := t.state.cart[userID]
	delete(t.state.cart, userID)
	return int64(n), nil
}

func (t *memTx) Commit() error {
	if err := t.fail("commit"); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.state = t.state
	t.store.committed++
	t.done = true
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	return nil
}

// recordingNotifier captures dispatched orders.
type recordingNotifier struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (n *recordingNotifier) Dispatch(order domain.Order) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
	return true
}

func (n *recordingNotifier) dispatched() []domain.Order {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Order(nil), n.orders...)
}
