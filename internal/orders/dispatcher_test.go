package orders

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

type stubUsers map[int64]string

func (u stubUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	email, ok := u[id]
	if !ok {
		return nil, nil
	}
	return &domain.User{ID: id, Email: email}, nil
}

type stubProducts struct {
	products map[int64]domain.Product
	failing  map[int64]bool
}

func (p stubProducts) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	if p.failing[id] {
		return nil, errors.New("connection reset")
	}
	product, ok := p.products[id]
	if !ok {
		return nil, nil
	}
	return &product, nil
}

type captureSender struct {
	mu    sync.Mutex
	sent  []domain.OrderNotification
	err   error
	block chan struct{}
}

func (s *captureSender) Send(ctx context.Context, n domain.OrderNotification) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *captureSender) notifications() []domain.OrderNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OrderNotification(nil), s.sent...)
}

func testOrder(id int64) domain.Order {
	return domain.Order{
		ID:            id,
		UserID:        1,
		Total:         decimal.RequireFromString("19.98"),
		PaymentMethod: domain.PaymentMethodCash,
		Status:        domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 7, Quantity: 1},
		},
	}
}

func newTestDispatcher(cfg DispatcherConfig, sender Sender) *Dispatcher {
	users := stubUsers{1: "usuario@test.com"}
	products := stubProducts{
		products: map[int64]domain.Product{
			1: {ID: 1, Name: "Product 1", Price: decimal.RequireFromString("9.99")},
		},
		failing: map[int64]bool{7: true},
	}
	return NewDispatcher(cfg, users, products, sender, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDispatcher(t *testing.T) {
	t.Run("enriches and sends queued orders on close", func(t *testing.T) {
		sender := &captureSender{}
		d := newTestDispatcher(DispatcherConfig{Recipient: "admin@example.com"}, sender)
		d.Start(context.Background())

		assert.True(t, d.Dispatch(testOrder(1)))
		assert.True(t, d.Dispatch(testOrder(2)))
		d.Close()

		sent := sender.notifications()
		require.Len(t, sent, 2)
		for _, n := range sent {
			assert.Equal(t, "admin@example.com", n.To)
			assert.True(t, n.HTML)
			assert.False(t, n.Timestamp.IsZero())
			assert.Contains(t, n.Subject, "usuario@test.com")
			assert.Contains(t, n.Body, "Product 1")
			assert.Contains(t, n.Body, "19.98")
			assert.Contains(t, n.Body, unavailableProduct)
		}
	})

	t.Run("drops when the queue is full", func(t *testing.T) {
		sender := &captureSender{block: make(chan struct{})}
		d := newTestDispatcher(DispatcherConfig{QueueSize: 1, Workers: 1}, sender)

		assert.True(t, d.Dispatch(testOrder(1)))
		assert.False(t, d.Dispatch(testOrder(2)))

		d.Start(context.Background())
		close(sender.block)
		d.Close()

		sent := sender.notifications()
		require.Len(t, sent, 1)
		assert.Equal(t, int64(1), sent[0].OrderID)
	})

	t.Run("drops after close", func(t *testing.T) {
		d := newTestDispatcher(DispatcherConfig{}, &captureSender{})
		d.Start(context.Background())
		d.Close()
		d.Close()

		assert.False(t, d.Dispatch(testOrder(1)))
	})

	t.Run("send failures are swallowed", func(t *testing.T) {
		sender := &captureSender{err: errors.New("smtp down")}
		d := newTestDispatcher(DispatcherConfig{}, sender)
		d.Start(context.Background())

		assert.True(t, d.Dispatch(testOrder(1)))
		d.Close()

		assert.Empty(t, sender.notifications())
	})

	t.Run("send is bounded by the timeout", func(t *testing.T) {
		sender := &captureSender{block: make(chan struct{})}
		d := newTestDispatcher(DispatcherConfig{SendTimeout: 20 * time.Millisecond}, sender)
		d.Start(context.Background())

		assert.True(t, d.Dispatch(testOrder(1)))

		done := make(chan struct{})
		go func() {
			d.Close()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("dispatcher did not give up on a blocked sender")
		}
		assert.Empty(t, sender.notifications())
	})
}

func TestDispatcher_Enrich(t *testing.T) {
	d := newTestDispatcher(DispatcherConfig{}, &captureSender{})

	t.Run("known user and mixed products", func(t *testing.T) {
		email, items := d.enrich(context.Background(), testOrder(1))

		assert.Equal(t, "usuario@test.com", email)
		require.Len(t, items, 2)
		assert.Equal(t, "Product 1", items[0].Name)
		assert.True(t, items[0].Price.Equal(decimal.RequireFromString("9.99")))
		assert.Equal(t, unavailableProduct, items[1].Name)
		assert.True(t, items[1].Price.IsZero())
	})

	t.Run("unknown user", func(t *testing.T) {
		order := testOrder(1)
		order.UserID = 42

		email, _ := d.enrich(context.Background(), order)
		assert.Empty(t, email)
	})
}
