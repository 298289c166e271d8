package orders

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store *memStore, notifier Notifier) *Service {
	opts := []ServiceOption{WithClock(func() time.Time { return fixedNow })}
	if notifier != nil {
		opts = append(opts, WithNotifier(notifier))
	}
	return NewService(store, store, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func cashOrderWithAddress() PlaceOrderInput {
	return PlaceOrderInput{
		UserID:        1,
		Total:         decimal.NewNullDecimal(decimal.RequireFromString("19.98")),
		PaymentMethod: domain.PaymentMethodCash,
		Items:         []ItemInput{{ProductID: 1, Quantity: 2}},
		ShippingAddress: &domain.ShippingAddress{
			Address: "Calle Falsa 123",
			City:    "Ciudad Test",
			ZipCode: "12345",
			Phone:   "78945612",
		},
	}
}

func TestService_PlaceOrder(t *testing.T) {
	t.Run("commits order with shipping address", func(t *testing.T) {
		store := newMemStore()
		notifier := &recordingNotifier{}
		svc := newTestService(store, notifier)

		order, err := svc.PlaceOrder(context.Background(), cashOrderWithAddress())
		require.NoError(t, err)

		assert.Equal(t, int64(1), order.ID)
		assert.Equal(t, domain.OrderStatusPending, order.Status)
		assert.Equal(t, fixedNow, order.CreatedAt)
		assert.True(t, order.Total.Equal(decimal.RequireFromString("19.98")))
		require.Len(t, order.Items, 1)
		assert.Equal(t, domain.OrderItem{ProductID: 1, Quantity: 2}, order.Items[0])
		require.NotNil(t, order.ShippingAddress)
		assert.Equal(t, "Calle Falsa 123", order.ShippingAddress.Address)
		assert.Equal(t, 48, store.stockOf(1))
		assert.Equal(t, 1, store.committed)

		dispatched := notifier.dispatched()
		require.Len(t, dispatched, 1)
		assert.Equal(t, order.ID, dispatched[0].ID)
	})

	t.Run("fetch by id returns what was submitted", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store, nil)

		in := cashOrderWithAddress()
		in.Items = append(in.Items, ItemInput{ProductID: 3, Quantity: 1})

		placed, err := svc.PlaceOrder(context.Background(), in)
		require.NoError(t, err)

		got, err := svc.GetByID(context.Background(), placed.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, placed.Items, got.Items)
		assert.Equal(t, *in.ShippingAddress, *got.ShippingAddress)
		assert.Equal(t, domain.OrderStatusPending, got.Status)
	})

	t.Run("decrements stock per item and clears the cart", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store, nil)
		require.Equal(t, 3, store.cartSize(1))

		_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID:        1,
			Total:         decimal.NewNullDecimal(decimal.RequireFromString("29.97")),
			PaymentMethod: domain.PaymentMethodCard,
			Items: []ItemInput{
				{ProductID: 1, Quantity: 1},
				{ProductID: 2, Quantity: 2},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, 49, store.stockOf(1))
		assert.Equal(t, 48, store.stockOf(2))
		assert.Equal(t, 50, store.stockOf(3))
		assert.Zero(t, store.cartSize(1))
	})

	t.Run("unguarded policy lets stock go negative", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store, nil)

		in := cashOrderWithAddress()
		in.Items = []ItemInput{{ProductID: 1, Quantity: 60}}

		_, err := svc.PlaceOrder(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, -10, store.stockOf(1))
	})

	t.Run("guarded policy rejects insufficient stock", func(t *testing.T) {
		store := newMemStore()
		store.policy = StockGuarded
		notifier := &recordingNotifier{}
		svc := newTestService(store, notifier)

		in := cashOrderWithAddress()
		in.Items = []ItemInput{{ProductID: 2, Quantity: 1}, {ProductID: 1, Quantity: 60}}

		_, err := svc.PlaceOrder(context.Background(), in)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInsufficientStock)

		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, int64(1), stockErr.ProductID)
		assert.Equal(t, 60, stockErr.Requested)

		assert.Equal(t, 50, store.stockOf(1))
		assert.Equal(t, 50, store.stockOf(2))
		assert.Zero(t, store.orderCount())
		assert.Equal(t, 3, store.cartSize(1))
		assert.Empty(t, notifier.dispatched())
	})
}

func TestService_PlaceOrder_Atomicity(t *testing.T) {
	steps := []string{
		"begin",
		"insert order",
		"insert order item",
		"decrement stock",
		"insert shipping address",
		"clear cart",
		"commit",
	}

	for _, step := range steps {
		t.Run("failure on "+step, func(t *testing.T) {
			store := newMemStore()
			store.failOn = step
			notifier := &recordingNotifier{}
			svc := newTestService(store, notifier)

			order, err := svc.PlaceOrder(context.Background(), cashOrderWithAddress())
			require.Error(t, err)
			assert.Nil(t, order)

			var txErr *TxError
			require.ErrorAs(t, err, &txErr)
			assert.Equal(t, step, txErr.Step)
			assert.ErrorIs(t, err, errInjected)
			assert.NotErrorIs(t, err, ErrInsufficientStock)

			assert.Zero(t, store.orderCount())
			assert.Equal(t, 50, store.stockOf(1))
			assert.Equal(t, 3, store.cartSize(1))
			assert.Empty(t, notifier.dispatched())

			orders, err := svc.ListByUser(context.Background(), 1)
			require.NoError(t, err)
			assert.Empty(t, orders)
		})
	}

	t.Run("unknown product is a transaction failure", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store, nil)

		in := cashOrderWithAddress()
		in.Items = []ItemInput{{ProductID: 1, Quantity: 1}, {ProductID: 99, Quantity: 1}}

		_, err := svc.PlaceOrder(context.Background(), in)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownProduct)
		assert.Equal(t, 50, store.stockOf(1))
		assert.Zero(t, store.orderCount())
	})
}

func TestService_PlaceOrder_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(in *PlaceOrderInput)
		problems []string
	}{
		{
			name:     "missing items",
			mutate:   func(in *PlaceOrderInput) { in.Items = nil },
			problems: []string{"at least one item is required"},
		},
		{
			name:     "empty items",
			mutate:   func(in *PlaceOrderInput) { in.Items = []ItemInput{} },
			problems: []string{"at least one item is required"},
		},
		{
			name: "missing user and total",
			mutate: func(in *PlaceOrderInput) {
				in.UserID = 0
				in.Total = decimal.NullDecimal{}
			},
			problems: []string{"userId is required", "total is required"},
		},
		{
			name: "incomplete items",
			mutate: func(in *PlaceOrderInput) {
				in.Items = []ItemInput{{Quantity: 1}, {ProductID: 2}, {ProductID: 3, Quantity: -1}}
			},
			problems: []string{
				"item 1: missing productId",
				"item 2: missing quantity",
				"item 3: quantity must be positive",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			svc := newTestService(store, nil)

			in := cashOrderWithAddress()
			tt.mutate(&in)

			_, err := svc.PlaceOrder(context.Background(), in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.problems, validationErr.Problems)

			assert.Zero(t, store.begun)
			assert.Zero(t, store.orderCount())
			assert.Equal(t, 50, store.stockOf(1))
		})
	}
}

func TestService_UpdateStatus(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)

	order, err := svc.PlaceOrder(context.Background(), cashOrderWithAddress())
	require.NoError(t, err)

	t.Run("overwrites with any valid status", func(t *testing.T) {
		found, err := svc.UpdateStatus(context.Background(), order.ID, domain.OrderStatusDelivered)
		require.NoError(t, err)
		assert.True(t, found)

		found, err = svc.UpdateStatus(context.Background(), order.ID, domain.OrderStatusPending)
		require.NoError(t, err)
		assert.True(t, found)

		got, err := svc.GetByID(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusPending, got.Status)
	})

	t.Run("rejects status outside the enum", func(t *testing.T) {
		_, err := svc.UpdateStatus(context.Background(), order.ID, "refunded")
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("reports missing order", func(t *testing.T) {
		found, err := svc.UpdateStatus(context.Background(), 404, domain.OrderStatusShipped)
		require.NoError(t, err)
		assert.False(t, found)
	})
}
