package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

// Store opens units of work. Each Tx holds one dedicated connection until it
// is committed or rolled back.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the set of writes a checkout performs.
type Tx interface {
	InsertOrder(ctx context.Context, order NewOrder) (int64, error)
	InsertOrderItem(ctx context.Context, orderID int64, item ItemInput) error
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	InsertShippingAddress(ctx context.Context, orderID int64, addr domain.ShippingAddress) error
	ClearCart(ctx context.Context, userID int64) (int64, error)
	Commit() error
	Rollback() error
}

// Reader serves the read side of orders.
type Reader interface {
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (bool, error)
}

// Notifier accepts committed orders for best-effort confirmation. Dispatch
// must not block.
type Notifier interface {
	Dispatch(order domain.Order) bool
}

type Service struct {
	store    Store
	reader   Reader
	notifier Notifier
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store Store, reader Reader, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		reader: reader,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder validates the input, runs the checkout unit of work and, once it
// has committed, hands the order to the notifier without waiting on it.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	if err := in.Validate(); err != nil {
		s.metrics.placementFailed(ctx, "validation")
		return nil, err
	}

	order, err := s.place(ctx, in)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			s.metrics.placementFailed(ctx, "insufficient_stock")
		} else {
			s.metrics.placementFailed(ctx, "transaction")
		}
		return nil, err
	}
	s.metrics.placed(ctx)

	if s.notifier != nil {
		s.notifier.Dispatch(*order)
	}

	return order, nil
}

func (s *Service) place(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, &TxError{Step: "begin", Err: err}
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(); err != nil {
			s.logger.Error("failed to roll back order placement", "error", err, "user_id", in.UserID)
		}
	}()

	order := &domain.Order{
		UserID:                in.UserID,
		Total:                 in.Total.Decimal,
		PaymentMethod:         in.PaymentMethod,
		Status:                domain.OrderStatusPending,
		SubscribeToNewsletter: in.SubscribeToNewsletter,
		ShippingAddress:       in.ShippingAddress,
		CreatedAt:             s.now(),
	}

	order.ID, err = tx.InsertOrder(ctx, NewOrder{
		UserID:                order.UserID,
		Total:                 order.Total,
		PaymentMethod:         order.PaymentMethod,
		Status:                order.Status,
		SubscribeToNewsletter: order.SubscribeToNewsletter,
		CreatedAt:             order.CreatedAt,
	})
	if err != nil {
		return nil, &TxError{Step: "insert order", Err: err}
	}

	order.Items = make([]domain.OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		if err := tx.InsertOrderItem(ctx, order.ID, item); err != nil {
			return nil, &TxError{Step: "insert order item", Err: err}
		}
		if err := tx.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			var stockErr *InsufficientStockError
			if errors.As(err, &stockErr) {
				return nil, stockErr
			}
			return nil, &TxError{Step: "decrement stock", Err: err}
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	if in.ShippingAddress != nil {
		if err := tx.InsertShippingAddress(ctx, order.ID, *in.ShippingAddress); err != nil {
			return nil, &TxError{Step: "insert shipping address", Err: err}
		}
	}

	cleared, err := tx.ClearCart(ctx, in.UserID)
	if err != nil {
		return nil, &TxError{Step: "clear cart", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &TxError{Step: "commit", Err: err}
	}
	committed = true

	s.logger.Info("order placed",
		"order_id", order.ID,
		"user_id", order.UserID,
		"items", len(order.Items),
		"cart_items_cleared", cleared,
	)
	return order, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.reader.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return order, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	orders, err := s.reader.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders of user %d", userID)
	}
	return orders, nil
}

// UpdateStatus overwrites the status of an order. Any status of the enum is
// accepted regardless of the current one. It reports false when the order
// does not exist.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (bool, error) {
	if !status.Valid() {
		return false, ErrInvalidStatus
	}
	found, err := s.reader.UpdateStatus(ctx, id, status)
	if err != nil {
		return false, errors.Wrapf(err, "update status of order %d", id)
	}
	return found, nil
}
