package orders

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

var _ Reader = (*OrderRepository)(nil)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, total, payment_method, status, subscribe_to_newsletter, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.UserID, &order.Total, &order.PaymentMethod, &order.Status,
		&order.SubscribeToNewsletter, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	order.Items = []domain.OrderItem{}
	byID := map[int64]*domain.Order{order.ID: order}
	if err := r.loadDetails(ctx, []int64{order.ID}, byID); err != nil {
		return nil, err
	}

	return order, nil
}

// ListByUser returns the orders of a user, newest first. Items and shipping
// addresses are loaded with one query each for the whole page.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, total, payment_method, status, subscribe_to_newsletter, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[int64]*domain.Order)
	var orderIDs []int64

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.Total, &order.PaymentMethod, &order.Status,
			&order.SubscribeToNewsletter, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	if err := r.loadDetails(ctx, orderIDs, orderMap); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func (r *OrderRepository) loadDetails(ctx context.Context, orderIDs []int64, orderMap map[int64]*domain.Order) error {
	itemRows, err := r.db.QueryContext(ctx, `
		SELECT oi.order_id, oi.product_id, oi.quantity, p.name, p.price, COALESCE(p.image, '')
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id
	`, pq.Array(orderIDs))
	if err != nil {
		return err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var (
			orderID int64
			item    domain.OrderItem
			price   decimal.Decimal
		)
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.Name, &price, &item.Image); err != nil {
			return err
		}
		item.Price = &price
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return err
	}

	addrRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, address, city, zip_code, phone
		FROM shipping_addresses
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return err
	}
	defer func() { _ = addrRows.Close() }()

	for addrRows.Next() {
		var (
			orderID int64
			addr    domain.ShippingAddress
		)
		if err := addrRows.Scan(&orderID, &addr.Address, &addr.City, &addr.ZipCode, &addr.Phone); err != nil {
			return err
		}
		orderMap[orderID].ShippingAddress = &addr
	}

	return addrRows.Err()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1
		WHERE id = $2
	`, status, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}
