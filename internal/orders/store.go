package orders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/lib/pq"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

var ErrUnknownProduct = errors.New("unknown product")

// StockPolicy selects how the checkout decrements product stock.
type StockPolicy string

const (
	// StockUnguarded subtracts unconditionally; stock may go negative and
	// concurrent checkouts of one product are not serialized.
	StockUnguarded StockPolicy = "unguarded"
	// StockGuarded only subtracts when enough units remain and fails the
	// checkout with InsufficientStockError otherwise.
	StockGuarded StockPolicy = "guarded"
)

func ParseStockPolicy(s string) (StockPolicy, error) {
	switch p := StockPolicy(s); p {
	case StockUnguarded, StockGuarded:
		return p, nil
	case "":
		return StockUnguarded, nil
	default:
		return "", errors.Errorf("unknown stock policy %q", s)
	}
}

const foreignKeyViolation = "23503"

var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db     *sql.DB
	policy StockPolicy
}

func NewPostgresStore(db *sql.DB, policy StockPolicy) *PostgresStore {
	if policy == "" {
		policy = StockUnguarded
	}
	return &PostgresStore{db: db, policy: policy}
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{tx: tx, policy: s.policy}, nil
}

type postgresTx struct {
	tx     *sql.Tx
	policy StockPolicy
}

func (t *postgresTx) InsertOrder(ctx context.Context, order NewOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, total, payment_method, status, subscribe_to_newsletter, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, order.UserID, order.Total, order.PaymentMethod, order.Status, order.SubscribeToNewsletter, order.CreatedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (t *postgresTx) InsertOrderItem(ctx context.Context, orderID int64, item ItemInput) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity)
		VALUES ($1, $2, $3)
	`, orderID, item.ProductID, item.Quantity)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return fmt.Errorf("%w: %d", ErrUnknownProduct, item.ProductID)
		}
		return err
	}
	return nil
}

func (t *postgresTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	query := `UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2`
	if t.policy == StockGuarded {
		query += ` AND stock >= $1`
	}

	result, err := t.tx.ExecContext(ctx, query, quantity, productID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	if err := t.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %d", ErrUnknownProduct, productID)
	}
	return &InsufficientStockError{ProductID: productID, Requested: quantity}
}

func (t *postgresTx) InsertShippingAddress(ctx context.Context, orderID int64, addr domain.ShippingAddress) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO shipping_addresses (order_id, address, city, zip_code, phone)
		VALUES ($1, $2, $3, $4, $5)
	`, orderID, addr.Address, addr.City, addr.ZipCode, addr.Phone)
	return err
}

func (t *postgresTx) ClearCart(ctx context.Context, userID int64) (int64, error) {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (t *postgresTx) Commit() error {
	return t.tx.Commit()
}

func (t *postgresTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
