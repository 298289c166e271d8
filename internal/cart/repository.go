package cart

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	"github.com/lib/pq"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

var ErrUnknownProduct = errors.New("unknown product")

const foreignKeyViolation = "23503"

var _ Store = (*CartRepository)(nil)

type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

const selectItem = `
	SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, p.name, p.price, COALESCE(p.image, ''),
		ci.created_at, ci.updated_at
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (domain.CartItem, error) {
	var item domain.CartItem
	err := row.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.Name, &item.Price, &item.Image,
		&item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func (r *CartRepository) ListByUser(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, selectItem+`WHERE ci.user_id = $1 ORDER BY ci.id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.CartItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *CartRepository) GetByID(ctx context.Context, id int64) (*domain.CartItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, selectItem+`WHERE ci.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Add puts a product in the cart of a user. When the product is already there
// the quantities are summed on the existing row.
func (r *CartRepository) Add(ctx context.Context, userID, productID int64, quantity int) (*domain.CartItem, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING id
	`, userID, productID, quantity).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return nil, ErrUnknownProduct
		}
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// UpdateQuantity reports false when the cart item does not exist.
func (r *CartRepository) UpdateQuantity(ctx context.Context, id int64, quantity int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = $1, updated_at = NOW()
		WHERE id = $2
	`, quantity, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *CartRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *CartRepository) Clear(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
