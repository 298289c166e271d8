package catalog

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

var _ Store = (*ProductRepository)(nil)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const selectProduct = `
	SELECT id, name, COALESCE(description, ''), price, stock, COALESCE(image, '')
	FROM products
`

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	return r.query(ctx, selectProduct+`ORDER BY id`)
}

// SearchByName matches products whose name contains the term, ignoring case.
func (r *ProductRepository) SearchByName(ctx context.Context, term string) ([]domain.Product, error) {
	return r.query(ctx, selectProduct+`WHERE name ILIKE $1 ORDER BY id`, "%"+escapeLike(term)+"%")
}

func (r *ProductRepository) query(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Image); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	p := &domain.Product{}

	err := r.db.QueryRowContext(ctx, selectProduct+`WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
