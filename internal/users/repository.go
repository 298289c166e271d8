package users

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns nil, nil when the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u := &domain.User{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return u, nil
}
