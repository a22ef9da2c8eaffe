package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// UserRepository is a PostgreSQL implementation of repository.UserRepository.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{q: db}
}

// Create adds a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, name, phone, fcm_token, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.ExecContext(ctx, query,
		user.ID, user.Name, user.Phone, nullString(user.FCMToken), user.CreatedAt)
	return err
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, COALESCE(name, ''), COALESCE(phone, ''), COALESCE(fcm_token, ''), created_at FROM users WHERE id = $1`

	var user domain.User
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Phone, &user.FCMToken, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &user, nil
}

// UpdateFCMToken stores the user's push token.
func (r *UserRepository) UpdateFCMToken(ctx context.Context, id, token string) error {
	query := `UPDATE users SET fcm_token = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, nullString(token), id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
