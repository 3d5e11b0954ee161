package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/ordersync/internal/model"
)

// CreateUser создаёт пользователя. Первый зарегистрированный пользователь получает роль администратора.
func (r *PostgresRepository) CreateUser(ctx context.Context, username string, passwordHash []byte) (*model.User, error) {
	u := model.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
	}

	var role string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, username, password_hash, role)
		 SELECT $1, $2, $3,
		        CASE WHEN EXISTS (SELECT 1 FROM users) THEN $4 ELSE $5 END
		 RETURNING role, created_at`,
		u.ID, username, passwordHash, string(model.RoleUser), string(model.RoleAdmin),
	).Scan(&role, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	u.Role = model.Role(role)

	return &u, nil
}

// GetUserByUsername возвращает пользователя по имени.
func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getUser(ctx, `SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`, username)
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getUser(ctx, `SELECT id, username, password_hash, role, created_at FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)

	return &u, nil
}
