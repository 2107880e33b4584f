package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lakbayhq/lakbay-api/internal/types"
)

const uniqueViolationCode = "23505"

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	CreateUser(ctx context.Context, user User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*User, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewRepository(pgxpool *pgxpool.Pool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgxpool,
	}
}

func (r *RepositoryImpl) CreateUser(ctx context.Context, user User) error {
	query := `
        INSERT INTO users (id, username, email, password_hash, plan)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := r.pgpool.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Plan)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return types.ErrEmailTaken
		}
		r.logger.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
        SELECT id, username, email, password_hash, plan, created_at, updated_at
        FROM users
        WHERE email = $1
    `
	return r.scanUser(ctx, query, email)
}

func (r *RepositoryImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	query := `
        SELECT id, username, email, password_hash, plan, created_at, updated_at
        FROM users
        WHERE id = $1
    `
	return r.scanUser(ctx, query, userID)
}

func (r *RepositoryImpl) scanUser(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := r.pgpool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Plan, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
