package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/geoscribe/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password, role, is_premium, premium_expires_at,
	free_usage_count, total_usage_count, customer_id, created_at, updated_at`

// UserRepository handles database operations for users and their
// entitlement state.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Role, &u.IsPremium, &u.PremiumExpiresAt,
		&u.FreeUsageCount, &u.TotalUsageCount, &u.CustomerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, password, role, is_premium, premium_expires_at,
			free_usage_count, total_usage_count, customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		u.ID, u.Email, u.Password, u.Role, u.IsPremium, u.PremiumExpiresAt,
		u.FreeUsageCount, u.TotalUsageCount, u.CustomerID, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByEmail returns a user by email address, or nil when absent.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// FindByID returns a user by ID, or nil when absent.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// Exists checks if a user with the given email already exists.
func (r *UserRepository) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// GrantPremium marks the user premium until expiresAt (nil = lifetime).
// The customer id is only overwritten when the gateway supplied one.
func (r *UserRepository) GrantPremium(ctx context.Context, userID string, expiresAt *time.Time, customerID *string) error {
	query := `
		UPDATE users
		SET is_premium = TRUE,
		    premium_expires_at = $2,
		    customer_id = COALESCE($3, customer_id),
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID, expiresAt, customerID)
	if err != nil {
		return fmt.Errorf("failed to grant premium: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("grant premium: user %s not found", userID)
	}
	return nil
}

// RevokePremium clears the premium flag and expiry.
func (r *UserRepository) RevokePremium(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET is_premium = FALSE, premium_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to revoke premium: %w", err)
	}
	return nil
}

// ConsumeFreeUsage atomically decrements the free usage counter and bumps the
// total counter in one conditional statement. The WHERE guard is what keeps
// two concurrent consumers from driving the counter negative; ok is false
// when no free usage was left.
func (r *UserRepository) ConsumeFreeUsage(ctx context.Context, userID string) (remaining int, ok bool, err error) {
	query := `
		UPDATE users
		SET free_usage_count = free_usage_count - 1,
		    total_usage_count = total_usage_count + 1,
		    updated_at = NOW()
		WHERE id = $1 AND free_usage_count > 0
		RETURNING free_usage_count
	`
	err = r.db.QueryRow(ctx, query, userID).Scan(&remaining)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to consume free usage: %w", err)
	}
	return remaining, true, nil
}

// IncrementTotalUsage bumps the lifetime usage counter without touching the
// free quota. Used for premium users.
func (r *UserRepository) IncrementTotalUsage(ctx context.Context, userID string) error {
	query := `UPDATE users SET total_usage_count = total_usage_count + 1, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to increment total usage: %w", err)
	}
	return nil
}

// ListAll returns all users ordered by creation date.
func (r *UserRepository) ListAll(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// Delete removes a user by ID.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
