package repository

import (
	"context"
	"fmt"

	"github.com/geoscribe/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, user_id, session_id, provider_order_id, amount, currency,
	status, plan_type, metadata, created_at`

// OrderRepository handles database operations for the checkout ledger.
type OrderRepository struct {
	db *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var metadata *string
	err := row.Scan(&o.ID, &o.UserID, &o.SessionID, &o.ProviderOrderID, &o.Amount,
		&o.Currency, &o.Status, &o.PlanType, &metadata, &o.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	if metadata != nil {
		o.Metadata = *metadata
	}
	return &o, nil
}

// Create inserts a new order row.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, session_id, provider_order_id, amount, currency,
			status, plan_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		o.ID, o.UserID, o.SessionID, o.ProviderOrderID, o.Amount, o.Currency,
		o.Status, o.PlanType, o.Metadata, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// FindBySessionID returns the order for a gateway checkout session, or nil.
func (r *OrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE session_id = $1 ORDER BY created_at DESC LIMIT 1`
	return scanOrder(r.db.QueryRow(ctx, query, sessionID))
}

// FindByProviderOrderID returns the order matching a gateway order id, or nil.
func (r *OrderRepository) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE provider_order_id = $1 ORDER BY created_at DESC LIMIT 1`
	return scanOrder(r.db.QueryRow(ctx, query, providerOrderID))
}

// FindLatestPendingByUser returns the most recent pending order of a user,
// or nil. Last-resort resolution when the gateway event carried neither a
// session id nor an order id we know.
func (r *OrderRepository) FindLatestPendingByUser(ctx context.Context, userID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND status = 'pending' ORDER BY created_at DESC LIMIT 1`
	return scanOrder(r.db.QueryRow(ctx, query, userID))
}

// CompleteIfPending transitions an order to completed in a single
// conditional update. It is the only synchronization point between the
// webhook and verify reconcilers: the pending guard makes the transition
// happen at most once, and also rejects completion of refunded orders.
// Returns true when this call performed the transition.
func (r *OrderRepository) CompleteIfPending(ctx context.Context, orderID, providerOrderID string, amount int64, currency string) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'completed',
		    provider_order_id = COALESCE(NULLIF($2, ''), provider_order_id),
		    amount = CASE WHEN $3 > 0 THEN $3 ELSE amount END,
		    currency = CASE WHEN $4 <> '' THEN $4 ELSE currency END
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, orderID, providerOrderID, amount, currency)
	if err != nil {
		return false, fmt.Errorf("failed to complete order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkRefunded moves an order to the terminal refunded status regardless of
// its current state.
func (r *OrderRepository) MarkRefunded(ctx context.Context, orderID string) error {
	if _, err := r.db.Exec(ctx, `UPDATE orders SET status = 'refunded' WHERE id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to mark order refunded: %w", err)
	}
	return nil
}

// CountByStatus returns the number of orders in a given status. Used by the
// admin stats endpoint.
func (r *OrderRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status = $1`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}
