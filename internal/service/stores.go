package service

import (
	"context"
	"time"

	"github.com/geoscribe/backend/internal/domain"
)

// UserStore is the persistence surface the services need for users and
// entitlement state. Implemented by repository.UserRepository; tests use
// in-memory fakes with the same conditional-update semantics.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Exists(ctx context.Context, email string) (bool, error)
	GrantPremium(ctx context.Context, userID string, expiresAt *time.Time, customerID *string) error
	RevokePremium(ctx context.Context, userID string) error
	ConsumeFreeUsage(ctx context.Context, userID string) (remaining int, ok bool, err error)
	IncrementTotalUsage(ctx context.Context, userID string) error
	ListAll(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// OrderStore is the persistence surface for the checkout ledger.
// Implemented by repository.OrderRepository.
type OrderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	FindBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	FindByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error)
	FindLatestPendingByUser(ctx context.Context, userID string) (*domain.Order, error)
	CompleteIfPending(ctx context.Context, orderID, providerOrderID string, amount int64, currency string) (bool, error)
	MarkRefunded(ctx context.Context, orderID string) error
}
