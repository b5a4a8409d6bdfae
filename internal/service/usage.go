package service

import (
	"context"
	"time"

	"github.com/geoscribe/backend/internal/domain"
)

// UnlimitedRemaining is the sentinel remaining count for premium users.
const UnlimitedRemaining = -1

// UsageService is the quota gate: it decides whether a request may consume
// the metered feature and performs the counter bookkeeping.
type UsageService struct {
	users UserStore
	now   func() time.Time
}

// NewUsageService creates a UsageService.
func NewUsageService(users UserStore) *UsageService {
	return &UsageService{users: users, now: time.Now}
}

// WithClock overrides the time source for deterministic expiry checks.
func (s *UsageService) WithClock(now func() time.Time) *UsageService {
	s.now = now
	return s
}

// Check is the read-only admission probe: premium state, free counter, and
// whether either admits a use. It never mutates.
func (s *UsageService) Check(ctx context.Context, userID string) (*domain.UsageStatus, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}

	premium := user.PremiumActive(s.now())
	return &domain.UsageStatus{
		CanUse:           premium || user.FreeUsageCount > 0,
		IsPremium:        premium,
		FreeUsageCount:   user.FreeUsageCount,
		TotalUsageCount:  user.TotalUsageCount,
		PremiumExpiresAt: user.PremiumExpiresAt,
	}, nil
}

// Consume admits one use. Premium users only bump the lifetime counter and
// get the unlimited sentinel back. Everyone else goes through the single
// conditional decrement in the store; when that reports no free usage left
// the call fails with ErrQuotaExhausted and nothing was mutated.
func (s *UsageService) Consume(ctx context.Context, userID string) (*domain.ConsumeResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}

	if user.PremiumActive(s.now()) {
		if err := s.users.IncrementTotalUsage(ctx, userID); err != nil {
			return nil, domain.ErrInternal("failed to record usage", err)
		}
		return &domain.ConsumeResult{Success: true, IsPremium: true, RemainingCount: UnlimitedRemaining}, nil
	}

	remaining, ok, err := s.users.ConsumeFreeUsage(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to consume free usage", err)
	}
	if !ok {
		return nil, domain.ErrQuotaExhausted
	}
	return &domain.ConsumeResult{Success: true, IsPremium: false, RemainingCount: remaining}, nil
}
