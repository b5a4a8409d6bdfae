package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/geoscribe/backend/internal/domain"
)

// fakeUserStore is an in-memory UserStore. The mutex gives it the same
// atomicity the real repository gets from single conditional statements, so
// concurrency properties can be exercised without a database.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User

	grantErr  error
	createErr error
}

func newFakeUserStore(users ...*domain.User) *fakeUserStore {
	s := &fakeUserStore{users: map[string]*domain.User{}}
	for _, u := range users {
		cp := *u
		s.users[u.ID] = &cp
	}
	return s
}

func (s *fakeUserStore) get(id string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

func (s *fakeUserStore) Create(ctx context.Context, u *domain.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.get(id), nil
}

func (s *fakeUserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) Exists(ctx context.Context, email string) (bool, error) {
	u, _ := s.FindByEmail(ctx, email)
	return u != nil, nil
}

func (s *fakeUserStore) GrantPremium(ctx context.Context, userID string, expiresAt *time.Time, customerID *string) error {
	if s.grantErr != nil {
		return s.grantErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.IsPremium = true
	u.PremiumExpiresAt = expiresAt
	if customerID != nil {
		u.CustomerID = customerID
	}
	return nil
}

func (s *fakeUserStore) RevokePremium(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.IsPremium = false
		u.PremiumExpiresAt = nil
	}
	return nil
}

func (s *fakeUserStore) ConsumeFreeUsage(ctx context.Context, userID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.FreeUsageCount <= 0 {
		return 0, false, nil
	}
	u.FreeUsageCount--
	u.TotalUsageCount++
	return u.FreeUsageCount, true, nil
}

func (s *fakeUserStore) IncrementTotalUsage(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.TotalUsageCount++
	}
	return nil
}

func (s *fakeUserStore) ListAll(ctx context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.User
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeUserStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

// fakeOrderStore is an in-memory OrderStore with the same
// conditional-transition semantics as the SQL repository.
type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order

	createErr error
}

func newFakeOrderStore(orders ...*domain.Order) *fakeOrderStore {
	s := &fakeOrderStore{orders: map[string]*domain.Order{}}
	for _, o := range orders {
		cp := *o
		s.orders[o.ID] = &cp
	}
	return s
}

func (s *fakeOrderStore) get(id string) *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		cp := *o
		return &cp
	}
	return nil
}

func (s *fakeOrderStore) Create(ctx context.Context, o *domain.Order) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *fakeOrderStore) FindBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.SessionID != nil && *o.SessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeOrderStore) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ProviderOrderID != nil && *o.ProviderOrderID == providerOrderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeOrderStore) FindLatestPendingByUser(ctx context.Context, userID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.Order
	for _, o := range s.orders {
		if o.UserID != userID || o.Status != domain.OrderPending {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *fakeOrderStore) CompleteIfPending(ctx context.Context, orderID, providerOrderID string, amount int64, currency string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.Status != domain.OrderPending {
		return false, nil
	}
	o.Status = domain.OrderCompleted
	if providerOrderID != "" {
		o.ProviderOrderID = &providerOrderID
	}
	if amount > 0 {
		o.Amount = amount
	}
	if currency != "" {
		o.Currency = currency
	}
	return true, nil
}

func (s *fakeOrderStore) MarkRefunded(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[orderID]; ok {
		o.Status = domain.OrderRefunded
	}
	return nil
}
