package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geoscribe/backend/internal/contextkeys"
	"github.com/geoscribe/backend/internal/domain"
	"github.com/geoscribe/backend/internal/service"
	"github.com/geoscribe/backend/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore backs one in-memory fixture. The memUsers and memOrders wrappers
// present it as service.UserStore and service.OrderStore.
type memStore struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	orders map[string]*domain.Order
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*domain.User{}, orders: map[string]*domain.Order{}}
}

func (s *memStore) addUser(u *domain.User)   { s.users[u.ID] = u }
func (s *memStore) addOrder(o *domain.Order) { s.orders[o.ID] = o }

type memUsers struct{ *memStore }

func (s memUsers) Create(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

type memOrders struct{ *memStore }

func (s memOrders) Create(ctx context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	return nil
}

func (s *memStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *memStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *memStore) Exists(ctx context.Context, email string) (bool, error) {
	u, _ := s.FindByEmail(ctx, email)
	return u != nil, nil
}

func (s *memStore) GrantPremium(ctx context.Context, userID string, expiresAt *time.Time, customerID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.IsPremium = true
	u.PremiumExpiresAt = expiresAt
	if customerID != nil {
		u.CustomerID = customerID
	}
	return nil
}

func (s *memStore) RevokePremium(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.IsPremium = false
	u.PremiumExpiresAt = nil
	return nil
}

func (s *memStore) ConsumeFreeUsage(ctx context.Context, userID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	if u == nil || u.FreeUsageCount <= 0 {
		return 0, false, nil
	}
	u.FreeUsageCount--
	u.TotalUsageCount++
	return u.FreeUsageCount, true, nil
}

func (s *memStore) IncrementTotalUsage(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID].TotalUsageCount++
	return nil
}

func (s *memStore) ListAll(ctx context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.User
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

func (s *memStore) FindBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.SessionID != nil && *o.SessionID == sessionID {
			return o, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ProviderOrderID != nil && *o.ProviderOrderID == providerOrderID {
			return o, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindLatestPendingByUser(ctx context.Context, userID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.Order
	for _, o := range s.orders {
		if o.UserID == userID && o.Status == domain.OrderPending {
			if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
				latest = o
			}
		}
	}
	return latest, nil
}

func (s *memStore) CompleteIfPending(ctx context.Context, orderID, providerOrderID string, amount int64, currency string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[orderID]
	if o == nil || o.Status != domain.OrderPending {
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

func (s *memStore) MarkRefunded(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[orderID]; ok {
		o.Status = domain.OrderRefunded
	}
	return nil
}

func billingOver(store *memStore, gw payment.Gateway) *service.BillingService {
	return service.NewBillingService(memOrders{store}, memUsers{store}, gw, service.BillingConfig{
		ProductIDs: map[string]string{domain.PlanMonthly: "prod_m", domain.PlanYearly: "prod_y"},
		SuccessURL: "https://app.example.test/payment/success",
	})
}

func authedRequest(method, target string, body []byte, userID string) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(r.Context(), contextkeys.UserID, userID)
	return r.WithContext(ctx)
}

func freeUser() *domain.User {
	return &domain.User{ID: "u1", Email: "u@example.test", Role: "user", FreeUsageCount: 1}
}

func TestWebhookInvalidSignature(t *testing.T) {
	store := newMemStore()
	store.addUser(freeUser())
	sessID := "sess_1"
	store.addOrder(&domain.Order{ID: "o1", UserID: "u1", SessionID: &sessID, Status: domain.OrderPending, PlanType: domain.PlanMonthly})

	h := NewWebhookHandler(billingOver(store, payment.NewMockGateway()), "whsec")

	body := []byte(`{"type":"checkout.completed","data":{"session_id":"sess_1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, "bogus")
	rec := httptest.NewRecorder()

	h.HandlePayment(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// Nothing was mutated.
	assert.Equal(t, domain.OrderPending, store.orders["o1"].Status)
	assert.False(t, store.users["u1"].IsPremium)
}

func TestWebhookValidSignatureCompletesOrder(t *testing.T) {
	store := newMemStore()
	store.addUser(freeUser())
	sessID := "sess_1"
	store.addOrder(&domain.Order{ID: "o1", UserID: "u1", SessionID: &sessID, Status: domain.OrderPending, PlanType: domain.PlanMonthly})

	h := NewWebhookHandler(billingOver(store, payment.NewMockGateway()), "whsec")

	body := []byte(`{"type":"checkout.completed","data":{"session_id":"sess_1","order_id":"ord_1","amount":900,"currency":"USD"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, payment.Sign(body, "whsec"))
	rec := httptest.NewRecorder()

	h.HandlePayment(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["received"])

	assert.Equal(t, domain.OrderCompleted, store.orders["o1"].Status)
	assert.True(t, store.users["u1"].IsPremium)
}

func TestWebhookNoSecretSkipsVerification(t *testing.T) {
	store := newMemStore()
	h := NewWebhookHandler(billingOver(store, payment.NewMockGateway()), "")

	body := []byte(`{"type":"customer.updated","data":{}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandlePayment(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutInvalidPlan(t *testing.T) {
	store := newMemStore()
	store.addUser(freeUser())
	h := NewPaymentHandler(billingOver(store, payment.NewMockGateway()))

	req := authedRequest(http.MethodPost, "/api/payment/checkout", []byte(`{"planType":"weekly"}`), "u1")
	rec := httptest.NewRecorder()
	h.CreateCheckout(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutSuccess(t *testing.T) {
	store := newMemStore()
	store.addUser(freeUser())
	h := NewPaymentHandler(billingOver(store, payment.NewMockGateway()))

	req := authedRequest(http.MethodPost, "/api/payment/checkout", []byte(`{"planType":"monthly"}`), "u1")
	rec := httptest.NewRecorder()
	h.CreateCheckout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.RedirectURL)
}

func TestCheckoutUnauthenticated(t *testing.T) {
	h := NewPaymentHandler(billingOver(newMemStore(), payment.NewMockGateway()))

	req := httptest.NewRequest(http.MethodPost, "/api/payment/checkout", bytes.NewReader([]byte(`{"planType":"monthly"}`)))
	rec := httptest.NewRecorder()
	h.CreateCheckout(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyMissingSessionID(t *testing.T) {
	h := NewPaymentHandler(billingOver(newMemStore(), payment.NewMockGateway()))

	req := authedRequest(http.MethodGet, "/api/payment/verify", nil, "u1")
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
}

func TestUsageConsumeExhaustedShape(t *testing.T) {
	store := newMemStore()
	u := freeUser()
	u.FreeUsageCount = 0
	store.addUser(u)
	h := NewUsageHandler(service.NewUsageService(memUsers{store}))

	req := authedRequest(http.MethodPost, "/api/usage/consume", nil, "u1")
	rec := httptest.NewRecorder()
	h.Consume(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["canUse"])
	assert.NotEmpty(t, resp["error"])
}

func TestUsageConsumeSuccess(t *testing.T) {
	store := newMemStore()
	store.addUser(freeUser())
	h := NewUsageHandler(service.NewUsageService(memUsers{store}))

	req := authedRequest(http.MethodPost, "/api/usage/consume", nil, "u1")
	rec := httptest.NewRecorder()
	h.Consume(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.ConsumeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.RemainingCount)
}

func TestUsageStatus(t *testing.T) {
	store := newMemStore()
	store.addUser(freeUser())
	h := NewUsageHandler(service.NewUsageService(memUsers{store}))

	req := authedRequest(http.MethodGet, "/api/usage", nil, "u1")
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.UsageStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.CanUse)
	assert.Equal(t, 1, resp.FreeUsageCount)
}

func TestActivateDefaultMonths(t *testing.T) {
	store := newMemStore()
	store.addUser(freeUser())
	h := NewPaymentHandler(billingOver(store, payment.NewMockGateway()))

	// No body at all: months defaults to one.
	req := authedRequest(http.MethodPost, "/api/payment/activate", nil, "u1")
	rec := httptest.NewRecorder()
	h.Activate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.ActivateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsPremium)
	require.NotNil(t, resp.PremiumExpiresAt)
	assert.True(t, store.users["u1"].IsPremium)
}
