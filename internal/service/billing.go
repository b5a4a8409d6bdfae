package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/geoscribe/backend/internal/domain"
	"github.com/geoscribe/backend/pkg/payment"
)

// BillingConfig holds the gateway product mapping and redirect target.
type BillingConfig struct {
	// ProductIDs maps plan types to gateway product ids configured in the
	// Creem dashboard.
	ProductIDs map[string]string
	// SuccessURL is where the gateway redirects the user after payment.
	SuccessURL string
}

// BillingService owns checkout initiation and payment confirmation
// reconciliation. All three confirmation entry points (webhook, verify poll,
// manual activation) converge on the same grant operation; serialization of
// the order state machine happens entirely at the storage layer through
// conditional updates, never in process memory.
type BillingService struct {
	orders  OrderStore
	users   UserStore
	gateway payment.Gateway
	cfg     BillingConfig
	now     func() time.Time
}

// NewBillingService creates a BillingService.
func NewBillingService(orders OrderStore, users UserStore, gateway payment.Gateway, cfg BillingConfig) *BillingService {
	return &BillingService{
		orders:  orders,
		users:   users,
		gateway: gateway,
		cfg:     cfg,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Expiry is always computed at the
// moment of grant, so tests pin this to a fixed instant.
func (s *BillingService) WithClock(now func() time.Time) *BillingService {
	s.now = now
	return s
}

// CreateCheckout starts a remote checkout session and records a pending
// order. A ledger insert failure after the remote session exists is logged
// and swallowed: the user can still pay, and the verify reconciler recovers
// the order by session lookup.
func (s *BillingService) CreateCheckout(ctx context.Context, userID, planType string) (*domain.CheckoutResponse, error) {
	if !domain.ValidPlan(planType) {
		return nil, domain.ErrBadRequest("invalid plan type")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}

	productID := s.cfg.ProductIDs[planType]
	if productID == "" {
		return nil, domain.ErrConfiguration("no product configured for plan " + planType)
	}

	sess, err := s.gateway.CreateCheckout(ctx, payment.CheckoutParams{
		ProductID:     productID,
		CustomerEmail: user.Email,
		SuccessURL:    s.cfg.SuccessURL,
		Metadata: map[string]string{
			"userId":   user.ID,
			"planType": planType,
			"email":    user.Email,
		},
	})
	if err != nil {
		if err == payment.ErrNotConfigured {
			return nil, domain.ErrConfiguration("payment gateway credentials not configured")
		}
		return nil, domain.ErrGateway("failed to create checkout session", err)
	}

	metadata, _ := json.Marshal(map[string]string{"planType": planType})
	order := &domain.Order{
		ID:        domain.NewID(),
		UserID:    user.ID,
		Currency:  "USD",
		Status:    domain.OrderPending,
		PlanType:  planType,
		Metadata:  string(metadata),
		CreatedAt: s.now(),
	}
	if sess.ID != "" {
		order.SessionID = &sess.ID
	}
	if err := s.orders.Create(ctx, order); err != nil {
		// The remote session already exists; do not fail the checkout.
		log.Printf("checkout: failed to record pending order for user %s: %v", user.ID, err)
	}

	return &domain.CheckoutResponse{SessionID: sess.ID, RedirectURL: sess.RedirectURL}, nil
}

// HandleWebhookEvent reconciles an authenticated gateway event against the
// ledger. Safe to call for duplicate deliveries and out of order relative to
// the verify poll: the pending guard on the order row makes the completed
// transition happen at most once, and the grant only runs when this call won
// that transition.
func (s *BillingService) HandleWebhookEvent(ctx context.Context, ev *payment.WebhookEvent) error {
	switch {
	case ev.Completed():
		return s.handleCompleted(ctx, ev)
	case ev.Refund():
		return s.handleRefund(ctx, ev)
	default:
		log.Printf("webhook: ignoring event type %q", ev.Type)
		return nil
	}
}

func (s *BillingService) handleCompleted(ctx context.Context, ev *payment.WebhookEvent) error {
	order, err := s.resolveOrder(ctx, ev)
	if err != nil {
		return err
	}
	if order == nil {
		log.Printf("webhook: no order matched event (session=%q order=%q email=%q)",
			ev.SessionID, ev.OrderID, ev.CustomerEmail)
		return nil
	}

	completed, err := s.orders.CompleteIfPending(ctx, order.ID, ev.OrderID, ev.Amount, ev.Currency)
	if err != nil {
		return domain.ErrInternal("failed to complete order", err)
	}
	if !completed {
		// Duplicate delivery, or verify got there first. Ledger state is
		// already settled; nothing to do.
		return nil
	}

	if _, err := s.grant(ctx, order.UserID, order.PlanType, ev.CustomerID); err != nil {
		return err
	}
	log.Printf("webhook: premium activated for user %s (order %s)", order.UserID, order.ID)
	return nil
}

// resolveOrder finds the ledger row for a completed event: by session id,
// then by gateway order id, then by the most recent pending order of the
// user the event's email resolves to.
func (s *BillingService) resolveOrder(ctx context.Context, ev *payment.WebhookEvent) (*domain.Order, error) {
	if ev.SessionID != "" {
		order, err := s.orders.FindBySessionID(ctx, ev.SessionID)
		if err != nil {
			return nil, domain.ErrInternal("failed to look up order by session", err)
		}
		if order != nil {
			return order, nil
		}
	}
	if ev.OrderID != "" {
		order, err := s.orders.FindByProviderOrderID(ctx, ev.OrderID)
		if err != nil {
			return nil, domain.ErrInternal("failed to look up order by provider id", err)
		}
		if order != nil {
			return order, nil
		}
	}
	if ev.CustomerEmail != "" {
		user, err := s.users.FindByEmail(ctx, ev.CustomerEmail)
		if err != nil {
			return nil, domain.ErrInternal("failed to look up user by email", err)
		}
		if user != nil {
			order, err := s.orders.FindLatestPendingByUser(ctx, user.ID)
			if err != nil {
				return nil, domain.ErrInternal("failed to look up pending order", err)
			}
			return order, nil
		}
	}
	return nil, nil
}

func (s *BillingService) handleRefund(ctx context.Context, ev *payment.WebhookEvent) error {
	if ev.OrderID == "" {
		log.Printf("webhook: refund event without order id, ignoring")
		return nil
	}
	order, err := s.orders.FindByProviderOrderID(ctx, ev.OrderID)
	if err != nil {
		return domain.ErrInternal("failed to look up refunded order", err)
	}
	if order == nil {
		log.Printf("webhook: refund for unknown order %q", ev.OrderID)
		return nil
	}

	if err := s.orders.MarkRefunded(ctx, order.ID); err != nil {
		return domain.ErrInternal("failed to mark order refunded", err)
	}
	// The revoke is unconditional: a refund always ends the entitlement,
	// whatever state the ledger row was in.
	if err := s.users.RevokePremium(ctx, order.UserID); err != nil {
		return domain.ErrInternal("failed to revoke premium", err)
	}
	log.Printf("webhook: premium revoked for user %s (order %s refunded)", order.UserID, order.ID)
	return nil
}

// VerifySession is the client-triggered confirmation poll. It reads the
// session's authoritative state from the gateway; anything short of a
// completed payment returns a non-mutating "not complete" result. On success
// it settles the ledger (creating the order if checkout never recorded one)
// and grants premium. Unlike the webhook path, the grant is not gated on the
// order transition: the gateway read is authoritative here.
func (s *BillingService) VerifySession(ctx context.Context, sessionID string) (*domain.VerifyResponse, error) {
	sess, err := s.gateway.GetCheckout(ctx, sessionID)
	if err != nil {
		if err == payment.ErrNotConfigured {
			return nil, domain.ErrConfiguration("payment gateway credentials not configured")
		}
		return nil, domain.ErrGateway("failed to fetch checkout session", err)
	}

	if !sess.Completed() {
		return &domain.VerifyResponse{Success: false, Message: "payment not completed"}, nil
	}

	userID := sess.Metadata.UserID
	planType := sess.Metadata.PlanType
	if userID == "" || planType == "" {
		return nil, domain.ErrBadRequest("checkout session is missing user or plan metadata")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}

	order, err := s.orders.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, domain.ErrInternal("failed to look up order", err)
	}
	if order == nil {
		// Checkout failed to record the ledger row; backfill it settled.
		metadata, _ := json.Marshal(sess.Metadata)
		order = &domain.Order{
			ID:        domain.NewID(),
			UserID:    user.ID,
			SessionID: &sessionID,
			Amount:    sess.Amount,
			Currency:  currencyOrDefault(sess.Currency),
			Status:    domain.OrderCompleted,
			PlanType:  planType,
			Metadata:  string(metadata),
			CreatedAt: s.now(),
		}
		if sess.OrderID != "" {
			order.ProviderOrderID = &sess.OrderID
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return nil, domain.ErrInternal("failed to record order", err)
		}
	} else {
		if _, err := s.orders.CompleteIfPending(ctx, order.ID, sess.OrderID, sess.Amount, sess.Currency); err != nil {
			return nil, domain.ErrInternal("failed to complete order", err)
		}
	}

	expiry, err := s.grant(ctx, user.ID, planType, sess.CustomerID)
	if err != nil {
		return nil, err
	}
	log.Printf("verify: premium activated for user %s (session %s)", user.ID, sessionID)

	return &domain.VerifyResponse{
		Success:          true,
		IsPremium:        true,
		PremiumExpiresAt: &expiry,
		PlanType:         planType,
	}, nil
}

// Activate grants premium to a user for the given number of months without
// any external verification. Trusted-operator escape hatch; routes expose it
// only to the authenticated caller themselves or behind admin middleware.
func (s *BillingService) Activate(ctx context.Context, userID string, months int) (*domain.ActivateResponse, error) {
	if months <= 0 {
		months = 1
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}

	expiry := s.now().AddDate(0, months, 0)
	if err := s.users.GrantPremium(ctx, userID, &expiry, nil); err != nil {
		return nil, domain.ErrInternal("failed to grant premium", err)
	}

	return &domain.ActivateResponse{
		Success:          true,
		IsPremium:        true,
		PremiumExpiresAt: &expiry,
		UserID:           userID,
	}, nil
}

// grant is the single entitlement write shared by the webhook and verify
// reconcilers. Expiry is computed from the current clock, not extended from
// any existing expiry: a second successful grant pushes the expiry further
// out rather than being a strict no-op.
func (s *BillingService) grant(ctx context.Context, userID, planType, customerID string) (time.Time, error) {
	now := s.now()
	var expiry time.Time
	switch planType {
	case domain.PlanYearly:
		expiry = now.AddDate(1, 0, 0)
	default:
		expiry = now.AddDate(0, 1, 0)
	}

	var cid *string
	if customerID != "" {
		cid = &customerID
	}
	if err := s.users.GrantPremium(ctx, userID, &expiry, cid); err != nil {
		return time.Time{}, domain.ErrInternal("failed to grant premium", err)
	}
	return expiry, nil
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return "USD"
	}
	return currency
}
