// Package payment wraps the Creem payment processor's HTTP API and
// normalizes its unstable response and event schemas into canonical types at
// this boundary, so callers never re-guess field names.
package payment

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no API credential is configured.
var ErrNotConfigured = errors.New("payment: api key not configured")

// GatewayError carries an upstream non-2xx response.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("payment gateway error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("payment gateway error (HTTP %d)", e.StatusCode)
}

// CheckoutParams is the input for creating a checkout session.
type CheckoutParams struct {
	ProductID     string
	CustomerEmail string
	SuccessURL    string
	Metadata      map[string]string
}

// SessionMetadata is the structured metadata we attach to every session.
type SessionMetadata struct {
	UserID   string
	PlanType string
	Email    string
}

// CheckoutSession is the canonical view of a gateway checkout, regardless of
// which field names the gateway used on the wire.
type CheckoutSession struct {
	ID          string
	RedirectURL string
	Status      string
	Amount      int64
	Currency    string
	OrderID     string
	CustomerID  string
	Metadata    SessionMetadata
}

// Completed statuses across gateway API versions.
var completedStatuses = map[string]bool{
	"completed": true,
	"paid":      true,
	"succeeded": true,
}

// Completed reports whether the session's payment has gone through.
func (s *CheckoutSession) Completed() bool {
	return completedStatuses[s.Status]
}

// Gateway is the payment provider interface consumed by the billing service.
type Gateway interface {
	CreateCheckout(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	GetCheckout(ctx context.Context, sessionID string) (*CheckoutSession, error)
}
