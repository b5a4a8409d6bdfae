package payment

import (
	"context"
	"fmt"
)

// MockGateway is a scriptable in-memory Gateway for tests and local
// development without Creem credentials.
type MockGateway struct {
	// Sessions maps session id to the canned state GetCheckout returns.
	Sessions map[string]*CheckoutSession
	// CreateErr and GetErr force failures when set.
	CreateErr error
	GetErr    error
	// Created records every CreateCheckout call.
	Created []CheckoutParams

	nextID int
}

// NewMockGateway creates an empty MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{Sessions: map[string]*CheckoutSession{}}
}

func (g *MockGateway) CreateCheckout(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	g.Created = append(g.Created, params)
	g.nextID++
	id := fmt.Sprintf("mock_sess_%d", g.nextID)
	sess := &CheckoutSession{
		ID:          id,
		RedirectURL: "https://checkout.example.test/" + id,
		Status:      "pending",
		Metadata: SessionMetadata{
			UserID:   params.Metadata["userId"],
			PlanType: params.Metadata["planType"],
			Email:    params.Metadata["email"],
		},
	}
	g.Sessions[id] = sess
	return sess, nil
}

func (g *MockGateway) GetCheckout(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if g.GetErr != nil {
		return nil, g.GetErr
	}
	if sess, ok := g.Sessions[sessionID]; ok {
		return sess, nil
	}
	return nil, &GatewayError{StatusCode: 404, Message: "checkout not found"}
}
