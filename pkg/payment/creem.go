package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultAPIBase is the production Creem endpoint. Test keys are served from
// https://test-api.creem.io.
const DefaultAPIBase = "https://api.creem.io"

// Client talks to the Creem HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a Creem client. An empty baseURL falls back to the
// production endpoint. An empty apiKey is allowed; calls will fail with
// ErrNotConfigured.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCheckout creates a hosted checkout session. Creem creates (or
// reuses) the customer from the email automatically.
func (c *Client) CreateCheckout(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	payload := map[string]interface{}{
		"product_id":  params.ProductID,
		"customer":    map[string]string{"email": params.CustomerEmail},
		"success_url": params.SuccessURL,
	}
	if len(params.Metadata) > 0 {
		payload["metadata"] = params.Metadata
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return sessionFromResponse(raw), nil
}

// GetCheckout fetches the current state of a checkout session. This is the
// authoritative read used by the verify reconciler.
func (c *Client) GetCheckout(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/checkouts/"+sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build checkout lookup: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return sessionFromResponse(raw), nil
}

// do executes the request and decodes the JSON body, surfacing the upstream
// error message on non-2xx responses where parseable.
func (c *Client) do(req *http.Request) (map[string]interface{}, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gwErr := &GatewayError{StatusCode: resp.StatusCode}
		var errBody map[string]interface{}
		if json.Unmarshal(data, &errBody) == nil {
			gwErr.Message = firstString(errBody, "message", "error")
			if gwErr.Message == "" && len(errBody) > 0 {
				gwErr.Message = string(data)
			}
		} else {
			gwErr.Message = string(data)
		}
		return nil, gwErr
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return raw, nil
}

// sessionFromResponse normalizes a raw checkout object. The gateway's field
// naming is not stable across endpoints, so every field tries each known
// variant in order.
func sessionFromResponse(raw map[string]interface{}) *CheckoutSession {
	meta, _ := raw["metadata"].(map[string]interface{})
	return &CheckoutSession{
		ID:          firstString(raw, "id", "checkout_id", "checkoutId"),
		RedirectURL: firstString(raw, "url", "checkout_url", "checkoutUrl"),
		Status:      firstString(raw, "status", "payment_status", "paymentStatus", "state"),
		Amount:      firstInt(raw, "amount", "total", "amount_total", "price"),
		Currency:    firstString(raw, "currency", "currency_code"),
		OrderID:     firstString(raw, "order_id", "orderId"),
		CustomerID:  customerID(raw),
		Metadata: SessionMetadata{
			UserID:   firstString(meta, "userId", "user_id"),
			PlanType: firstString(meta, "planType", "plan_type"),
			Email:    firstString(meta, "email"),
		},
	}
}

func customerID(raw map[string]interface{}) string {
	if id := firstString(raw, "customer_id", "customerId"); id != "" {
		return id
	}
	if cust, ok := raw["customer"].(map[string]interface{}); ok {
		return firstString(cust, "id")
	}
	return ""
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func firstInt(m map[string]interface{}, keys ...string) int64 {
	for _, k := range keys {
		if v, ok := m[k].(float64); ok && v != 0 {
			return int64(v)
		}
	}
	return 0
}
