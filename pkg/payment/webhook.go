package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Event types the gateway may emit for a completed payment. The schema is
// not guaranteed stable, so all known spellings are accepted.
var completedEventTypes = map[string]bool{
	"checkout.completed": true,
	"payment.completed":  true,
	"order.completed":    true,
}

const refundEventType = "refund.created"

// WebhookEvent is the canonical view of a gateway webhook payload.
type WebhookEvent struct {
	Type          string
	SessionID     string
	OrderID       string
	CustomerID    string
	CustomerEmail string
	Amount        int64
	Currency      string
}

// Completed reports whether the event signals a successful payment.
func (e *WebhookEvent) Completed() bool {
	return completedEventTypes[e.Type]
}

// Refund reports whether the event signals a refund.
func (e *WebhookEvent) Refund() bool {
	return e.Type == refundEventType
}

// ParseWebhookEvent decodes and normalizes a raw webhook body. Field-name
// tolerance mirrors sessionFromResponse: the same datum may arrive under
// several keys depending on gateway version.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var raw struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	data := raw.Data
	if data == nil {
		data = map[string]interface{}{}
	}

	email := firstString(data, "email")
	if cust, ok := data["customer"].(map[string]interface{}); ok && email == "" {
		email = firstString(cust, "email")
	}

	return &WebhookEvent{
		Type:          raw.Type,
		SessionID:     firstString(data, "session_id", "checkout_id", "checkoutId"),
		OrderID:       firstString(data, "order_id", "orderId"),
		CustomerID:    firstString(data, "customer_id", "customerId"),
		CustomerEmail: email,
		Amount:        firstInt(data, "amount", "total"),
		Currency:      firstString(data, "currency"),
	}, nil
}

// VerifySignature checks an HMAC-SHA256 hex signature over the exact raw
// body using a constant-time comparison.
func VerifySignature(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Sign computes the hex HMAC-SHA256 signature for a payload. Used by tests
// and local webhook simulation.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
