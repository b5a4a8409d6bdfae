package handler

import (
	"io"
	"log"
	"net/http"

	"github.com/geoscribe/backend/internal/service"
	"github.com/geoscribe/backend/pkg/payment"
)

// SignatureHeader carries the gateway's HMAC-SHA256 hex digest of the raw body.
const SignatureHeader = "creem-signature"

// WebhookHandler receives asynchronous payment notifications from the
// gateway. It is the only unauthenticated mutation path, so the signature
// check happens before anything is parsed.
type WebhookHandler struct {
	billing *service.BillingService
	secret  string
}

// NewWebhookHandler creates a WebhookHandler. An empty secret disables
// signature verification (local development against the gateway's test mode).
func NewWebhookHandler(billing *service.BillingService, secret string) *WebhookHandler {
	return &WebhookHandler{billing: billing, secret: secret}
}

// HandlePayment handles POST /api/payment/webhook. The response is always
// {received:true} on success; the gateway treats anything else as a delivery
// failure and retries, which is safe because processing is idempotent.
func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		JSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}

	if h.secret != "" {
		signature := r.Header.Get(SignatureHeader)
		if !payment.VerifySignature(body, signature, h.secret) {
			JSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
			return
		}
	}

	ev, err := payment.ParseWebhookEvent(body)
	if err != nil {
		log.Printf("webhook: undecodable payload: %v", err)
		JSON(w, http.StatusInternalServerError, map[string]string{"error": "webhook processing failed"})
		return
	}

	if err := h.billing.HandleWebhookEvent(r.Context(), ev); err != nil {
		log.Printf("webhook: processing failed: %v", err)
		JSON(w, http.StatusInternalServerError, map[string]string{"error": "webhook processing failed"})
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"received": true})
}
