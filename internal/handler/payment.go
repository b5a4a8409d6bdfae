package handler

import (
	"encoding/json"
	"net/http"

	"github.com/geoscribe/backend/internal/contextkeys"
	"github.com/geoscribe/backend/internal/domain"
	"github.com/geoscribe/backend/internal/service"
)

// PaymentHandler exposes checkout creation, the verify poll, and the manual
// activation escape hatch.
type PaymentHandler struct {
	billing *service.BillingService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(billing *service.BillingService) *PaymentHandler {
	return &PaymentHandler{billing: billing}
}

func authedUserID(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	return userID, ok && userID != ""
}

// CreateCheckout handles POST /api/payment/checkout.
func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(r)
	if !ok {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.CheckoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.billing.CreateCheckout(r.Context(), userID, req.PlanType)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}

// Verify handles GET /api/payment/verify?session_id=...
// The success page calls this after the gateway redirect; it may race the
// webhook arbitrarily.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		JSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "missing session_id parameter",
		})
		return
	}

	resp, err := h.billing.VerifySession(r.Context(), sessionID)
	if err != nil {
		if appErr, ok := domain.AsAppError(err); ok {
			JSON(w, appErr.Code, map[string]interface{}{"success": false, "message": appErr.Message})
			return
		}
		JSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "message": "payment verification failed"})
		return
	}
	if !resp.Success {
		JSON(w, http.StatusBadRequest, resp)
		return
	}

	JSON(w, http.StatusOK, resp)
}

// Activate handles POST /api/payment/activate. It upgrades the calling user
// without touching the gateway; months defaults to one. The body is
// optional.
func (h *PaymentHandler) Activate(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(r)
	if !ok {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.ActivateRequest
	// Tolerate a missing or malformed body; the default is one month.
	_ = json.NewDecoder(r.Body).Decode(&req)

	resp, err := h.billing.Activate(r.Context(), userID, req.Months)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}
