package handler

import (
	"errors"
	"net/http"

	"github.com/geoscribe/backend/internal/domain"
	"github.com/geoscribe/backend/internal/service"
)

// UsageHandler exposes the quota gate.
type UsageHandler struct {
	usage *service.UsageService
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(usage *service.UsageService) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// Status handles GET /api/usage.
func (h *UsageHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(r)
	if !ok {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	status, err := h.usage.Check(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, status)
}

// Consume handles POST /api/usage/consume. Exhausted quota is reported with
// canUse=false so the client can route the user to the upgrade page.
func (h *UsageHandler) Consume(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(r)
	if !ok {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	result, err := h.usage.Consume(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExhausted) {
			JSON(w, http.StatusForbidden, map[string]interface{}{
				"error":  domain.ErrQuotaExhausted.Message,
				"canUse": false,
			})
			return
		}
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, result)
}
