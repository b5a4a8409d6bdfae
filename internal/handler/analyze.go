package handler

import (
	"errors"
	"net/http"

	"github.com/geoscribe/backend/internal/domain"
	"github.com/geoscribe/backend/internal/service"
	"github.com/geoscribe/backend/pkg/analyzer"
)

// AnalyzeHandler is the metered feature: content analysis behind the quota
// gate. Quota is consumed on admission, before the upstream call.
type AnalyzeHandler struct {
	usage    *service.UsageService
	analyzer analyzer.Client
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(usage *service.UsageService, client analyzer.Client) *AnalyzeHandler {
	return &AnalyzeHandler{usage: usage, analyzer: client}
}

type analyzeResponse struct {
	*analyzer.Result
	IsPremium      bool `json:"isPremium"`
	RemainingCount int  `json:"remainingCount"`
}

// Analyze handles POST /api/analyze.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(r)
	if !ok {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req analyzer.Request
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	consumed, err := h.usage.Consume(r.Context(), userID)
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

	result, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		Error(w, domain.ErrInternal("content analysis failed", err))
		return
	}

	JSON(w, http.StatusOK, analyzeResponse{
		Result:         result,
		IsPremium:      consumed.IsPremium,
		RemainingCount: consumed.RemainingCount,
	})
}
