package handler

import (
	"log"
	"net/http"

	"github.com/geoscribe/backend/internal/domain"
	"github.com/geoscribe/backend/internal/repository"
	"github.com/geoscribe/backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminHandler exposes operator endpoints: stats, user management, and
// membership grants for arbitrary users.
type AdminHandler struct {
	db      *pgxpool.Pool
	orders  *repository.OrderRepository
	auth    *service.AuthService
	billing *service.BillingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *pgxpool.Pool, orders *repository.OrderRepository, auth *service.AuthService, billing *service.BillingService) *AdminHandler {
	return &AdminHandler{db: db, orders: orders, auth: auth, billing: billing}
}

// GetStats returns system-wide counters.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var usersCount, premiumCount int

	if err := h.db.QueryRow(r.Context(), "SELECT COUNT(*) FROM users").Scan(&usersCount); err != nil {
		log.Printf("failed to count users: %v", err)
	}
	if err := h.db.QueryRow(r.Context(), "SELECT COUNT(*) FROM users WHERE is_premium").Scan(&premiumCount); err != nil {
		log.Printf("failed to count premium users: %v", err)
	}
	pendingOrders, err := h.orders.CountByStatus(r.Context(), domain.OrderPending)
	if err != nil {
		log.Printf("failed to count pending orders: %v", err)
	}
	completedOrders, err := h.orders.CountByStatus(r.Context(), domain.OrderCompleted)
	if err != nil {
		log.Printf("failed to count completed orders: %v", err)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"users":           usersCount,
		"premiumUsers":    premiumCount,
		"pendingOrders":   pendingOrders,
		"completedOrders": completedOrders,
	})
}

// ListUsers returns all users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, users)
}

// DeleteUser handles DELETE /api/admin/users/{id}.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.auth.DeleteUser(r.Context(), id); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UpdateMembership handles POST /api/admin/membership: grants premium to a
// target user for N months.
func (h *AdminHandler) UpdateMembership(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminMembershipRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.billing.Activate(r.Context(), req.UserID, req.Months)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}
