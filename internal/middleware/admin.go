package middleware

import (
	"net/http"

	"github.com/geoscribe/backend/internal/contextkeys"
	"github.com/geoscribe/backend/internal/handler"
)

// AdminOnly rejects requests whose authenticated role is not admin. It relies
// on Auth having populated the context, so it must sit inside an Auth group.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if role, _ := r.Context().Value(contextkeys.UserRole).(string); role != "admin" {
			handler.JSON(w, http.StatusForbidden, map[string]string{"error": "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
