package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/geoscribe/backend/internal/handler"
)

// Recovery turns handler panics into 500 responses. http.ErrAbortHandler is
// re-raised so aborted responses keep their net/http semantics.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Printf("panic on %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
			handler.JSON(w, http.StatusInternalServerError, map[string]string{
				"error": "internal server error",
			})
		}()
		next.ServeHTTP(w, r)
	})
}
