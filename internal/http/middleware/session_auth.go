package middleware

import (
	"net/http"
	"strings"

	"github.com/zapleads/zapleads/internal/accounts"
	"github.com/zapleads/zapleads/internal/tenancy"
)

// SessionAuth verifies the bearer session token and stores the resolved
// tenant id on the request context. Every tenant-scoped handler reads the id
// from context instead of any ambient session state.
func SessionAuth(sessions *accounts.SessionIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			userID, err := sessions.Verify(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := tenancy.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
