package catalog

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"Storefront/pkg/kit"
)

// RequireWriter admits requests whose bearer token matches the bcrypt hash.
// With an empty hash every write is refused.
func RequireWriter(hash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hash) == 0 {
				kit.WriteError(w, r, http.StatusForbidden, "writes disabled", nil)
				return
			}

			tok, ok := kit.BearerToken(r)
			if !ok {
				kit.WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
				return
			}
			if err := bcrypt.CompareHashAndPassword(hash, []byte(tok)); err != nil {
				kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
