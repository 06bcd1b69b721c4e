package middleware

import (
	"net/http"

	"github.com/andrewpaige1/stratdesk-api/config"
	"github.com/andrewpaige1/stratdesk-api/utils"
)

// RequireAdmin only lets configured admin subjects through. It must run
// after token validation.
func RequireAdmin(cfg config.Config) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			auth0ID, ok := utils.GetAuth0ID(r)
			if !ok {
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !cfg.IsAdmin(auth0ID) {
				utils.WriteError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}
