// Package middleware provides HTTP middleware for the status API.
package middleware

import (
	"net/http"

	"github.com/samber/lo"
)

// CORS returns middleware that lets the listed browser origins read the
// status API. "*" allows any origin. Only GET and preflight requests pass.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	anyOrigin := lo.Contains(allowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (anyOrigin || lo.Contains(allowedOrigins, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Add("Vary", "Origin")
			}

			switch r.Method {
			case http.MethodOptions:
				w.WriteHeader(http.StatusNoContent)
				return
			case http.MethodGet, http.MethodHead:
				next.ServeHTTP(w, r)
			default:
				w.Header().Set("Allow", "GET, OPTIONS")
				http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			}
		})
	}
}
