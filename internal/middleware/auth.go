package middleware

import (
	"net/http"
	"strings"
)

// AuthMiddleware checks that the user is logged in (cookie authenticated=true).
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// The login page, its form endpoint, camera ingest and static assets are public.
		if r.URL.Path == "/login" ||
			r.URL.Path == "/auth/login" ||
			strings.HasPrefix(r.URL.Path, "/static/") ||
			strings.HasPrefix(r.URL.Path, "/camera") {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie("authenticated")
		if err != nil || cookie.Value != "true" {
			// API and AJAX callers get 401, browsers are redirected.
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
