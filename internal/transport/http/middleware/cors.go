package middleware

import (
	"net/http"
)

// ShareCORS implements the share gate's origin policy: only origins on the
// allow-list get themselves echoed back; anything else receives the primary
// production origin (the first list entry), never a wildcard. OPTIONS
// preflights are answered directly with an empty body and the same headers.
//
// go-chi/cors cannot express the fallback-to-primary behaviour, hence the
// hand-rolled handler.
func ShareCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	primary := ""
	if len(allowedOrigins) > 0 {
		primary = allowedOrigins[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowOrigin := primary
			if origin != "" && allowed[origin] {
				allowOrigin = origin
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
