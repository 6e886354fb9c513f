package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/share-gate-api/internal/infrastructure/jwt"
)

type ctxKey int

const grantClaimsKey ctxKey = iota

// Grant authenticates shared-resource requests with the token issued at OTP
// verification. The signature and expiry check here is the authoritative
// access decision; the client's cached proof is UX only.
func Grant(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "Adgang kræver bekræftelse")
				return
			}
			claims, err := provider.Verify(token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "Adgang kræver bekræftelse")
				return
			}
			ctx := context.WithValue(r.Context(), grantClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GrantFromContext returns the verified grant claims set by Grant.
func GrantFromContext(ctx context.Context) (*jwtinfra.GrantClaims, bool) {
	claims, ok := ctx.Value(grantClaimsKey).(*jwtinfra.GrantClaims)
	return claims, ok
}
