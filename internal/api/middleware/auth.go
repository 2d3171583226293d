package middleware

import (
	"context"
	"net/http"

	"github.com/CaioWing/checkpoint/internal/api/response"
	"github.com/CaioWing/checkpoint/internal/auth"
)

type contextKey string

const principalKey contextKey = "principal"

// RequirePrincipal rejects requests the authenticator cannot resolve, and
// principals holding none of roles, and stores the principal on the request
// context otherwise. No roles admits any authenticated principal.
func RequirePrincipal(authn auth.Authenticator, roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := authn(r)
			if p == nil {
				response.Error(w, http.StatusUnauthorized, "invalid or missing credentials")
				return
			}
			if !p.HasRole(roles...) {
				response.Error(w, http.StatusForbidden, "insufficient role")
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func PrincipalFrom(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*auth.Principal)
	return p, ok && p != nil
}
