package auth

import (
	"fmt"
	"net/http"
	"strings"
)

type Role string

const RoleOperator Role = "operator"

func (r Role) Valid() bool {
	return r == RoleOperator
}

// Principal is the authenticated caller of the API.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// HasRole reports whether p holds one of roles. No roles means any role.
func (p *Principal) HasRole(roles ...Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

func (p *Principal) validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidPrincipal)
	}
	if !p.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidPrincipal, p.Role)
	}
	return nil
}

// Authenticator resolves request metadata to a principal. It returns nil
// when the request carries no valid credentials.
type Authenticator func(r *http.Request) *Principal

// BearerAuthenticator accepts operator JWTs from the Authorization header.
func BearerAuthenticator(m *JWTManager) Authenticator {
	return func(r *http.Request) *Principal {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return nil
		}
		claims, err := m.Validate(token)
		if err != nil {
			return nil
		}
		return claims.Principal()
	}
}
