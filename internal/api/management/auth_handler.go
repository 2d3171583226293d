package management

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/CaioWing/checkpoint/internal/api/middleware"
	"github.com/CaioWing/checkpoint/internal/api/response"
	"github.com/CaioWing/checkpoint/internal/auth"
)

// AuthHandler issues operator tokens for the single configured account.
type AuthHandler struct {
	jwtMgr        *auth.JWTManager
	adminEmail    string
	adminPassHash []byte
}

func NewAuthHandler(jwtMgr *auth.JWTManager, adminEmail, adminPassword string) (*AuthHandler, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &AuthHandler{
		jwtMgr:        jwtMgr,
		adminEmail:    adminEmail,
		adminPassHash: hash,
	}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	passErr := bcrypt.CompareHashAndPassword(h.adminPassHash, []byte(req.Password))
	if req.Email != h.adminEmail || passErr != nil {
		response.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.issue(w, auth.Principal{UserID: "admin", Email: h.adminEmail, Role: auth.RoleOperator})
}

// Refresh issues a new token for an already authenticated operator.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "invalid token")
		return
	}
	h.issue(w, *p)
}

func (h *AuthHandler) issue(w http.ResponseWriter, p auth.Principal) {
	token, expiresAt, err := h.jwtMgr.Generate(p)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	response.JSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}
