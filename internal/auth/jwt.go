package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "checkpoint"

var ErrInvalidPrincipal = errors.New("invalid principal")

type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// OperatorClaims carries the principal in the token. The user id travels as
// the registered subject.
type OperatorClaims struct {
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

func (c *OperatorClaims) Principal() *Principal {
	return &Principal{UserID: c.Subject, Email: c.Email, Role: c.Role}
}

func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Generate signs a token for p. The token expires after the manager's expiry.
func (m *JWTManager) Generate(p Principal) (string, time.Time, error) {
	if err := p.validate(); err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	expiresAt := now.Add(m.expiry)
	claims := OperatorClaims{
		Email: p.Email,
		Role:  p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses an HS256 token from this issuer and checks that it names a
// principal with a known role.
func (m *JWTManager) Validate(tokenStr string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse jwt: %w", err)
	}

	if err := claims.Principal().validate(); err != nil {
		return nil, err
	}
	return claims, nil
}
