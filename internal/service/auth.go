package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/healis/realtime-service/internal/domain/model"
)

// Credential verification failure classes. All three are terminal for
// the connection: it is dropped without ever being registered.
var (
	ErrMissingCredential = errors.New("auth: missing credential")
	ErrInvalidCredential = errors.New("auth: invalid credential")
	ErrExpiredCredential = errors.New("auth: expired credential")
)

// AuthenticationError wraps a verification failure for transport
// handlers that surface a reason before closing the socket.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// StaffClaims is the token payload issued by the platform's identity
// service. Verification here is a pure function of the token and the
// shared secret.
type StaffClaims struct {
	Role       string `json:"role"`
	Department string `json:"department"`
	jwt.RegisteredClaims
}

// AuthGate verifies a connection's bearer credential before admission.
type AuthGate struct {
	secret []byte
}

func NewAuthGate(secret string) *AuthGate {
	return &AuthGate{secret: []byte(secret)}
}

// Admit verifies the presented token and returns the staff identity, or
// an AuthenticationError. No side effects: registration is the caller's
// job, and only after Admit succeeds.
func (g *AuthGate) Admit(rawCredential string) (model.Identity, error) {
	raw := strings.TrimSpace(rawCredential)
	if raw == "" {
		return model.Identity{}, &AuthenticationError{Err: ErrMissingCredential}
	}

	parsed, err := jwt.ParseWithClaims(raw, &StaffClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, &AuthenticationError{Err: ErrExpiredCredential}
		}
		return model.Identity{}, &AuthenticationError{Err: ErrInvalidCredential}
	}

	claims, ok := parsed.Claims.(*StaffClaims)
	if !ok || !parsed.Valid {
		return model.Identity{}, &AuthenticationError{Err: ErrInvalidCredential}
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.Role == "" {
		return model.Identity{}, &AuthenticationError{Err: ErrInvalidCredential}
	}

	return model.Identity{
		UserID:     claims.Subject,
		Role:       claims.Role,
		Department: claims.Department,
	}, nil
}

// IssueToken signs a staff credential. Token issuance is owned by the
// platform's identity service; this helper exists for tests and local
// development.
func (g *AuthGate) IssueToken(identity model.Identity, ttl time.Duration) (string, error) {
	claims := StaffClaims{
		Role:       identity.Role,
		Department: identity.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}
