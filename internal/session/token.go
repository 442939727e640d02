// Package session issues and validates the bearer tokens that identify an
// authenticated first-factor session to this service.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// Claims carries the session identity inside a signed token. Groups feed the
// authorization subject; the session ID scopes all ceremony state.
type Claims struct {
	UserID    string   `json:"user_id"`
	SessionID string   `json:"session_id"`
	Groups    []string `json:"groups,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and validates session tokens with a symmetric key.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewService(signingKey, issuer string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
	}
}

// Issue creates a signed token for an established first-factor session.
func (s *Service) Issue(userID, sessionID string, groups []string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		SessionID: sessionID,
		Groups:    groups,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign session token")
	}
	return token, nil
}

// ValidateToken parses and verifies a session token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeNotAuthenticated, "session token expired")
		}
		return nil, dErrors.New(dErrors.CodeNotAuthenticated, "invalid session token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeNotAuthenticated, "invalid session token")
	}

	if claims.Issuer != s.issuer {
		return nil, dErrors.New(dErrors.CodeNotAuthenticated, "invalid token issuer")
	}

	if claims.SessionID == "" || claims.UserID == "" {
		return nil, dErrors.New(dErrors.CodeNotAuthenticated, "incomplete session claims")
	}

	return claims, nil
}
