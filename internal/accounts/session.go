package accounts

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionIssuer mints and verifies HMAC-signed session tokens. The token
// subject is the tenant's user id.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionIssuer builds an issuer; ttl falls back to 24h.
func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed session token for the user.
func (s *SessionIssuer) Issue(userID string) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("accounts: session secret not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses a session token and returns the user id it carries.
func (s *SessionIssuer) Verify(tokenString string) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("accounts: session secret not configured")
	}
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidCredentials
	}
	if claims.Subject == "" {
		return "", ErrInvalidCredentials
	}
	return claims.Subject, nil
}
