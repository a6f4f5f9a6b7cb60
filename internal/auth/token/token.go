// Package token signs and validates the session cookie. The cookie value is
// an HS256 JWT naming a server-side session; it grants nothing on its own.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
)

const issuer = "estekhdam"

type Claims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (id.UserID, error) {
	n, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	return id.UserID(n), nil
}

type Signer struct {
	signingKey []byte
	now        func() time.Time
}

func NewSigner(signingKey string) *Signer {
	return &Signer{signingKey: []byte(signingKey), now: time.Now}
}

func (s *Signer) Issue(sessionID id.SessionID, userID id.UserID, role id.Role, expiresAt time.Time) (string, error) {
	now := s.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sessionID.String(),
		Role:      string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})
	signed, err := t.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session token")
	}
	return signed, nil
}

func (s *Signer) Validate(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	return claims, nil
}

// ParsedSessionID parses the sid claim.
func (c *Claims) ParsedSessionID() (id.SessionID, error) {
	sid, err := id.ParseSessionID(c.SessionID)
	if err != nil {
		return id.SessionID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	return sid, nil
}
