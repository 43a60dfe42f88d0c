package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/trezcool/campusboard/core/policy"
)

const audience = "campusboard-app"

// Claims represents the authorization claims transmitted via a JWT.
// The Id (jti) names the server-side Session backing the token.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64       `json:"oriat,omitempty"`
	Username     string      `json:"username,omitempty"`
	Role         policy.Role `json:"role"`
}

// Actor returns the verified identity carried by the claims.
func (c *Claims) Actor() policy.Actor {
	return policy.Actor{ID: c.Subject, Role: c.Role}
}

// Session is the server-side record of an issued token.
type Session struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Role      policy.Role `json:"role"`
	IssuedAt  time.Time   `json:"issued_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	RevokedAt time.Time   `json:"revoked_at,omitempty"` // zero while active
}

func (s Session) IsRevoked() bool { return !s.RevokedAt.IsZero() }

// IsActive reports whether the session can still authenticate requests at now.
func (s Session) IsActive(now time.Time) bool {
	return !s.IsRevoked() && now.Before(s.ExpiresAt)
}
