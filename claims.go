package onboarding

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims are the access token claims. Roles and resource roles
// are a snapshot fixed at issuance: later role changes do not affect
// tokens already in the wild.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID       string            `json:"uid,omitempty"`
	UserRole  string            `json:"role,omitempty"`
	Roles     []string          `json:"roles,omitempty"`
	Resources map[string]string `json:"res,omitempty"`
}

// AccountID returns the account the token was issued for.
func (c *SessionClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// HasRole checks the snapshot for a role, global or resource-scoped.
func (c *SessionClaims) HasRole(role string) bool {
	if c.UserRole == role {
		return true
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	for _, r := range c.Resources {
		if r == role {
			return true
		}
	}
	return false
}

// ResourceRole returns the role snapshot scoped to one resource.
func (c *SessionClaims) ResourceRole(resource string) (string, bool) {
	role, ok := c.Resources[resource]
	return role, ok
}

// Expires returns the expiration time, zero when unset.
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
