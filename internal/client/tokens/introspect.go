package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshWindow is how close to expiry a token must be for ShouldRefresh.
const RefreshWindow = 5 * time.Minute

// Claims is the part of the payload the client looks at.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

// Decode reads the payload without checking the signature; the client has
// no key to check it with. It returns nil for anything unreadable.
func Decode(token string) *Claims {
	if token == "" {
		return nil
	}
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

func (m *Manager) expiry(token string) (time.Time, bool) {
	c := Decode(token)
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

// IsExpired is true for expired or undecodable tokens.
func (m *Manager) IsExpired(token string) bool {
	exp, ok := m.expiry(token)
	return !ok || exp.Before(m.now())
}

// ShouldRefresh is true when less than RefreshWindow remains, or the token
// cannot be decoded.
func (m *Manager) ShouldRefresh(token string) bool {
	exp, ok := m.expiry(token)
	return !ok || exp.Sub(m.now()) < RefreshWindow
}

// TimeUntilExpiration never goes below zero.
func (m *Manager) TimeUntilExpiration(token string) time.Duration {
	exp, ok := m.expiry(token)
	if !ok {
		return 0
	}
	return max(0, exp.Sub(m.now()))
}
