// Package auth signs and verifies the HS256 tokens handed out by the user
// endpoints and hashes passwords for the credential store.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/common"
	"github.com/dmitrijs2005/gophfeed/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeRefresh marks refresh tokens. Access tokens carry no type.
const TokenTypeRefresh = "refresh"

// Claims is the payload of both token kinds.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Identity is what a verified access token says about its bearer.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// Signer mints and verifies tokens with a single shared secret.
type Signer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewSigner(secret string, accessTTL, refreshTTL time.Duration) *Signer {
	return &Signer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for both signing and verification.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

func (s *Signer) RefreshTTL() time.Duration { return s.refreshTTL }

// AccessToken returns a short-lived token for the identity.
func (s *Signer) AccessToken(id Identity) (string, time.Time, error) {
	return s.sign(id, "", s.accessTTL)
}

// RefreshToken returns a long-lived token of type "refresh".
// Every call yields a distinct token, even within the same second.
func (s *Signer) RefreshToken(id Identity) (string, time.Time, error) {
	return s.sign(id, TokenTypeRefresh, s.refreshTTL)
}

func (s *Signer) sign(id Identity, typ string, ttl time.Duration) (string, time.Time, error) {
	jti, err := shared.MakeRandHexString(16)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token id: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAccess verifies an access token. Refresh tokens are rejected.
func (s *Signer) ParseAccess(token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Type == TokenTypeRefresh {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token. Signature and expiry problems are
// reported as ErrRefreshTokenInvalid / ErrRefreshTokenExpired.
func (s *Signer) ParseRefresh(token string) (*Claims, error) {
	claims, err := s.parse(token)
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		return nil, common.ErrRefreshTokenExpired
	case err != nil:
		return nil, common.ErrRefreshTokenInvalid
	}
	if claims.Type != TokenTypeRefresh {
		return nil, common.ErrRefreshTokenInvalid
	}
	return claims, nil
}

func (s *Signer) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email}
}
