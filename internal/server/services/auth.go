// Package services contains server-side business logic. AuthService handles
// registration, login, access token refresh and logout on top of the
// credential store and the refresh token registry.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophfeed/internal/common"
	"github.com/dmitrijs2005/gophfeed/internal/logging"
	"github.com/dmitrijs2005/gophfeed/internal/server/auth"
	"github.com/dmitrijs2005/gophfeed/internal/server/refreshtokens"
	"github.com/dmitrijs2005/gophfeed/internal/server/users"
	"github.com/dmitrijs2005/gophfeed/internal/server/validation"
	"github.com/google/uuid"
)

const (
	MessageRegistered = "registration successful"
	MessageLoggedIn   = "login successful"
	MessageLoggedOut  = "logout successful"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Message string       `json:"message"`
	User    users.Public `json:"user"`
	TokenPair
}

type AuthService struct {
	users    users.Repository
	registry refreshtokens.Registry
	signer   *auth.Signer
	hasher   auth.PasswordHasher
	logger   logging.Logger
	newID    func() string
}

func NewAuthService(u users.Repository, r refreshtokens.Registry, s *auth.Signer, h auth.PasswordHasher, l logging.Logger) *AuthService {
	return &AuthService{
		users:    u,
		registry: r,
		signer:   s,
		hasher:   h,
		logger:   l.With("module", "auth_service"),
		newID:    uuid.NewString,
	}
}

// Register creates the user and signs them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, common.Internal(err)
	}

	user, err := s.users.Create(ctx, &users.User{
		ID:           s.newID(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.Validation(common.ErrEmailTaken, "")
		}
		s.logger.Error(ctx, "create user failed", "error", err)
		return nil, common.Internal(err)
	}

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return &AuthResult{Message: MessageRegistered, User: user.Public(), TokenPair: *pair}, nil
}

// Login checks credentials. Unknown email and wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Auth(common.ErrInvalidCredentials, "")
		}
		s.logger.Error(ctx, "lookup user failed", "error", err)
		return nil, common.Internal(err)
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		s.logger.Warn(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
	}
	if !ok {
		return nil, common.Auth(common.ErrInvalidCredentials, "")
	}

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &AuthResult{Message: MessageLoggedIn, User: user.Public(), TokenPair: *pair}, nil
}

// IssueTokens signs a pair and records the refresh token in the registry.
func (s *AuthService) IssueTokens(ctx context.Context, user *users.User) (*TokenPair, error) {
	id := auth.Identity{UserID: user.ID, Email: user.Email}

	access, _, err := s.signer.AccessToken(id)
	if err != nil {
		return nil, common.Internal(err)
	}
	refresh, expiresAt, err := s.signer.RefreshToken(id)
	if err != nil {
		return nil, common.Internal(err)
	}
	if err := s.registry.Store(ctx, refresh, user.ID, expiresAt); err != nil {
		return nil, common.Internal(err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token itself is left as is.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", common.Auth(common.ErrRefreshTokenRequired, "")
	}

	claims, err := s.signer.ParseRefresh(refreshToken)
	if err != nil {
		return "", common.Auth(err, "")
	}

	entry, err := s.registry.Validate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.Auth(common.ErrRefreshTokenInvalid, "")
		}
		return "", common.Internal(err)
	}
	if entry.OwnerID != claims.UserID {
		return "", common.Auth(common.ErrRefreshTokenInvalid, "")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.Auth(common.ErrRefreshTokenInvalid, "")
		}
		return "", common.Internal(err)
	}

	access, _, err := s.signer.AccessToken(auth.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return "", common.Internal(err)
	}

	s.logger.Debug(ctx, "access token refreshed", "user_id", user.ID)
	return access, nil
}

// Logout revokes the refresh token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return common.Validation(common.ErrRefreshTokenRequired, "")
	}
	if err := s.registry.Revoke(ctx, refreshToken); err != nil {
		return common.Internal(err)
	}
	return nil
}

// LogoutAll revokes every refresh token of the user and reports how many there were.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int, error) {
	n, err := s.registry.RevokeAllForOwner(ctx, userID)
	if err != nil {
		return 0, common.Internal(err)
	}
	s.logger.Info(ctx, "revoked all sessions", "user_id", userID, "count", n)
	return n, nil
}

// Me returns the profile of an authenticated caller.
func (s *AuthService) Me(ctx context.Context, userID string) (*users.Public, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(err, "user not found")
		}
		return nil, common.Internal(err)
	}
	p := user.Public()
	return &p, nil
}
