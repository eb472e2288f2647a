// Package tokens keeps the client's access and refresh tokens in one of two
// storage tiers and answers questions about their expiry.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/client/storage"
)

// Keys used in each tier.
const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
	KeyRememberMe   = "rememberMe"
)

// ErrNotStored is returned when no tier holds the refresh token being updated,
// typically because the session was cleared in the meantime.
var ErrNotStored = errors.New("refresh token not stored")

// Pair is what GetStoredTokens returns. Either field may be empty.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// User is the cached snapshot of the signed-in user.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Manager picks the durable tier when "remember me" is on and the session
// tier otherwise. The preference itself is always kept in the durable tier.
type Manager struct {
	durable storage.Tier
	session storage.Tier
	now     func() time.Time
}

func NewManager(durable, session storage.Tier) *Manager {
	return &Manager{durable: durable, session: session, now: time.Now}
}

func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// RememberMe reports the stored preference. Anything but "true" is false.
func (m *Manager) RememberMe(ctx context.Context) (bool, error) {
	v, err := m.durable.Get(ctx, KeyRememberMe)
	if err != nil {
		return false, err
	}
	return string(v) == "true", nil
}

func (m *Manager) SetRememberMe(ctx context.Context, remember bool) error {
	return m.durable.Set(ctx, KeyRememberMe, []byte(fmt.Sprint(remember)))
}

func (m *Manager) tier(ctx context.Context) (storage.Tier, error) {
	remember, err := m.RememberMe(ctx)
	if err != nil {
		return nil, err
	}
	if remember {
		return m.durable, nil
	}
	return m.session, nil
}

// StoreTokens writes both tokens to the selected tier only. A non-nil
// remember updates the preference first.
func (m *Manager) StoreTokens(ctx context.Context, access, refresh string, remember *bool) error {
	if remember != nil {
		if err := m.SetRememberMe(ctx, *remember); err != nil {
			return fmt.Errorf("store preference: %w", err)
		}
	}

	t, err := m.tier(ctx)
	if err != nil {
		return err
	}
	return t.SetMany(ctx, map[string][]byte{
		KeyAccessToken:  []byte(access),
		KeyRefreshToken: []byte(refresh),
	})
}

// UpdateAccessToken replaces the access token next to refresh, in whichever
// tier holds it. The preference is not consulted: another process may have
// changed it since the tokens were stored.
func (m *Manager) UpdateAccessToken(ctx context.Context, refresh, access string) error {
	if refresh == "" {
		return ErrNotStored
	}
	t, err := m.holder(ctx, refresh)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrNotStored
	}
	return t.Set(ctx, KeyAccessToken, []byte(access))
}

// holder returns the first tier, durable before session, whose refresh token
// equals refresh, or any non-empty one when refresh is "". It returns nil
// when no tier matches.
func (m *Manager) holder(ctx context.Context, refresh string) (storage.Tier, error) {
	for _, t := range []storage.Tier{m.durable, m.session} {
		r, err := t.Get(ctx, KeyRefreshToken)
		if err != nil {
			return nil, err
		}
		if len(r) > 0 && (refresh == "" || string(r) == refresh) {
			return t, nil
		}
	}
	return nil, nil
}

// GetStoredTokens reads the durable tier and falls back to the session tier
// when either token is missing there.
func (m *Manager) GetStoredTokens(ctx context.Context) (Pair, error) {
	p, err := readPair(ctx, m.durable)
	if err != nil {
		return Pair{}, err
	}
	if p.AccessToken != "" && p.RefreshToken != "" {
		return p, nil
	}
	return readPair(ctx, m.session)
}

func readPair(ctx context.Context, t storage.Tier) (Pair, error) {
	a, err := t.Get(ctx, KeyAccessToken)
	if err != nil {
		return Pair{}, err
	}
	r, err := t.Get(ctx, KeyRefreshToken)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: string(a), RefreshToken: string(r)}, nil
}

// ClearTokens removes tokens and the user snapshot from both tiers.
func (m *Manager) ClearTokens(ctx context.Context) error {
	for _, t := range []storage.Tier{m.durable, m.session} {
		if err := t.DeleteMany(ctx, KeyAccessToken, KeyRefreshToken, KeyUser); err != nil {
			return fmt.Errorf("clear tokens: %w", err)
		}
	}
	return nil
}

// StoreUser caches u in the tier the tokens live in, falling back to the
// preferred tier when there are none.
func (m *Manager) StoreUser(ctx context.Context, u User) error {
	t, err := m.holder(ctx, "")
	if err != nil {
		return err
	}
	if t == nil {
		if t, err = m.tier(ctx); err != nil {
			return err
		}
	}
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return t.Set(ctx, KeyUser, b)
}

// GetUser returns the cached snapshot, or nil when there is none or it
// cannot be decoded.
func (m *Manager) GetUser(ctx context.Context) (*User, error) {
	for _, t := range []storage.Tier{m.durable, m.session} {
		b, err := t.Get(ctx, KeyUser)
		if err != nil {
			return nil, err
		}
		if len(b) == 0 {
			continue
		}
		var u User
		if err := json.Unmarshal(b, &u); err != nil {
			continue
		}
		return &u, nil
	}
	return nil, nil
}
