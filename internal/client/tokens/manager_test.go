package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/client/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() (*Manager, *storage.MemoryTier, *storage.MemoryTier) {
	d, s := storage.NewMemoryTier(), storage.NewMemoryTier()
	return NewManager(d, s), d, s
}

func boolPtr(b bool) *bool { return &b }

func TestStoreTokens_RememberUsesDurableTier(t *testing.T) {
	m, durable, session := newManager()
	ctx := context.Background()

	require.NoError(t, session.Set(ctx, KeyAccessToken, []byte("session-a")))
	require.NoError(t, session.Set(ctx, KeyRefreshToken, []byte("session-r")))

	require.NoError(t, m.StoreTokens(ctx, "a", "r", boolPtr(true)))

	got, err := m.GetStoredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, Pair{AccessToken: "a", RefreshToken: "r"}, got)

	v, _ := durable.Get(ctx, KeyRememberMe)
	assert.Equal(t, "true", string(v))
	v, _ = session.Get(ctx, KeyAccessToken)
	assert.Equal(t, "session-a", string(v), "other tier untouched")
}

func TestStoreTokens_NoRememberUsesSessionTier(t *testing.T) {
	m, durable, session := newManager()
	ctx := context.Background()

	require.NoError(t, m.StoreTokens(ctx, "a", "r", boolPtr(false)))

	v, _ := durable.Get(ctx, KeyAccessToken)
	assert.Nil(t, v)
	v, _ = session.Get(ctx, KeyAccessToken)
	assert.Equal(t, "a", string(v))

	got, err := m.GetStoredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, Pair{AccessToken: "a", RefreshToken: "r"}, got)
}

func TestStoreTokens_NilKeepsPreference(t *testing.T) {
	m, durable, _ := newManager()
	ctx := context.Background()

	require.NoError(t, m.StoreTokens(ctx, "a", "r", boolPtr(true)))
	require.NoError(t, m.StoreTokens(ctx, "a2", "r", nil))

	v, _ := durable.Get(ctx, KeyAccessToken)
	assert.Equal(t, "a2", string(v))

	remember, err := m.RememberMe(ctx)
	require.NoError(t, err)
	assert.True(t, remember)
}

func TestGetStoredTokens_FallsBackWhenDurableIncomplete(t *testing.T) {
	m, durable, session := newManager()
	ctx := context.Background()

	require.NoError(t, durable.Set(ctx, KeyAccessToken, []byte("only-access")))
	require.NoError(t, session.SetMany(ctx, map[string][]byte{
		KeyAccessToken:  []byte("sa"),
		KeyRefreshToken: []byte("sr"),
	}))

	got, err := m.GetStoredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, Pair{AccessToken: "sa", RefreshToken: "sr"}, got)
}

func TestGetStoredTokens_Empty(t *testing.T) {
	m, _, _ := newManager()

	got, err := m.GetStoredTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Pair{}, got)
}

func TestClearTokens_EmptiesBothTiers(t *testing.T) {
	m, durable, session := newManager()
	ctx := context.Background()

	require.NoError(t, m.StoreTokens(ctx, "a", "r", boolPtr(true)))
	require.NoError(t, m.StoreUser(ctx, User{ID: "u1"}))
	require.NoError(t, session.SetMany(ctx, map[string][]byte{KeyAccessToken: []byte("x"), KeyUser: []byte("{}")}))

	require.NoError(t, m.ClearTokens(ctx))
	require.NoError(t, m.ClearTokens(ctx))

	got, err := m.GetStoredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, Pair{}, got)

	u, err := m.GetUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	for _, tier := range []*storage.MemoryTier{durable, session} {
		all, _ := tier.List(ctx)
		assert.NotContains(t, all, KeyAccessToken)
		assert.NotContains(t, all, KeyUser)
	}
	remember, _ := m.RememberMe(ctx)
	assert.True(t, remember, "preference survives clear")
}

func TestUserSnapshot(t *testing.T) {
	m, _, session := newManager()
	ctx := context.Background()

	u := User{ID: "u1", Name: "Alice", Email: "alice@example.org", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, m.StoreUser(ctx, u))

	got, err := m.GetUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u, *got)

	raw, _ := session.Get(ctx, KeyUser)
	assert.NotEmpty(t, raw, "preference off keeps the snapshot in the session tier")

	require.NoError(t, session.Set(ctx, KeyUser, []byte("{broken")))
	got, err = m.GetUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateAccessToken_WritesToOwningTier(t *testing.T) {
	durable := storage.NewMemoryTier()
	mine := NewManager(durable, storage.NewMemoryTier())
	other := NewManager(durable, storage.NewMemoryTier())
	ctx := context.Background()

	require.NoError(t, mine.StoreTokens(ctx, "a1", "r1", boolPtr(true)))
	require.NoError(t, other.SetRememberMe(ctx, false))

	require.NoError(t, mine.UpdateAccessToken(ctx, "r1", "a2"))

	got, err := mine.GetStoredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, Pair{AccessToken: "a2", RefreshToken: "r1"}, got)

	v, _ := durable.Get(ctx, KeyAccessToken)
	assert.Equal(t, "a2", string(v))
}

func TestUpdateAccessToken_MatchesRefreshToken(t *testing.T) {
	m, durable, session := newManager()
	ctx := context.Background()

	require.NoError(t, durable.Set(ctx, KeyRefreshToken, []byte("stale-r")))
	require.NoError(t, session.SetMany(ctx, map[string][]byte{
		KeyAccessToken:  []byte("sa"),
		KeyRefreshToken: []byte("sr"),
	}))

	require.NoError(t, m.UpdateAccessToken(ctx, "sr", "sa2"))

	v, _ := session.Get(ctx, KeyAccessToken)
	assert.Equal(t, "sa2", string(v))
	v, _ = durable.Get(ctx, KeyAccessToken)
	assert.Nil(t, v)
}

func TestUpdateAccessToken_NotStored(t *testing.T) {
	m, _, _ := newManager()
	ctx := context.Background()

	require.ErrorIs(t, m.UpdateAccessToken(ctx, "r1", "a2"), ErrNotStored)
	require.ErrorIs(t, m.UpdateAccessToken(ctx, "", "a2"), ErrNotStored)

	got, err := m.GetStoredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, Pair{}, got)
}

func TestStoreUser_FollowsTokensNotPreference(t *testing.T) {
	m, durable, session := newManager()
	ctx := context.Background()

	require.NoError(t, m.StoreTokens(ctx, "a", "r", boolPtr(true)))
	// preference flipped by another process after sign-in
	require.NoError(t, m.SetRememberMe(ctx, false))

	require.NoError(t, m.StoreUser(ctx, User{ID: "u1"}))

	raw, _ := durable.Get(ctx, KeyUser)
	assert.NotEmpty(t, raw)
	raw, _ = session.Get(ctx, KeyUser)
	assert.Empty(t, raw)
}

func sign(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: "u1",
		Email:  "alice@example.org",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("whatever"))
	require.NoError(t, err)
	return s
}

func TestIntrospection(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m, _, _ := newManager()
	m.WithClock(func() time.Time { return now })

	fresh := sign(t, now.Add(time.Hour))
	near := sign(t, now.Add(2*time.Minute))
	expired := sign(t, now.Add(-time.Second))

	tests := []struct {
		name          string
		token         string
		expired       bool
		shouldRefresh bool
		remaining     time.Duration
	}{
		{"fresh", fresh, false, false, time.Hour},
		{"near expiry", near, false, true, 2 * time.Minute},
		{"expired", expired, true, true, 0},
		{"empty", "", true, true, 0},
		{"garbage", "not.a.jwt", true, true, 0},
		{"two segments", "abc.def", true, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, m.IsExpired(tt.token))
			assert.Equal(t, tt.shouldRefresh, m.ShouldRefresh(tt.token))
			assert.Equal(t, tt.remaining, m.TimeUntilExpiration(tt.token))
		})
	}
}

func TestDecode(t *testing.T) {
	tok := sign(t, time.Now().Add(time.Hour))

	c := Decode(tok)
	require.NotNil(t, c)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, "alice@example.org", c.Email)

	assert.Nil(t, Decode("a.b.c"))
}

func TestDecode_IgnoresSignature(t *testing.T) {
	tok := sign(t, time.Now().Add(time.Hour))
	tampered := tok[:len(tok)-4] + "AAAA"

	require.NotNil(t, Decode(tampered))
}
