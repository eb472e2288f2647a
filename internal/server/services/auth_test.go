package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/common"
	"github.com/dmitrijs2005/gophfeed/internal/logging"
	"github.com/dmitrijs2005/gophfeed/internal/server/auth"
	"github.com/dmitrijs2005/gophfeed/internal/server/refreshtokens"
	"github.com/dmitrijs2005/gophfeed/internal/server/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

var fastParams = auth.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

type fixture struct {
	svc      *AuthService
	users    *users.MemoryRepository
	registry *refreshtokens.MemoryRegistry
	signer   *auth.Signer
	now      *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Now()
	clock := func() time.Time { return now }

	f := &fixture{
		users:    users.NewMemoryRepository(),
		registry: refreshtokens.NewMemoryRegistry().WithClock(clock),
		signer:   auth.NewSigner("test-secret", 15*time.Minute, 7*24*time.Hour).WithClock(clock),
		now:      &now,
	}
	f.svc = NewAuthService(f.users, f.registry, f.signer, auth.NewArgon2Hasher(fastParams), logging.Nop{})
	return f
}

func (f *fixture) register(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Name: "Alice", Email: email, Password: password})
	require.NoError(t, err)
	return res
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)

	res := f.register(t, "alice@example.org", "secret1")

	assert.Equal(t, MessageRegistered, res.Message)
	assert.Equal(t, "alice@example.org", res.User.Email)
	assert.Equal(t, "Alice", res.User.Name)
	assert.NotEmpty(t, res.User.ID)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	e, err := f.registry.Validate(context.Background(), res.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, e.OwnerID)
	assert.WithinDuration(t, f.now.Add(7*24*time.Hour), e.ExpiresAt, time.Second)

	stored, err := f.users.GetByEmail(context.Background(), "alice@example.org")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice@example.org", "secret1")
	before := f.registry.Len()

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Other", Email: "alice@example.org", Password: "secret2"})
	require.ErrorIs(t, err, common.ErrorValidation)
	require.ErrorIs(t, err, common.ErrEmailTaken)
	assert.Equal(t, before, f.registry.Len(), "no tokens issued")
}

func TestRegister_InvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "", Email: "nope", Password: "123"})
	require.ErrorIs(t, err, common.ErrorValidation)

	var e *common.Error
	require.True(t, errors.As(err, &e))
	assert.Len(t, e.Fields, 3)
}

type failingUsers struct{ users.Repository }

func (failingUsers) Create(context.Context, *users.User) (*users.User, error) { return nil, errBoom{} }
func (failingUsers) GetByEmail(context.Context, string) (*users.User, error)  { return nil, errBoom{} }
func (failingUsers) GetByID(context.Context, string) (*users.User, error)     { return nil, errBoom{} }

func TestRegisterAndLogin_StoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(failingUsers{}, f.registry, f.signer, auth.NewArgon2Hasher(fastParams), logging.Nop{})

	_, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@example.org", Password: "secret1"})
	require.ErrorIs(t, err, common.ErrorInternal)
	assert.Equal(t, "internal error", err.Error())

	_, err = svc.Login(context.Background(), LoginInput{Email: "a@example.org", Password: "secret1"})
	require.ErrorIs(t, err, common.ErrorInternal)
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@example.org", "secret1")

	res, err := f.svc.Login(context.Background(), LoginInput{Email: "alice@example.org", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, MessageLoggedIn, res.Message)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.NotEqual(t, reg.RefreshToken, res.RefreshToken)

	// both sessions stay valid
	_, err = f.registry.Validate(context.Background(), reg.RefreshToken)
	require.NoError(t, err)
	_, err = f.registry.Validate(context.Background(), res.RefreshToken)
	require.NoError(t, err)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice@example.org", "secret1")

	_, errUnknown := f.svc.Login(context.Background(), LoginInput{Email: "ghost@example.org", Password: "secret1"})
	_, errWrong := f.svc.Login(context.Background(), LoginInput{Email: "alice@example.org", Password: "wrong-pass"})

	require.ErrorIs(t, errUnknown, common.ErrorUnauthorized)
	require.ErrorIs(t, errWrong, common.ErrorUnauthorized)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	assert.Equal(t, "invalid credentials", errWrong.Error())
}

func TestRefresh_Success(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@example.org", "secret1")

	access, err := f.svc.Refresh(context.Background(), reg.RefreshToken)
	require.NoError(t, err)

	claims, err := f.signer.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, "alice@example.org", claims.Email)

	_, err = f.registry.Validate(context.Background(), reg.RefreshToken)
	require.NoError(t, err, "refresh token is not rotated")
}

func TestRefresh_Rejections(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@example.org", "secret1")

	_, err := f.svc.Refresh(context.Background(), "")
	require.ErrorIs(t, err, common.ErrRefreshTokenRequired)
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.svc.Refresh(context.Background(), reg.AccessToken)
	require.ErrorIs(t, err, common.ErrRefreshTokenInvalid, "access token has no refresh type")

	forged, _, err := auth.NewSigner("other", time.Minute, time.Hour).RefreshToken(auth.Identity{UserID: reg.User.ID})
	require.NoError(t, err)
	_, err = f.svc.Refresh(context.Background(), forged)
	require.ErrorIs(t, err, common.ErrRefreshTokenInvalid)

	// validly signed but never stored
	unstored, _, err := f.signer.RefreshToken(auth.Identity{UserID: reg.User.ID, Email: reg.User.Email})
	require.NoError(t, err)
	_, err = f.svc.Refresh(context.Background(), unstored)
	require.ErrorIs(t, err, common.ErrRefreshTokenInvalid)
}

func TestRefresh_AfterLogoutFails(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@example.org", "secret1")

	require.NoError(t, f.svc.Logout(context.Background(), reg.RefreshToken))

	_, err := f.svc.Refresh(context.Background(), reg.RefreshToken)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefresh_Expired(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@example.org", "secret1")

	*f.now = f.now.Add(7*24*time.Hour + time.Minute)

	_, err := f.svc.Refresh(context.Background(), reg.RefreshToken)
	require.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}

func TestRefresh_OwnerMissing(t *testing.T) {
	f := newFixture(t)
	id := auth.Identity{UserID: "deleted-user", Email: "gone@example.org"}
	tok, exp, err := f.signer.RefreshToken(id)
	require.NoError(t, err)
	require.NoError(t, f.registry.Store(context.Background(), tok, id.UserID, exp))

	_, err = f.svc.Refresh(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@example.org", "secret1")

	err := f.svc.Logout(context.Background(), "")
	require.ErrorIs(t, err, common.ErrorValidation)

	require.NoError(t, f.svc.Logout(context.Background(), reg.RefreshToken))
	require.NoError(t, f.svc.Logout(context.Background(), reg.RefreshToken), "second logout succeeds")
	require.NoError(t, f.svc.Logout(context.Background(), "never-issued"))
}

func TestLogoutAll(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@example.org", "secret1")
	_, err := f.svc.Login(context.Background(), LoginInput{Email: "alice@example.org", Password: "secret1"})
	require.NoError(t, err)
	other, err := f.svc.Register(context.Background(), RegisterInput{Name: "Bob", Email: "bob@example.org", Password: "secret1"})
	require.NoError(t, err)

	n, err := f.svc.LogoutAll(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.svc.Refresh(context.Background(), other.RefreshToken)
	require.NoError(t, err, "other users keep their sessions")
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@example.org", "secret1")

	me, err := f.svc.Me(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.User, *me)

	_, err = f.svc.Me(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestIssueTokens_ConcurrentLoginsAllValid(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@example.org", "secret1")
	u := &users.User{ID: reg.User.ID, Email: reg.User.Email}

	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pair, err := f.svc.IssueTokens(context.Background(), u)
			if err == nil {
				tokens[i] = pair.RefreshToken
			}
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens {
		require.NotEmpty(t, tok)
		_, err := f.registry.Validate(context.Background(), tok)
		require.NoError(t, err)
	}
	assert.Equal(t, 21, f.registry.Len())
}
