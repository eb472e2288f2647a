package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophfeed/internal/client/api"
	"github.com/dmitrijs2005/gophfeed/internal/client/session"
	"github.com/dmitrijs2005/gophfeed/internal/client/tokens"
	"github.com/dmitrijs2005/gophfeed/internal/logging"
)

type fakeAPI struct {
	regName, regEmail, regPass string
	loginEmail, loginPass      string
	authResp                   *api.AuthResponse
	authErr                    error

	revoked   int
	logoutErr error

	me    *tokens.User
	meErr error

	posts   []api.Post
	post    *api.Post
	postErr error

	lastID    int64
	lastInput api.PostInput
	deleted   []int64
}

func (f *fakeAPI) Register(_ context.Context, name, email, password string) (*api.AuthResponse, error) {
	f.regName, f.regEmail, f.regPass = name, email, password
	return f.authResp, f.authErr
}
func (f *fakeAPI) Login(_ context.Context, email, password string) (*api.AuthResponse, error) {
	f.loginEmail, f.loginPass = email, password
	return f.authResp, f.authErr
}
func (f *fakeAPI) LogoutAll(context.Context) (int, error) { return f.revoked, f.logoutErr }
func (f *fakeAPI) Me(context.Context) (*tokens.User, error) {
	return f.me, f.meErr
}
func (f *fakeAPI) ListPosts(context.Context) ([]api.Post, error) { return f.posts, f.postErr }
func (f *fakeAPI) GetPost(_ context.Context, id int64) (*api.Post, error) {
	f.lastID = id
	return f.post, f.postErr
}
func (f *fakeAPI) CreatePost(_ context.Context, in api.PostInput) (*api.Post, error) {
	f.lastInput = in
	return f.post, f.postErr
}
func (f *fakeAPI) UpdatePost(_ context.Context, id int64, in api.PostInput) (*api.Post, error) {
	f.lastID, f.lastInput = id, in
	return f.post, f.postErr
}
func (f *fakeAPI) DeletePost(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.postErr
}
func (f *fakeAPI) LikePost(_ context.Context, id int64) (*api.Post, error) {
	f.lastID = id
	return f.post, f.postErr
}

type fakeSession struct {
	snap session.Snapshot

	mu   sync.Mutex
	subs []chan session.Snapshot

	loginUser     tokens.User
	loginAccess   string
	loginRefresh  string
	loginRemember bool
	loginErr      error
	logoutCalls   int
	refreshed     *tokens.User
}

func (f *fakeSession) Snapshot() session.Snapshot { return f.snap }
func (f *fakeSession) Subscribe() (<-chan session.Snapshot, func()) {
	ch := make(chan session.Snapshot, 4)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch, func() {}
}
func (f *fakeSession) subscribers() []chan session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chan session.Snapshot(nil), f.subs...)
}
func (f *fakeSession) Login(_ context.Context, user tokens.User, access, refresh string, remember bool) error {
	f.loginUser, f.loginAccess, f.loginRefresh, f.loginRemember = user, access, refresh, remember
	if f.loginErr != nil {
		return f.loginErr
	}
	u := user
	f.snap = session.Snapshot{State: session.StateAuthenticated, User: &u}
	return nil
}
func (f *fakeSession) Logout(context.Context) {
	f.logoutCalls++
	f.snap = session.Snapshot{State: session.StateUnauthenticated}
}
func (f *fakeSession) RefreshUser(_ context.Context, user tokens.User) error {
	u := user
	f.refreshed = &u
	f.snap.User = &u
	return nil
}

func signedIn(u tokens.User) session.Snapshot {
	return session.Snapshot{State: session.StateAuthenticated, User: &u}
}

func newTestApp(t *testing.T, f *fakeAPI, s *fakeSession, input string) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &App{
		logger:  logging.Nop{},
		api:     f,
		session: s,
		reader:  bufio.NewReader(strings.NewReader(input)),
		out:     &out,
	}, &out
}

// stubInputs replaces the interactive prompts. Text answers are consumed in
// order; yes/no questions always get the given answer.
func stubInputs(t *testing.T, answers []string, password string, yes bool) {
	t.Helper()
	origST, origGP, origYN, origML, origID := getSimpleText, getPassword, getYesNo, getMultiline, getID

	next := func() string {
		if len(answers) == 0 {
			return ""
		}
		a := answers[0]
		answers = answers[1:]
		return a
	}
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return next(), nil }
	getMultiline = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return next(), nil }
	getPassword = func(_ io.Writer) ([]byte, error) { return []byte(password), nil }
	getYesNo = func(_ *bufio.Reader, _ string, _ io.Writer) (bool, error) { return yes, nil }
	getID = func(r *bufio.Reader, w io.Writer) (int64, error) {
		return GetID(bufio.NewReader(strings.NewReader(next()+"\n")), w)
	}

	t.Cleanup(func() {
		getSimpleText, getPassword, getYesNo, getMultiline, getID = origST, origGP, origYN, origML, origID
	})
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
