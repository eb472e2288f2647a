package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/client/api"
	"github.com/dmitrijs2005/gophfeed/internal/client/broadcast"
	"github.com/dmitrijs2005/gophfeed/internal/client/client"
	"github.com/dmitrijs2005/gophfeed/internal/client/config"
	"github.com/dmitrijs2005/gophfeed/internal/client/gateway"
	"github.com/dmitrijs2005/gophfeed/internal/client/session"
	"github.com/dmitrijs2005/gophfeed/internal/client/storage"
	"github.com/dmitrijs2005/gophfeed/internal/client/tokens"
	"github.com/dmitrijs2005/gophfeed/internal/filex"
	"github.com/dmitrijs2005/gophfeed/internal/logging"
	"github.com/google/uuid"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// feedAPI is the part of api.Client the commands use.
type feedAPI interface {
	Register(ctx context.Context, name, email, password string) (*api.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	LogoutAll(ctx context.Context) (int, error)
	Me(ctx context.Context) (*tokens.User, error)
	ListPosts(ctx context.Context) ([]api.Post, error)
	GetPost(ctx context.Context, id int64) (*api.Post, error)
	CreatePost(ctx context.Context, in api.PostInput) (*api.Post, error)
	UpdatePost(ctx context.Context, id int64, in api.PostInput) (*api.Post, error)
	DeletePost(ctx context.Context, id int64) error
	LikePost(ctx context.Context, id int64) (*api.Post, error)
}

// sessionStore is the part of session.Store the commands use.
type sessionStore interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
	Login(ctx context.Context, user tokens.User, access, refresh string, remember bool) error
	Logout(ctx context.Context)
	RefreshUser(ctx context.Context, user tokens.User) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	api     feedAPI
	session sessionStore
	pinger  client.Pinger
	reader  *bufio.Reader
	out     io.Writer

	// background loops started by Run
	store   *session.Store
	gateway *gateway.Gateway
	closers []io.Closer

	mu   sync.Mutex
	mode Mode
	// known is the session state the user has already been told about
	known session.State
}

// NewApp wires storage, the cross-process bus, the request gateway and the
// session store for c.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	dataDir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	durable, err := storage.OpenSQLiteTier(ctx, filepath.Join(dataDir, "session.db"))
	if err != nil {
		l.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	bus, err := broadcast.NewFileBus(filepath.Join(dataDir, "broadcast"), l)
	if err != nil {
		_ = durable.Close()
		return nil, err
	}

	health, err := client.NewHealthClient(c.HealthAddr)
	if err != nil {
		_ = durable.Close()
		return nil, err
	}

	origin := uuid.NewString()
	httpClient := &http.Client{Timeout: c.RequestTimeout}
	tm := tokens.NewManager(durable, storage.NewMemoryTier())

	gw := gateway.New(c.ServerURL, httpClient, tm, bus, origin, l)
	apiClient := api.New(c.ServerURL, httpClient, gw)
	store := session.New(tm, apiClient, bus, origin, l)
	gw.OnExpired = store.Expire

	return &App{
		config:  c,
		logger:  l.With("module", "cli"),
		api:     apiClient,
		session: store,
		pinger:  health,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		store:   store,
		gateway: gw,
		closers: []io.Closer{health, durable},
		mode:    ModeOffline,
	}, nil
}

// Run restores the session, starts the background watchers and blocks in the
// REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.store.Load(ctx); err != nil {
		a.logger.Warn(ctx, "restore session failed", "error", err)
	}

	go func() {
		if err := a.store.Listen(ctx); err != nil {
			a.logger.Error(ctx, "session listener stopped", "error", err)
		}
	}()
	go a.watchSession(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	go a.StartRefreshWatcher(ctx, a.config.RefreshCheckInterval)

	fmt.Fprintln(a.out, "Welcome to gophfeed CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.Snapshot().State == session.StateAuthenticated
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "switched mode", "mode", mode)
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

func (a *App) getStatus() string {
	s := ""
	snap := a.session.Snapshot()
	if snap.State == session.StateAuthenticated && snap.User != nil {
		s = snap.User.Email + " "
	}
	if m := a.Mode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.pinger.Ping(ctx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// StartRefreshWatcher renews the access token shortly before it expires so
// idle sessions survive without a 401 round trip.
func (a *App) StartRefreshWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if a.Mode() != ModeOnline || !a.isLoggedIn() {
				continue
			}
			if err := a.gateway.EnsureFresh(ctx); err != nil {
				a.logger.Warn(ctx, "proactive refresh failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// expect records a state change a command is about to report itself.
func (a *App) expect(state session.State) {
	a.mu.Lock()
	a.known = state
	a.mu.Unlock()
}

// watchSession reports session changes that did not come from a command,
// such as an expired session or a logout in another window.
func (a *App) watchSession(ctx context.Context) {
	ch, stop := a.session.Subscribe()
	defer stop()

	a.expect(a.session.Snapshot().State)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			a.notify(snap)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) notify(snap session.Snapshot) {
	a.mu.Lock()
	changed := snap.State != a.known
	a.known = snap.State
	a.mu.Unlock()

	switch {
	case snap.Error != "":
		fmt.Fprintln(a.out, snap.Error)
	case !changed:
	case snap.State == session.StateAuthenticated && snap.User != nil:
		fmt.Fprintf(a.out, "Signed in as %s\n", snap.User.Email)
	case snap.State == session.StateUnauthenticated:
		fmt.Fprintln(a.out, "Signed out")
	}
}
