// Package session holds the client's view of who is signed in and keeps it
// in step with other client processes through a broadcast.Bus.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/client/broadcast"
	"github.com/dmitrijs2005/gophfeed/internal/client/tokens"
	"github.com/dmitrijs2005/gophfeed/internal/logging"
)

type State string

const (
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// MsgSessionExpired is set as the error after a forced sign-out.
const MsgSessionExpired = "your session has expired, please sign in again"

type Snapshot struct {
	State State
	User  *tokens.User
	Error string
}

// Revoker tells the server a refresh token is no longer wanted.
type Revoker interface {
	Logout(ctx context.Context, refreshToken string) error
}

type Store struct {
	tokens  *tokens.Manager
	revoker Revoker
	bus     broadcast.Bus
	origin  string
	logger  logging.Logger

	mu   sync.Mutex
	snap Snapshot
	subs map[chan Snapshot]struct{}
}

func New(tm *tokens.Manager, r Revoker, bus broadcast.Bus, origin string, l logging.Logger) *Store {
	return &Store{
		tokens:  tm,
		revoker: r,
		bus:     bus,
		origin:  origin,
		logger:  l.With("module", "session"),
		snap:    Snapshot{State: StateLoading},
		subs:    make(map[chan Snapshot]struct{}),
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe returns a channel of state changes and a function that stops them.
// Slow readers miss intermediate snapshots, never the latest one.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
}

func (s *Store) set(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = snap
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Load restores the session from storage. Tokens without a user snapshot
// (or the reverse) count as signed out.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.fromStorage(ctx)
	if err != nil {
		s.set(Snapshot{State: StateUnauthenticated})
		return err
	}
	s.set(snap)
	return nil
}

func (s *Store) fromStorage(ctx context.Context) (Snapshot, error) {
	pair, err := s.tokens.GetStoredTokens(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	user, err := s.tokens.GetUser(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || user == nil {
		return Snapshot{State: StateUnauthenticated}, nil
	}
	return Snapshot{State: StateAuthenticated, User: user}, nil
}

// Login persists the tokens and user after a successful sign-in.
func (s *Store) Login(ctx context.Context, user tokens.User, access, refresh string, remember bool) error {
	if err := s.tokens.StoreTokens(ctx, access, refresh, &remember); err != nil {
		s.set(Snapshot{State: StateUnauthenticated, Error: "could not save the session"})
		return err
	}
	if err := s.tokens.StoreUser(ctx, user); err != nil {
		s.set(Snapshot{State: StateUnauthenticated, Error: "could not save the session"})
		return err
	}

	u := user
	s.set(Snapshot{State: StateAuthenticated, User: &u})
	s.publish(ctx, broadcast.EventLogin)
	return nil
}

// Logout always ends the local session. The server is told on a best-effort
// basis.
func (s *Store) Logout(ctx context.Context) {
	pair, err := s.tokens.GetStoredTokens(ctx)
	if err != nil {
		s.logger.Warn(ctx, "read tokens failed", "error", err)
	}
	if pair.RefreshToken != "" && s.revoker != nil {
		if err := s.revoker.Logout(ctx, pair.RefreshToken); err != nil {
			s.logger.Warn(ctx, "server logout failed", "error", err)
		}
	}

	if err := s.tokens.ClearTokens(ctx); err != nil {
		s.logger.Error(ctx, "clear tokens failed", "error", err)
	}
	s.publish(ctx, broadcast.EventLogout)
	s.set(Snapshot{State: StateUnauthenticated})
}

// RefreshUser replaces the cached user and clears any error.
func (s *Store) RefreshUser(ctx context.Context, user tokens.User) error {
	if err := s.tokens.StoreUser(ctx, user); err != nil {
		return err
	}
	u := user
	s.mu.Lock()
	snap := s.snap
	s.mu.Unlock()

	snap.User = &u
	snap.Error = ""
	s.set(snap)
	return nil
}

// Expire signs out with MsgSessionExpired. Tokens are expected to be cleared
// already.
func (s *Store) Expire() {
	s.set(Snapshot{State: StateUnauthenticated, Error: MsgSessionExpired})
}

// Listen applies events published by other processes until ctx is done.
func (s *Store) Listen(ctx context.Context) error {
	if s.bus == nil {
		<-ctx.Done()
		return nil
	}
	events, err := s.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	for e := range events {
		if e.Origin == s.origin {
			continue
		}
		s.apply(ctx, e)
	}
	return nil
}

func (s *Store) apply(ctx context.Context, e broadcast.Event) {
	s.logger.Debug(ctx, "session event", "type", e.Type, "origin", e.Origin)

	switch e.Type {
	case broadcast.EventLogout:
		if err := s.tokens.ClearTokens(ctx); err != nil {
			s.logger.Error(ctx, "clear tokens failed", "error", err)
		}
		s.set(Snapshot{State: StateUnauthenticated})
	case broadcast.EventSessionExpired:
		if err := s.tokens.ClearTokens(ctx); err != nil {
			s.logger.Error(ctx, "clear tokens failed", "error", err)
		}
		s.Expire()
	case broadcast.EventLogin:
		// only tokens in the shared durable tier are visible here
		snap, err := s.fromStorage(ctx)
		if err != nil {
			s.logger.Warn(ctx, "reload session failed", "error", err)
			return
		}
		if snap.State == StateAuthenticated {
			s.set(snap)
		}
	}
}

func (s *Store) publish(ctx context.Context, t broadcast.EventType) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, broadcast.Event{Type: t, Origin: s.origin, At: time.Now()}); err != nil {
		s.logger.Warn(ctx, "publish failed", "type", t, "error", err)
	}
}
