package cli

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/client/session"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (p *fakePinger) Ping(context.Context) error {
	p.calls.Add(1)
	if p.fail.Load() {
		return errors.New("down")
	}
	return nil
}

func TestIsLoggedIn(t *testing.T) {
	a, _ := newTestApp(t, &fakeAPI{}, &fakeSession{snap: session.Snapshot{State: session.StateLoading}}, "")
	if a.isLoggedIn() {
		t.Fatalf("expected isLoggedIn() == false while loading")
	}

	a, _ = newTestApp(t, &fakeAPI{}, &fakeSession{snap: signedIn(alice)}, "")
	if !a.isLoggedIn() {
		t.Fatalf("expected isLoggedIn() == true when authenticated")
	}
}

func TestSetMode_ChangesAndReportsOnce(t *testing.T) {
	a, out := newTestApp(t, &fakeAPI{}, &fakeSession{}, "")

	a.setMode(ModeOnline)
	if a.Mode() != ModeOnline {
		t.Fatalf("expected mode to be %q, got %q", ModeOnline, a.Mode())
	}
	if out.String() == "" {
		t.Fatalf("expected output on mode change, got empty")
	}

	out.Reset()
	a.setMode(ModeOnline)
	if got := out.String(); got != "" {
		t.Fatalf("expected no output when mode doesn't change, got: %q", got)
	}

	a.setMode(ModeOffline)
	if !strings.Contains(out.String(), "offline") {
		t.Fatalf("expected output on mode change to offline, got %q", out.String())
	}
}

func TestGetStatus(t *testing.T) {
	a, _ := newTestApp(t, &fakeAPI{}, &fakeSession{}, "")
	if got := a.getStatus(); got != "" {
		t.Fatalf("want empty status, got %q", got)
	}

	a, _ = newTestApp(t, &fakeAPI{}, &fakeSession{snap: signedIn(alice)}, "")
	a.mode = ModeOnline
	if got := a.getStatus(); got != "(alice@example.org online)" {
		t.Fatalf("unexpected status %q", got)
	}
}

func TestStartOnlineStatusWatcher(t *testing.T) {
	p := &fakePinger{}
	a, _ := newTestApp(t, &fakeAPI{}, &fakeSession{}, "")
	a.pinger = p

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.StartOnlineStatusWatcher(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return a.Mode() == ModeOnline }, time.Second, 5*time.Millisecond)

	p.fail.Store(true)
	require.Eventually(t, func() bool { return a.Mode() == ModeOffline }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNotify(t *testing.T) {
	a, out := newTestApp(t, &fakeAPI{}, &fakeSession{}, "")
	a.expect(session.StateAuthenticated)

	a.notify(signedIn(alice))
	require.Empty(t, out.String(), "already known state is not reported")

	a.notify(session.Snapshot{State: session.StateUnauthenticated})
	require.Contains(t, out.String(), "Signed out")

	out.Reset()
	a.notify(signedIn(alice))
	require.Contains(t, out.String(), "Signed in as alice@example.org")

	out.Reset()
	a.notify(session.Snapshot{State: session.StateUnauthenticated, Error: session.MsgSessionExpired})
	require.Contains(t, out.String(), session.MsgSessionExpired)

	out.Reset()
	a.expect(session.StateUnauthenticated)
	a.notify(session.Snapshot{State: session.StateUnauthenticated})
	require.Empty(t, out.String())
}

func TestWatchSession_ReportsExternalChanges(t *testing.T) {
	s := &fakeSession{snap: signedIn(alice)}
	a, _ := newTestApp(t, &fakeAPI{}, s, "")
	var buf lockedBuffer
	a.out = &buf

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.watchSession(ctx)

	require.Eventually(t, func() bool { return len(s.subscribers()) == 1 }, time.Second, 5*time.Millisecond)
	s.subscribers()[0] <- session.Snapshot{State: session.StateUnauthenticated, Error: session.MsgSessionExpired}

	require.Eventually(t, func() bool { return strings.Contains(buf.String(), session.MsgSessionExpired) }, time.Second, 5*time.Millisecond)
}
