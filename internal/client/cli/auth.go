package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophfeed/internal/client/session"
	"github.com/dmitrijs2005/gophfeed/internal/common"
	"github.com/dmitrijs2005/gophfeed/internal/shared"
)

// getSimpleText, getPassword and getYesNo are indirections used to facilitate
// testing. They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getYesNo = GetYesNo

// report prints err for the user and returns it. Field level validation
// messages are listed one per line.
func (a *App) report(ctx context.Context, err error) error {
	e := common.AsError(err)
	if e.Kind == common.KindInternal {
		// local failures such as an unreachable server keep their own text
		a.logger.Error(ctx, "command failed", "error", err)
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}
	if len(e.Fields) == 0 {
		fmt.Fprintln(a.out, "Error:", e.Message)
		return err
	}
	for _, f := range e.Fields {
		if f.Field != "" {
			fmt.Fprintf(a.out, "  %s: %s\n", f.Field, f.Msg)
		} else {
			fmt.Fprintf(a.out, "  %s\n", f.Msg)
		}
	}
	return err
}

// Register creates an account and signs in with it. The new session is
// remembered only if the user asks for it.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)
	remember, err := getYesNo(a.reader, "Remember me?", a.out)
	if err != nil {
		return err
	}

	resp, err := a.api.Register(ctx, name, email, string(password))
	if err != nil {
		return a.report(ctx, err)
	}

	a.expect(session.StateAuthenticated)
	if err := a.session.Login(ctx, resp.User, resp.AccessToken, resp.RefreshToken, remember); err != nil {
		return a.report(ctx, err)
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", resp.User.Name)
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)
	remember, err := getYesNo(a.reader, "Remember me?", a.out)
	if err != nil {
		return err
	}

	resp, err := a.api.Login(ctx, email, string(password))
	if err != nil {
		return a.report(ctx, err)
	}

	a.expect(session.StateAuthenticated)
	if err := a.session.Login(ctx, resp.User, resp.AccessToken, resp.RefreshToken, remember); err != nil {
		return a.report(ctx, err)
	}

	a.logger.Info(ctx, "login successful", "user_id", resp.User.ID)
	fmt.Fprintf(a.out, "Logged in as %s\n", resp.User.Email)
	return nil
}

// Logout ends the local session. Failing to reach the server does not keep
// the user signed in.
func (a *App) Logout(ctx context.Context) error {
	a.expect(session.StateUnauthenticated)
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// LogoutAll revokes every session of the account, then ends this one.
func (a *App) LogoutAll(ctx context.Context) error {
	n, err := a.api.LogoutAll(ctx)
	if err != nil {
		return a.report(ctx, err)
	}

	a.expect(session.StateUnauthenticated)
	a.session.Logout(ctx)
	fmt.Fprintf(a.out, "Logged out from all devices (%d sessions)\n", n)
	return nil
}

// WhoAmI reloads the profile from the server and updates the cached copy.
func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.api.Me(ctx)
	if err != nil {
		return a.report(ctx, err)
	}
	if err := a.session.RefreshUser(ctx, *u); err != nil {
		a.logger.Warn(ctx, "cache user failed", "error", err)
	}

	fmt.Fprintf(a.out, "%s <%s>, member since %s\n", u.Name, u.Email, u.CreatedAt.Format("2006-01-02"))
	return nil
}
