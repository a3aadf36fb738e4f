package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/automailpro/internal/client/client"
	"github.com/dmitrijs2005/automailpro/internal/client/services"
	"github.com/dmitrijs2005/automailpro/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var ErrNotLoggedIn = errors.New("not logged in, use 'login' first")

func (a *App) getStatus() string {
	if a.status.Username == "" || !a.status.Valid {
		return ""
	}
	return fmt.Sprintf("(%s) ", a.status.Username)
}

// Login prompts the user for credentials and exchanges them for a session.
//
// A credential rejection is printed with its reason and is not an error;
// transport failures are returned. The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	st, err := a.session.Login(ctx, userName, string(password))
	var rejected *services.RejectedError
	switch {
	case errors.As(err, &rejected), errors.Is(err, services.ErrCredentialsFormat), errors.Is(err, client.ErrUnauthorized):
		a.palette.failure.Fprintf(a.out, "Login unsuccessful: %v\n", err)
		return nil
	case err != nil:
		return err
	}

	a.status = st
	a.setMode(ctx, ModeSignedIn)
	a.palette.success.Fprintf(a.out, "Logged in as %s\n", st.Username)
	return nil
}

// Logout removes the session file and forgets the in-memory session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.status = services.SessionStatus{}
	a.setMode(ctx, ModeSignedOut)
	a.palette.info.Fprintln(a.out, "Logged out")
	return nil
}

// Status re-validates the session and prints it.
func (a *App) Status(ctx context.Context) error {
	st := a.session.CheckFull(ctx)
	if !st.Valid {
		a.status = services.SessionStatus{}
		a.setMode(ctx, ModeSignedOut)
		a.palette.failure.Fprintf(a.out, "Session: invalid (%v)\n", st.Err)
		return nil
	}

	a.status = st
	a.setMode(ctx, ModeSignedIn)
	expires := st.Date.Add(a.config.SessionValidity)
	a.palette.success.Fprintf(a.out, "Session: %s, valid until %s\n", st.Username, expires.Format(time.DateTime))
	return nil
}

// refresh re-validates the session before an operation that needs a
// fresh token.
func (a *App) refresh(ctx context.Context) error {
	if !a.isLoggedIn() {
		return ErrNotLoggedIn
	}
	st := a.session.CheckFull(ctx)
	if !st.Valid {
		a.status = services.SessionStatus{}
		a.setMode(ctx, ModeSignedOut)
		return fmt.Errorf("%w: %v", ErrNotLoggedIn, st.Err)
	}
	a.status = st
	return nil
}
