// Package profile creates browser profiles and installs per-account
// extensions into them.
//
// Firefox profiles are created through the browser's --CreateProfile switch
// and discovered through profiles.ini. Chromium profiles are realised by
// launching the browser once, after which the profile's Secure Preferences
// file is patched to register the unpacked extension. Everything that
// touches the operating system goes through Runtime.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/automailpro/internal/extension"
)

var (
	ErrProfileNotCreated = errors.New("profile directory was not created")
	ErrProfileRunning    = errors.New("profile is in use")
	ErrNoReference       = errors.New("reference preferences hold no extension entry")
)

// Error is a profile operation failure.
type Error struct {
	Op      string
	Profile string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("profile %s: %s: %v", e.Profile, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(op, profile string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Profile: profile, Err: err}
}

// Profile is a browser profile known to the installer.
type Profile struct {
	Name   string
	Path   string
	Family extension.Family
	// IntegrityMACs maps extension id to the MAC stored for its settings.
	IntegrityMACs map[string]string
}

// Process is a running OS process.
type Process struct {
	PID  int
	Name string
	Args []string
}

// Window is a top-level OS window.
type Window struct {
	Handle string
	PID    int
	Class  string
}

// Runtime is the operating system as seen by the installer.
type Runtime interface {
	// Run executes name and waits for it; the exit status is ignored.
	Run(ctx context.Context, name string, args ...string) error
	// Start launches name without waiting and returns its pid.
	Start(ctx context.Context, name string, args ...string) (int, error)
	Processes(ctx context.Context) ([]Process, error)
	Windows(ctx context.Context, class string) ([]Window, error)
	OpenFiles(ctx context.Context, pid int) ([]string, error)
	Terminate(ctx context.Context, pid int) error
	CloseWindow(ctx context.Context, w Window) error
}
