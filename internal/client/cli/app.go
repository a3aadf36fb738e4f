package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/automailpro/internal/client/client"
	"github.com/dmitrijs2005/automailpro/internal/client/config"
	"github.com/dmitrijs2005/automailpro/internal/client/models"
	"github.com/dmitrijs2005/automailpro/internal/client/services"
	"github.com/dmitrijs2005/automailpro/internal/extension"
	"github.com/dmitrijs2005/automailpro/internal/logging"
	"github.com/dmitrijs2005/automailpro/internal/scenario"
	"github.com/dmitrijs2005/automailpro/internal/update"
)

type Mode string

const (
	ModeSignedOut Mode = "signed-out"
	ModeSignedIn  Mode = "signed-in"
)

// SessionManager is the part of services.SessionService the CLI uses.
type SessionManager interface {
	CheckFull(ctx context.Context) services.SessionStatus
	Login(ctx context.Context, username, password string) (services.SessionStatus, error)
	Logout(ctx context.Context) error
}

// Updater is the part of update.Engine the CLI uses.
type Updater interface {
	Check(ctx context.Context) update.Plan
	CheckAndUpdate(ctx context.Context, stop *atomic.Bool) update.Result
	Watch(ctx context.Context, interval time.Duration, stop *atomic.Bool, onResult func(update.Result))
}

// Runner is the part of services.RunService the CLI uses.
type Runner interface {
	Compile(rows []scenario.Row) scenario.Program
	Run(ctx context.Context, token string, rows []scenario.Row, accounts []models.Account, family extension.Family) (services.Report, error)
	Results(ctx context.Context, runID string) (string, []models.Result, error)
}

// ScenarioLister lists scenarios saved on the server.
type ScenarioLister interface {
	LoadScenarios(ctx context.Context, entity string) client.ScenarioList
}

// Deps are the services an App drives.
type Deps struct {
	Session   SessionManager
	Updates   Updater
	Runs      Runner
	Scenarios ScenarioLister
}

type App struct {
	config    *config.Config
	session   SessionManager
	updates   Updater
	runs      Runner
	scenarios ScenarioLister
	log       logging.Logger

	status services.SessionStatus
	Mode   Mode

	// stop aborts an update in progress when the app exits.
	stop atomic.Bool

	reader  *bufio.Reader
	out     io.Writer
	palette palette
}

func NewApp(c *config.Config, deps Deps, log logging.Logger) *App {
	return &App{
		config:    c,
		session:   deps.Session,
		updates:   deps.Updates,
		runs:      deps.Runs,
		scenarios: deps.Scenarios,
		log:       log,
		Mode:      ModeSignedOut,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
		palette:   newPalette(c.Colors),
	}
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		a.log.Info(ctx, "session mode changed", "mode", mode)
	}
}

// Run checks the stored session, starts the update watcher and blocks in
// the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.stop.Store(true)

	a.palette.info.Fprintln(a.out, "Welcome to AutoMailPro CLI (type 'help' for commands)")
	a.restoreSession(ctx)

	go a.StartUpdateWatcher(ctx, a.config.UpdateCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.status.Valid && a.status.Token != ""
}

// restoreSession adopts a stored session that is still valid locally and
// remotely.
func (a *App) restoreSession(ctx context.Context) {
	st := a.session.CheckFull(ctx)
	if !st.Valid {
		a.log.Debug(ctx, "no stored session", "reason", st.Err)
		a.palette.info.Fprintln(a.out, "Not logged in. Use 'login' to start a session.")
		return
	}
	a.status = st
	a.setMode(ctx, ModeSignedIn)
	a.palette.success.Fprintf(a.out, "Session restored for %s\n", st.Username)
}

// StartUpdateWatcher runs the update engine every interval until ctx is
// done. A non-positive interval disables the watcher.
func (a *App) StartUpdateWatcher(ctx context.Context, interval time.Duration) {
	a.updates.Watch(ctx, interval, &a.stop, func(res update.Result) {
		a.reportUpdate(ctx, res, false)
	})
}

// reportUpdate prints the outcome of an update cycle. Quiet cycles with
// nothing to do are only printed when verbose.
func (a *App) reportUpdate(ctx context.Context, res update.Result, verbose bool) {
	switch {
	case res.Err != nil:
		a.log.Warn(ctx, "update failed", "state", res.State, "error", res.Err)
		a.palette.failure.Fprintf(a.out, "Update failed: %v\n", res.Err)
	case res.Restart:
		a.palette.success.Fprintln(a.out, "Program updated. Restart AutoMailPro to use the new version.")
	case res.Applied:
		a.palette.success.Fprintln(a.out, "Extensions updated.")
	case verbose:
		a.palette.info.Fprintln(a.out, "Already up to date.")
	}
}
