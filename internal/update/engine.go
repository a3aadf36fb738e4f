package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/automailpro/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/automailpro/internal/common"
	"github.com/dmitrijs2005/automailpro/internal/logging"
)

// State is a step of the update state machine.
type State string

const (
	StateIdle           State = "IDLE"
	StateFetching       State = "FETCHING_VERSIONS"
	StateComparing      State = "COMPARING"
	StateNoChange       State = "NO_CHANGE"
	StateProgramStale   State = "PROGRAM_STALE"
	StateExtensionStale State = "EXT_STALE"
	StateAssumeRequired State = "ASSUME_UPDATE_REQUIRED"
	StateDownload       State = "DOWNLOAD"
	StateExtractSwap    State = "EXTRACT_SWAP"
	StateDone           State = "DONE"
)

// VersionFetcher returns the raw remote version JSON.
type VersionFetcher interface {
	FetchVersions(ctx context.Context) (json.RawMessage, error)
}

// Gate orders updates against session checks: Apply holds the write side.
type Gate struct {
	sync.RWMutex
}

// Plan is the result of Check.
type Plan struct {
	State     State
	Local     Versions
	Remote    Versions
	Program   bool
	Extension bool
	Err       error
}

// Required reports whether anything has to be downloaded.
func (p Plan) Required() bool {
	return p.Program || p.Extension
}

// Outcome is the result of Apply.
type Outcome struct {
	Program   bool
	Extension bool
	Restart   bool
	Err       error
}

// Result is the result of CheckAndUpdate. UpdateRequired is true whenever
// something was stale or the engine failed.
type Result struct {
	UpdateRequired bool
	Applied        bool
	Restart        bool
	State          State
	Err            error
}

// Options configure an Engine.
type Options struct {
	Store         VersionStore
	Program       Source
	Extension     Source
	ProgramDir    string
	ExtensionsDir string
	TempDir       string
	Gate          *Gate
	// Meta, when set, records the time and state of the last check.
	Meta metadata.Repository
}

// Engine runs at most one update at a time.
type Engine struct {
	mu    sync.Mutex
	state atomic.Value

	api  VersionFetcher
	opts Options
	log  logging.Logger
	now  func() time.Time
}

func NewEngine(api VersionFetcher, opts Options, log logging.Logger) *Engine {
	if opts.Gate == nil {
		opts.Gate = &Gate{}
	}
	e := &Engine{
		api:  api,
		opts: opts,
		log:  log.With("component", "update"),
		now:  time.Now,
	}
	e.state.Store(StateIdle)
	return e
}

// State returns the current state.
func (e *Engine) State() State {
	return e.state.Load().(State)
}

// Gate returns the gate the engine locks during Apply.
func (e *Engine) Gate() *Gate {
	return e.opts.Gate
}

func (e *Engine) setState(ctx context.Context, s State) {
	e.state.Store(s)
	e.log.Debug(ctx, "update state", "state", s)
}

// Check fetches the remote versions and compares them with the local ones.
func (e *Engine) Check(ctx context.Context) Plan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.check(ctx)
}

func (e *Engine) check(ctx context.Context) Plan {
	e.setState(ctx, StateFetching)
	local := e.opts.Store.ReadLocal()

	raw, err := e.api.FetchVersions(ctx)
	if err == nil {
		var remote Versions
		remote, err = ParseRemoteVersions(raw)
		if err == nil {
			e.setState(ctx, StateComparing)
			return e.compare(ctx, local, remote)
		}
	}

	e.setState(ctx, StateAssumeRequired)
	e.log.Warn(ctx, "version check failed, assuming update required", "error", err)
	return Plan{State: StateAssumeRequired, Local: local, Program: true, Extension: true, Err: err}
}

func (e *Engine) compare(ctx context.Context, local, remote Versions) Plan {
	p := Plan{Local: local, Remote: remote}
	p.Program, p.Extension = Stale(local, remote)

	switch {
	case p.Program:
		p.State = StateProgramStale
	case p.Extension:
		p.State = StateExtensionStale
	default:
		p.State = StateNoChange
	}
	e.setState(ctx, p.State)
	return p
}

// Apply downloads and installs what plan marks as stale. A program update
// asks for a restart. Session checks wait while Apply runs.
func (e *Engine) Apply(ctx context.Context, plan Plan, stop *atomic.Bool) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(ctx, plan, stop)
}

func (e *Engine) apply(ctx context.Context, plan Plan, stop *atomic.Bool) Outcome {
	var out Outcome
	if !plan.Required() {
		return out
	}

	e.opts.Gate.Lock()
	defer e.opts.Gate.Unlock()

	if plan.Program {
		err := e.install(ctx, "program", e.opts.Program, e.opts.ProgramDir, false, stop)
		if err == nil {
			err = e.opts.Store.WriteProgram(plan.Remote.Program)
			out.Program, out.Restart = true, true
		}
		out.Err = errors.Join(out.Err, err)
	}

	if plan.Extension && !errors.Is(out.Err, common.ErrStopped) {
		err := e.install(ctx, "extension", e.opts.Extension, e.opts.ExtensionsDir, true, stop)
		if err == nil {
			err = e.opts.Store.WriteExtension(plan.Remote.Extension)
			out.Extension = true
		}
		out.Err = errors.Join(out.Err, err)
	}
	return out
}

func (e *Engine) install(ctx context.Context, what string, src Source, target string, clear bool, stop *atomic.Bool) error {
	if src == nil {
		return fmt.Errorf("%s: no source configured", what)
	}

	e.setState(ctx, StateDownload)
	e.log.Info(ctx, "downloading update", "component", what, "target", target)

	if err := DownloadAndExtract(ctx, src, target, e.opts.TempDir, clear, stop); err != nil {
		e.log.Error(ctx, "update failed", "component", what, "error", err)
		return fmt.Errorf("%s: %w", what, err)
	}

	e.setState(ctx, StateExtractSwap)
	e.log.Info(ctx, "update installed", "component", what)
	return nil
}

// CheckAndUpdate runs Check and, if needed, Apply. Any failure, including a
// panic, is reported as UpdateRequired.
func (e *Engine) CheckAndUpdate(ctx context.Context, stop *atomic.Bool) (res Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error(ctx, "update panic", "panic", r, "stack", string(debug.Stack()))
			res = Result{UpdateRequired: true, State: StateAssumeRequired, Err: fmt.Errorf("update panic: %v", r)}
		}
		e.setState(ctx, StateDone)
		e.record(ctx, res)
	}()

	plan := e.check(ctx)
	if !plan.Required() {
		return Result{State: plan.State}
	}

	out := e.apply(ctx, plan, stop)
	return Result{
		UpdateRequired: true,
		Applied:        out.Err == nil,
		Restart:        out.Restart,
		State:          plan.State,
		Err:            errors.Join(plan.Err, out.Err),
	}
}

func (e *Engine) record(ctx context.Context, res Result) {
	if e.opts.Meta == nil {
		return
	}
	err := errors.Join(
		metadata.SetTime(ctx, e.opts.Meta, metadata.KeyLastUpdateCheck, e.now()),
		metadata.SetString(ctx, e.opts.Meta, metadata.KeyLastUpdateState, string(res.State)),
	)
	if err != nil {
		e.log.Warn(ctx, "record update check", "error", err)
	}
}

// Watch runs CheckAndUpdate every interval until ctx is done, handing each
// result to onResult.
func (e *Engine) Watch(ctx context.Context, interval time.Duration, stop *atomic.Bool, onResult func(Result)) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			res := e.CheckAndUpdate(ctx, stop)
			if onResult != nil {
				onResult(res)
			}
		}
	}
}
