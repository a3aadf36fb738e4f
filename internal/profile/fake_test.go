package profile

import (
	"context"
	"os"
	"strings"
	"sync"
)

// fakeRuntime implements Runtime for installer tests.
type fakeRuntime struct {
	mu sync.Mutex

	// OnRun/OnStart simulate the browser's side effects.
	OnRun   func(name string, args []string) error
	OnStart func(name string, args []string) error

	Procs      []Process
	Wins       []Window
	Files      map[int][]string
	ProcsErr   error
	WindowsErr error
	CloseErr   error

	RunCalls   [][]string
	StartCalls [][]string
	Terminated []int
	Closed     []string
}

func (f *fakeRuntime) Run(ctx context.Context, name string, args ...string) error {
	f.mu.Lock()
	f.RunCalls = append(f.RunCalls, append([]string{name}, args...))
	f.mu.Unlock()
	if f.OnRun != nil {
		return f.OnRun(name, args)
	}
	return nil
}

func (f *fakeRuntime) Start(ctx context.Context, name string, args ...string) (int, error) {
	f.mu.Lock()
	f.StartCalls = append(f.StartCalls, append([]string{name}, args...))
	f.Procs = append(f.Procs, Process{PID: 1000 + len(f.StartCalls), Name: name, Args: append([]string{name}, args...)})
	pid := 1000 + len(f.StartCalls)
	f.mu.Unlock()
	if f.OnStart != nil {
		return pid, f.OnStart(name, args)
	}
	return pid, nil
}

func (f *fakeRuntime) Processes(ctx context.Context) ([]Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Process(nil), f.Procs...), f.ProcsErr
}

func (f *fakeRuntime) Windows(ctx context.Context, class string) ([]Window, error) {
	return f.Wins, f.WindowsErr
}

func (f *fakeRuntime) OpenFiles(ctx context.Context, pid int) ([]string, error) {
	files, ok := f.Files[pid]
	if !ok {
		return nil, os.ErrNotExist
	}
	return files, nil
}

func (f *fakeRuntime) Terminate(ctx context.Context, pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Terminated = append(f.Terminated, pid)
	return nil
}

func (f *fakeRuntime) CloseWindow(ctx context.Context, w Window) error {
	if f.CloseErr != nil {
		return f.CloseErr
	}
	f.Closed = append(f.Closed, w.Handle)
	return nil
}

// createProfileArg splits the --CreateProfile "<name> <path>" argument.
func createProfileArg(args []string) (name, path string) {
	for i, a := range args {
		if a == "--CreateProfile" && i+1 < len(args) {
			name, path, _ = strings.Cut(args[i+1], " ")
		}
	}
	return name, path
}
