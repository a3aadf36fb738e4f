package profile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
)

// ExecRunner is the Runtime backed by os/exec and /proc. Window handling
// shells out to wmctrl.
type ExecRunner struct {
	// ProcRoot defaults to /proc.
	ProcRoot string
	// Wmctrl defaults to "wmctrl" on PATH.
	Wmctrl string
}

var _ Runtime = ExecRunner{}

func (r ExecRunner) procRoot() string {
	if r.ProcRoot != "" {
		return r.ProcRoot
	}
	return "/proc"
}

func (r ExecRunner) wmctrl() string {
	if r.Wmctrl != "" {
		return r.Wmctrl
	}
	return "wmctrl"
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	err := exec.CommandContext(ctx, name, args...).Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func (r ExecRunner) Start(ctx context.Context, name string, args ...string) (int, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()
	return pid, nil
}

func (r ExecRunner) Processes(ctx context.Context) ([]Process, error) {
	if runtime.GOOS == "windows" {
		return nil, errors.ErrUnsupported
	}
	entries, err := os.ReadDir(r.procRoot())
	if err != nil {
		return nil, err
	}

	var out []Process
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || !e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(r.procRoot(), e.Name(), "cmdline"))
		if err != nil || len(raw) == 0 {
			continue
		}
		args := parseCmdline(raw)
		out = append(out, Process{PID: pid, Name: filepath.Base(args[0]), Args: args})
	}
	return out, nil
}

// parseCmdline splits a NUL separated /proc/<pid>/cmdline.
func parseCmdline(raw []byte) []string {
	raw = bytes.TrimRight(raw, "\x00")
	parts := bytes.Split(raw, []byte{0})
	args := make([]string, len(parts))
	for i, p := range parts {
		args[i] = string(p)
	}
	return args
}

func (r ExecRunner) OpenFiles(ctx context.Context, pid int) ([]string, error) {
	dir := filepath.Join(r.procRoot(), strconv.Itoa(pid), "fd")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if target, err := os.Readlink(filepath.Join(dir, e.Name())); err == nil {
			out = append(out, target)
		}
	}
	return out, nil
}

func (r ExecRunner) Terminate(ctx context.Context, pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(syscall.SIGTERM)
}

func (r ExecRunner) Windows(ctx context.Context, class string) ([]Window, error) {
	out, err := exec.CommandContext(ctx, r.wmctrl(), "-lpx").Output()
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	return parseWmctrl(out, class), nil
}

// parseWmctrl reads `wmctrl -lpx` output: id, desktop, pid, WM_CLASS,
// host, title. class matches the WM_CLASS case-insensitively; the Firefox
// class also matches any "firefox" WM_CLASS.
func parseWmctrl(out []byte, class string) []Window {
	want := strings.ToLower(class)
	var ws []Window

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 4 {
			continue
		}
		pid, err := strconv.Atoi(f[2])
		if err != nil {
			continue
		}
		wmClass := strings.ToLower(f[3])
		match := want == "" || strings.Contains(wmClass, want) ||
			(class == FirefoxWindowClass && strings.Contains(wmClass, "firefox"))
		if match {
			ws = append(ws, Window{Handle: f[0], PID: pid, Class: f[3]})
		}
	}
	return ws
}

func (r ExecRunner) CloseWindow(ctx context.Context, w Window) error {
	if err := exec.CommandContext(ctx, r.wmctrl(), "-ic", w.Handle).Run(); err != nil {
		return fmt.Errorf("close window %s: %w", w.Handle, err)
	}
	return nil
}
