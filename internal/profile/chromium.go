package profile

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/dmitrijs2005/automailpro/internal/extension"
)

// SecurePreferencesFile is the name of Chromium's signed preferences file.
const SecurePreferencesFile = "Secure Preferences"

// Each profile gets its own user data dir <root>/<name> holding a single
// profile directory <name>.
func userDataDirFlag(root, name string) string { return "--user-data-dir=" + filepath.Join(root, name) }
func profileDirFlag(name string) string        { return "--profile-directory=" + name }

// LaunchChromium starts Chromium on the named profile under root.
func LaunchChromium(ctx context.Context, rt Runtime, exe, root, name string, extra ...string) (int, error) {
	args := append([]string{userDataDirFlag(root, name), profileDirFlag(name)}, extra...)
	pid, err := rt.Start(ctx, exe, args...)
	return pid, wrap("launch", name, err)
}

// SecurePreferencesPath returns <root>/<name>/<name>/Secure Preferences.
func SecurePreferencesPath(root, name string) string {
	return filepath.Join(root, name, name, SecurePreferencesFile)
}

// ChromiumProfile describes the profile name under root.
func ChromiumProfile(root, name string) Profile {
	return Profile{Name: name, Path: filepath.Join(root, name), Family: extension.Chromium}
}

// TerminateChromium terminates the Chromium processes started with both
// the profile-directory and user-data-dir flags of this profile.
func TerminateChromium(ctx context.Context, rt Runtime, root, name string) (int, error) {
	procs, err := rt.Processes(ctx)
	if err != nil {
		return 0, wrap("terminate", name, err)
	}

	n := 0
	for _, p := range procs {
		if !slices.Contains(p.Args, profileDirFlag(name)) || !slices.Contains(p.Args, userDataDirFlag(root, name)) {
			continue
		}
		if err := rt.Terminate(ctx, p.PID); err != nil {
			return n, wrap("terminate", name, err)
		}
		n++
	}
	return n, nil
}
