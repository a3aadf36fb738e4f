package profile

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/dmitrijs2005/automailpro/internal/extension"
	"github.com/dmitrijs2005/automailpro/internal/validation"
)

// FirefoxWindowClass is the window class of Firefox top-level windows.
const FirefoxWindowClass = "MozillaWindowClass"

const parentLock = "parent.lock"

// ParseProfilesINI lists the [Profile*] sections of a profiles.ini file.
// Relative paths are resolved against the file's directory.
func ParseProfilesINI(path string) ([]Profile, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(path)

	var out []Profile
	for _, sec := range f.Sections() {
		if !strings.HasPrefix(sec.Name(), "Profile") {
			continue
		}
		p := Profile{
			Name:   sec.Key("Name").String(),
			Path:   filepath.FromSlash(sec.Key("Path").String()),
			Family: extension.Firefox,
		}
		if sec.Key("IsRelative").MustInt(0) == 1 {
			p.Path = filepath.Join(base, p.Path)
		}
		out = append(out, p)
	}
	return out, nil
}

// CreateFirefoxProfile runs `firefox --CreateProfile "<name> <path>"`. The
// profile counts as created when path exists afterwards.
func CreateFirefoxProfile(ctx context.Context, rt Runtime, exe, name, path string) (Profile, error) {
	p := Profile{Name: name, Path: path, Family: extension.Firefox}

	if err := rt.Run(ctx, exe, "--CreateProfile", name+" "+path); err != nil {
		return p, wrap("create", name, err)
	}
	if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
		return p, wrap("create", name, ErrProfileNotCreated)
	}
	return p, nil
}

// IsFirefoxRunning reports whether the profile at path holds a parent.lock.
func IsFirefoxRunning(path string) bool {
	return validation.PathExists(filepath.Join(path, parentLock))
}

// CloseFirefoxProfile closes every Firefox window whose process has a file
// open inside the profile directory. It returns the number of windows
// closed.
func CloseFirefoxProfile(ctx context.Context, rt Runtime, path string) (int, error) {
	windows, err := rt.Windows(ctx, FirefoxWindowClass)
	if err != nil {
		return 0, wrap("close", path, err)
	}

	prefix := filepath.Clean(path) + string(filepath.Separator)
	owned := map[int]bool{}
	closed := 0

	for _, w := range windows {
		own, seen := owned[w.PID]
		if !seen {
			files, err := rt.OpenFiles(ctx, w.PID)
			if err != nil {
				continue
			}
			own = false
			for _, f := range files {
				if strings.HasPrefix(filepath.Clean(f), prefix) {
					own = true
					break
				}
			}
			owned[w.PID] = own
		}
		if !own {
			continue
		}
		if err := rt.CloseWindow(ctx, w); err != nil {
			return closed, wrap("close", path, err)
		}
		closed++
	}
	return closed, nil
}
