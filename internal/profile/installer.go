package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"

	"github.com/dmitrijs2005/automailpro/internal/client/models"
	"github.com/dmitrijs2005/automailpro/internal/extension"
	"github.com/dmitrijs2005/automailpro/internal/filex"
	"github.com/dmitrijs2005/automailpro/internal/logging"
	"github.com/dmitrijs2005/automailpro/internal/validation"
)

// Installer creates one browser profile per account and installs the
// account's extension into it.
type Installer struct {
	Runtime     Runtime
	ProfilesDir string
	ChromiumExe string
	FirefoxExe  string
	// ReferencePreferences is a Secure Preferences file holding a
	// registered unpacked extension; Chromium installs copy its entry.
	ReferencePreferences string
	WaitAttempts         int
	WaitInterval         time.Duration
	Logger               logging.Logger
}

// ProfileName turns an e-mail address into a profile directory name.
func ProfileName(email string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_', r == '@':
			return r
		}
		return '_'
	}, email)
}

// Install makes sure the account's profile of the given family exists and
// registers extDir in it.
func (i *Installer) Install(ctx context.Context, account models.Account, family extension.Family, extDir string) (Profile, error) {
	abs, err := filepath.Abs(extDir)
	if err != nil {
		return Profile{}, wrap("install", account.Email, err)
	}

	switch family {
	case extension.Firefox:
		return i.installFirefox(ctx, account, abs)
	default:
		return i.installChromium(ctx, account, abs)
	}
}

func (i *Installer) installChromium(ctx context.Context, account models.Account, extDir string) (Profile, error) {
	root := filepath.Join(i.ProfilesDir, string(extension.Chromium))
	name := ProfileName(account.Email)
	p := ChromiumProfile(root, name)
	prefs := SecurePreferencesPath(root, name)
	log := i.Logger.With("profile", name, "family", extension.Chromium)

	if !validation.PathExists(prefs) {
		if _, err := LaunchChromium(ctx, i.Runtime, i.ChromiumExe, root, name, "--no-first-run", "--no-default-browser-check"); err != nil {
			return p, err
		}
		waitErr := i.waitFor(ctx, prefs)
		if _, err := TerminateChromium(ctx, i.Runtime, root, name); err != nil {
			log.Warn(ctx, "terminate chromium", "error", err)
		}
		if waitErr != nil {
			return p, wrap("launch", name, waitErr)
		}
	} else if _, err := TerminateChromium(ctx, i.Runtime, root, name); err != nil {
		log.Warn(ctx, "terminate chromium", "error", err)
	}

	if i.ReferencePreferences == "" {
		log.Warn(ctx, "no reference preferences configured, extension not registered")
		return p, nil
	}

	id := extension.ExtensionID(extDir)
	macs, err := PatchSecurePreferences(prefs, i.ReferencePreferences, id)
	if err != nil {
		return p, wrap("patch", name, err)
	}
	if err := SetExtensionPath(prefs, id, extDir); err != nil {
		return p, wrap("patch", name, err)
	}
	p.IntegrityMACs = macs

	log.Info(ctx, "extension registered", "extension_id", id)
	return p, nil
}

// waitFor polls until path exists.
func (i *Installer) waitFor(ctx context.Context, path string) error {
	interval := i.WaitInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	attempts := max(i.WaitAttempts, 1)

	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(interval))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if validation.PathExists(path) {
			return nil
		}
		return retry.RetryableError(ErrProfileNotCreated)
	})
}

func (i *Installer) installFirefox(ctx context.Context, account models.Account, extDir string) (Profile, error) {
	name := ProfileName(account.Email)
	path := filepath.Join(i.ProfilesDir, string(extension.Firefox), name)
	p := Profile{Name: name, Path: path, Family: extension.Firefox}
	log := i.Logger.With("profile", name, "family", extension.Firefox)

	if IsFirefoxRunning(path) {
		n, err := CloseFirefoxProfile(ctx, i.Runtime, path)
		if err != nil {
			return p, err
		}
		if n == 0 {
			return p, wrap("install", name, ErrProfileRunning)
		}
		log.Info(ctx, "closed running profile", "windows", n)
	}

	if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return p, wrap("create", name, err)
		}
		if p, err = CreateFirefoxProfile(ctx, i.Runtime, i.FirefoxExe, name, path); err != nil {
			return p, err
		}
	}

	id, err := geckoID(extDir)
	if err != nil {
		return p, wrap("install", name, err)
	}

	// A proxy file named after the add-on id points Firefox at the
	// unpacked extension.
	proxy := filepath.Join(path, "extensions", id)
	if err := filex.WriteFileAtomic(proxy, []byte(extDir+"\n"), 0o644); err != nil {
		return p, wrap("install", name, err)
	}

	log.Info(ctx, "extension registered", "extension_id", id)
	return p, nil
}

// geckoID reads the add-on id from the extension manifest.
func geckoID(extDir string) (string, error) {
	b, err := os.ReadFile(filepath.Join(extDir, "manifest.json"))
	if err != nil {
		return "", err
	}
	for _, path := range []string{"browser_specific_settings.gecko.id", "applications.gecko.id"} {
		if id := gjson.GetBytes(b, path).String(); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("manifest has no gecko id")
}
