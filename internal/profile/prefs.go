package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dmitrijs2005/automailpro/internal/filex"
)

// minMACLen separates HMAC digests from short flag values.
const minMACLen = 64

var ErrInvalidPreferences = errors.New("preferences file is not a JSON object")

// extensionEntry is what the key search collects from a reference
// Secure Preferences file.
type extensionEntry struct {
	Settings   string // raw JSON object
	MAC        string
	DevMode    *bool
	DevModeMAC string
}

// collect walks the reference document depth first, keeping the first
// match of each kind.
func collect(doc gjson.Result) extensionEntry {
	var e extensionEntry

	var walk func(path []string, v gjson.Result)
	walk = func(path []string, v gjson.Result) {
		key := ""
		if len(path) > 0 {
			key = path[len(path)-1]
		}

		switch {
		case v.IsObject():
			if e.Settings == "" && v.Get("account_extension_type").Exists() {
				e.Settings = v.Raw
			}
			v.ForEach(func(k, child gjson.Result) bool {
				walk(append(path[:len(path):len(path)], k.String()), child)
				return true
			})
		case key == "developer_mode" && v.IsBool():
			if e.DevMode == nil {
				b := v.Bool()
				e.DevMode = &b
			}
		case key == "developer_mode" && v.Type == gjson.String:
			if e.DevModeMAC == "" {
				e.DevModeMAC = v.String()
			}
		case v.Type == gjson.String && len(v.String()) >= minMACLen && underExtensionMACs(path):
			if e.MAC == "" {
				e.MAC = v.String()
			}
		}
	}
	walk(nil, doc)
	return e
}

// underExtensionMACs reports whether path runs through
// macs.extensions.settings.
func underExtensionMACs(path []string) bool {
	return strings.Contains(strings.Join(path, "."), "macs.extensions.settings.")
}

func readObject(path string, allowMissing bool) ([]byte, error) {
	b, err := os.ReadFile(path)
	if allowMissing && errors.Is(err, fs.ErrNotExist) {
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(b))) == 0 && allowMissing {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(b) || !gjson.ParseBytes(b).IsObject() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPreferences, path)
	}
	return b, nil
}

// PatchSecurePreferences registers extension extID in the Secure
// Preferences file target, copying the extension entry, its MAC and the
// developer mode flags found in reference. Existing keys are kept in
// place; the file is rewritten as compact JSON. It returns the integrity
// MACs written, keyed by extension id.
func PatchSecurePreferences(target, reference, extID string) (map[string]string, error) {
	ref, err := readObject(reference, false)
	if err != nil {
		return nil, err
	}
	entry := collect(gjson.ParseBytes(ref))
	if entry.Settings == "" {
		return nil, ErrNoReference
	}

	doc, err := readObject(target, true)
	if err != nil {
		return nil, err
	}

	set := func(path string, raw string) {
		if err == nil {
			doc, err = sjson.SetRawBytes(doc, path, []byte(raw))
		}
	}
	setValue := func(path string, v any) {
		if err == nil {
			doc, err = sjson.SetBytes(doc, path, v)
		}
	}

	macs := map[string]string{}
	set("extensions.settings."+extID, entry.Settings)
	if entry.MAC != "" {
		setValue("protection.macs.extensions.settings."+extID, entry.MAC)
		macs[extID] = entry.MAC
	}
	if entry.DevMode != nil {
		setValue("extensions.ui.developer_mode", *entry.DevMode)
	}
	if entry.DevModeMAC != "" {
		setValue("protection.macs.extensions.ui.developer_mode", entry.DevModeMAC)
	}
	if err != nil {
		return nil, fmt.Errorf("patch preferences: %w", err)
	}

	if err := filex.WriteFileAtomic(target, pretty.Ugly(doc), 0o600); err != nil {
		return nil, err
	}
	return macs, nil
}

// SetExtensionPath points the settings entry of extID at dir.
func SetExtensionPath(target, extID, dir string) error {
	doc, err := readObject(target, false)
	if err != nil {
		return err
	}
	doc, err = sjson.SetBytes(doc, "extensions.settings."+extID+".path", dir)
	if err != nil {
		return fmt.Errorf("patch preferences: %w", err)
	}
	return filex.WriteFileAtomic(target, pretty.Ugly(doc), 0o600)
}
