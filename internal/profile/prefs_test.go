package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var testMAC = strings.Repeat("AB", 32)

const referencePrefs = `{
  "extensions": {
    "settings": {
      "oldextensionidoldextensionidabcd": {
        "account_extension_type": 0,
        "active_permissions": {"api": ["tabs"]},
        "location": 4,
        "path": "/old/place"
      }
    },
    "ui": {"developer_mode": true}
  },
  "protection": {
    "macs": {
      "extensions": {
        "settings": {"oldextensionidoldextensionidabcd": "` + "MACPLACEHOLDER" + `"},
        "ui": {"developer_mode": "DEVMAC"}
      }
    }
  }
}`

func writeReference(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Secure Preferences")
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(referencePrefs, "MACPLACEHOLDER", testMAC, 1)), 0o644))
	return path
}

func TestPatchSecurePreferences(t *testing.T) {
	ref := writeReference(t)
	target := filepath.Join(t.TempDir(), "Secure Preferences")
	require.NoError(t, os.WriteFile(target, []byte(`{"browser":{"has_seen_welcome_page":true},"extensions":{"settings":{}}}`), 0o600))

	const id = "iaioppjhhkdgfdeekjodhoaejllnpphd"
	macs, err := PatchSecurePreferences(target, ref, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{id: testMAC}, macs)

	b, err := os.ReadFile(target)
	require.NoError(t, err)
	doc := gjson.ParseBytes(b)

	assert.True(t, doc.Get("browser.has_seen_welcome_page").Bool())
	assert.Equal(t, "4", doc.Get("extensions.settings."+id+".location").Raw)
	assert.Equal(t, testMAC, doc.Get("protection.macs.extensions.settings."+id).String())
	assert.True(t, doc.Get("extensions.ui.developer_mode").Bool())
	assert.Equal(t, "DEVMAC", doc.Get("protection.macs.extensions.ui.developer_mode").String())
	assert.NotContains(t, string(b), "\n", "written compact")

	require.NoError(t, SetExtensionPath(target, id, "/opt/ext/alice"))
	b, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "/opt/ext/alice", gjson.GetBytes(b, "extensions.settings."+id+".path").String())
	assert.Equal(t, testMAC, gjson.GetBytes(b, "protection.macs.extensions.settings."+id).String())
}

func TestPatchSecurePreferences_MissingTarget(t *testing.T) {
	ref := writeReference(t)
	target := filepath.Join(t.TempDir(), "Default", "Secure Preferences")

	_, err := PatchSecurePreferences(target, ref, "abc")
	require.NoError(t, err)
	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(b, "extensions.settings.abc.account_extension_type").Exists())
}

func TestPatchSecurePreferences_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}
	good := writeReference(t)

	_, err := PatchSecurePreferences(write("t1", "{}"), write("empty-ref", `{"extensions":{}}`), "abc")
	assert.ErrorIs(t, err, ErrNoReference)

	_, err = PatchSecurePreferences(write("t2", "{}"), write("bad-ref", `[1,2]`), "abc")
	assert.ErrorIs(t, err, ErrInvalidPreferences)

	_, err = PatchSecurePreferences(write("t3", "not json"), good, "abc")
	assert.ErrorIs(t, err, ErrInvalidPreferences)

	_, err = PatchSecurePreferences(write("t4", "{}"), filepath.Join(dir, "missing"), "abc")
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = SetExtensionPath(filepath.Join(dir, "missing"), "abc", "/x")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollect_ShortStringsAreNotMACs(t *testing.T) {
	e := collect(gjson.Parse(`{"protection":{"macs":{"extensions":{"settings":{"x":"short"}}}},"a":{"account_extension_type":1}}`))
	assert.Empty(t, e.MAC)
	assert.Nil(t, e.DevMode)
	assert.JSONEq(t, `{"account_extension_type":1}`, e.Settings)
}
