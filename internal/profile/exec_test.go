package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCmdline(t *testing.T) {
	got := parseCmdline([]byte("/usr/bin/chromium\x00--user-data-dir=/p\x00--profile-directory=a b\x00"))
	assert.Equal(t, []string{"/usr/bin/chromium", "--user-data-dir=/p", "--profile-directory=a b"}, got)
}

func TestParseWmctrl(t *testing.T) {
	out := []byte(`0x03a00003  0 4242   Navigator.firefox     host Inbox - Mozilla Firefox
0x03a0000f  0 4242   Navigator.firefox-esr host Second
0x04000007  0 5151   gnome-terminal-server.Gnome-terminal host Terminal
broken line
0x05000001  0 nan    Navigator.firefox     host Bad pid
`)
	ws := parseWmctrl(out, FirefoxWindowClass)
	assert.Equal(t, []Window{
		{Handle: "0x03a00003", PID: 4242, Class: "Navigator.firefox"},
		{Handle: "0x03a0000f", PID: 4242, Class: "Navigator.firefox-esr"},
	}, ws)

	assert.Len(t, parseWmctrl(out, ""), 3)
	assert.Len(t, parseWmctrl(out, "gnome-terminal"), 1)
}

func TestExecRunner_ProcFS(t *testing.T) {
	root := t.TempDir()
	mk := func(pid, cmdline string) {
		require.NoError(t, os.MkdirAll(filepath.Join(root, pid, "fd"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, pid, "cmdline"), []byte(cmdline), 0o644))
	}
	mk("10", "/usr/bin/chromium\x00--profile-directory=a\x00")
	mk("11", "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "self"), 0o755))
	require.NoError(t, os.Symlink("/home/u/.mozilla/p/places.sqlite", filepath.Join(root, "10", "fd", "3")))

	r := ExecRunner{ProcRoot: root}
	procs, err := r.Processes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Process{{PID: 10, Name: "chromium", Args: []string{"/usr/bin/chromium", "--profile-directory=a"}}}, procs)

	files, err := r.OpenFiles(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/u/.mozilla/p/places.sqlite"}, files)

	_, err = r.OpenFiles(context.Background(), 99)
	assert.Error(t, err)
}
