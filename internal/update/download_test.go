package update

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/automailpro/internal/common"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestDownloadAndExtract_Success(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "program")
	tmp := filepath.Join(root, "tmp")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "keep.txt"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(target, "app.bin"), []byte("v1"), 0o644))

	archive := makeZip(t, map[string]string{
		"app.bin":         "v2",
		"assets/logo.svg": "<svg/>",
	})

	err := DownloadAndExtract(context.Background(), bytesSource(archive), target, tmp, false, nil)
	require.NoError(t, err)

	assert.Equal(t, "v2", readFile(t, filepath.Join(target, "app.bin")))
	assert.Equal(t, "<svg/>", readFile(t, filepath.Join(target, "assets", "logo.svg")))
	assert.Equal(t, "old", readFile(t, filepath.Join(target, "keep.txt")))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory must be removed")
}

func TestDownloadAndExtract_ClearTarget(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "extensions")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "stale"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "stale", "x.js"), []byte("x"), 0o644))

	archive := makeZip(t, map[string]string{"chromium/manifest.json": "{}"})
	require.NoError(t, DownloadAndExtract(context.Background(), bytesSource(archive), target, "", true, nil))

	assert.NoDirExists(t, filepath.Join(target, "stale"))
	assert.FileExists(t, filepath.Join(target, "chromium", "manifest.json"))
}

func TestDownloadAndExtract_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		src   Source
		check func(t *testing.T, err error)
	}{
		{
			name:  "source error",
			src:   errSource(boom),
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, boom) },
		},
		{
			name:  "empty body",
			src:   bytesSource(nil),
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrEmptyArchive) },
		},
		{
			name:  "not a zip",
			src:   bytesSource([]byte("definitely not a zip archive")),
			check: func(t *testing.T, err error) { assert.Error(t, err) },
		},
		{
			name:  "zip without entries",
			src:   bytesSource(makeZip(t, map[string]string{})),
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrEmptyArchive) },
		},
		{
			name:  "zip slip",
			src:   bytesSource(makeZip(t, map[string]string{"../evil.txt": "x"})),
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnsafePath) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			target := filepath.Join(root, "target")
			require.NoError(t, os.MkdirAll(target, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(target, "keep.txt"), []byte("old"), 0o644))

			err := DownloadAndExtract(context.Background(), tt.src, target, filepath.Join(root, "tmp"), true, nil)
			require.Error(t, err)
			tt.check(t, err)

			assert.Equal(t, "old", readFile(t, filepath.Join(target, "keep.txt")))
			assert.NoFileExists(t, filepath.Join(root, "evil.txt"))
		})
	}
}

func TestDownloadAndExtract_Stopped(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target")

	var stop atomic.Bool
	stop.Store(true)

	archive := makeZip(t, map[string]string{"a.txt": "a"})
	err := DownloadAndExtract(context.Background(), bytesSource(archive), target, "", false, &stop)
	require.ErrorIs(t, err, common.ErrStopped)
	assert.NoDirExists(t, target)
}

func TestDownloadAndExtract_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	archive := makeZip(t, map[string]string{"a.txt": "a"})
	err := DownloadAndExtract(ctx, bytesSource(archive), filepath.Join(t.TempDir(), "t"), "", false, nil)
	require.ErrorIs(t, err, common.ErrStopped)
	assert.ErrorIs(t, err, context.Canceled)
}
