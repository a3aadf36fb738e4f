package update

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/automailpro/internal/client/client"
	"github.com/dmitrijs2005/automailpro/internal/client/config"
	"github.com/dmitrijs2005/automailpro/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/automailpro/internal/logging"

	_ "modernc.org/sqlite"
)

// ---- fakes ----

type fakeAPI struct {
	Raw   json.RawMessage
	Err   error
	Calls int
}

func (f *fakeAPI) FetchVersions(ctx context.Context) (json.RawMessage, error) {
	f.Calls++
	return f.Raw, f.Err
}

type panicAPI struct{}

func (panicAPI) FetchVersions(ctx context.Context) (json.RawMessage, error) {
	panic("kaboom")
}

type testDirs struct {
	Program    string
	Extensions string
	Temp       string
	Store      VersionStore
}

func newDirs(t *testing.T) testDirs {
	t.Helper()
	root := t.TempDir()
	d := testDirs{
		Program:    filepath.Join(root, "program"),
		Extensions: filepath.Join(root, "extensions"),
		Temp:       filepath.Join(root, "tmp"),
	}
	d.Store = VersionStore{
		ProgramFile:   filepath.Join(d.Program, "version.txt"),
		ExtensionFile: filepath.Join(d.Extensions, "version.txt"),
	}
	return d
}

func newTestEngine(t *testing.T, api VersionFetcher, d testDirs, program, extension Source) *Engine {
	t.Helper()
	return NewEngine(api, Options{
		Store:         d.Store,
		Program:       program,
		Extension:     extension,
		ProgramDir:    d.Program,
		ExtensionsDir: d.Extensions,
		TempDir:       d.Temp,
	}, logging.NewNop())
}

// ---- TESTS ----

func TestEngine_Check(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		local     Versions
		remote    string
		remoteErr error
		state     State
		program   bool
		extension bool
	}{
		{"up to date", Versions{"1", "2"}, `{"version_Programme":"1","version_extension":"2"}`, nil, StateNoChange, false, false},
		{"program stale", Versions{"1", "2"}, `{"version_programm":"1.1","version_extension":"2"}`, nil, StateProgramStale, true, false},
		{"extension stale", Versions{"1", "2"}, `{"version_program":"1","version_extensions":"3"}`, nil, StateExtensionStale, false, true},
		{"no local files", Versions{}, `{"version_program":"1","version_extension":"2"}`, nil, StateProgramStale, true, true},
		{"fetch error", Versions{"1", "2"}, ``, client.ErrUnavailable, StateAssumeRequired, true, true},
		{"garbage", Versions{"1", "2"}, `<html>`, nil, StateAssumeRequired, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDirs(t)
			if tt.local != (Versions{}) {
				require.NoError(t, d.Store.Write(tt.local))
			}
			e := newTestEngine(t, &fakeAPI{Raw: json.RawMessage(tt.remote), Err: tt.remoteErr}, d, nil, nil)

			p := e.Check(ctx)
			assert.Equal(t, tt.state, p.State)
			assert.Equal(t, tt.program, p.Program)
			assert.Equal(t, tt.extension, p.Extension)
			assert.Equal(t, tt.program || tt.extension, p.Required())
		})
	}
}

func TestEngine_CheckAndUpdate_NoChange(t *testing.T) {
	d := newDirs(t)
	require.NoError(t, d.Store.Write(Versions{"1", "2"}))
	e := newTestEngine(t, &fakeAPI{Raw: json.RawMessage(`{"version_program":"1","version_extension":"2"}`)}, d,
		errSource(errors.New("must not download")), errSource(errors.New("must not download")))

	res := e.CheckAndUpdate(context.Background(), nil)
	assert.False(t, res.UpdateRequired)
	assert.False(t, res.Restart)
	assert.NoError(t, res.Err)
	assert.Equal(t, StateNoChange, res.State)
	assert.Equal(t, StateDone, e.State())
}

func TestEngine_CheckAndUpdate_ExtensionOnly(t *testing.T) {
	d := newDirs(t)
	require.NoError(t, d.Store.Write(Versions{"1", "2"}))
	require.NoError(t, os.WriteFile(filepath.Join(d.Extensions, "old.js"), []byte("x"), 0o644))

	ext := makeZip(t, map[string]string{"chromium/background.js": "bg", "firefox/background.js": "bg"})
	e := newTestEngine(t, &fakeAPI{Raw: json.RawMessage(`{"version_program":"1","version_extension":"3"}`)}, d,
		errSource(errors.New("must not download")), bytesSource(ext))

	res := e.CheckAndUpdate(context.Background(), nil)
	require.NoError(t, res.Err)
	assert.True(t, res.UpdateRequired)
	assert.True(t, res.Applied)
	assert.False(t, res.Restart)

	assert.NoFileExists(t, filepath.Join(d.Extensions, "old.js"))
	assert.FileExists(t, filepath.Join(d.Extensions, "chromium", "background.js"))
	assert.Equal(t, Versions{"1", "3"}, d.Store.ReadLocal())
}

func TestEngine_CheckAndUpdate_ProgramRequiresRestart(t *testing.T) {
	d := newDirs(t)
	require.NoError(t, d.Store.Write(Versions{"1", "2"}))
	require.NoError(t, os.WriteFile(filepath.Join(d.Program, "settings.ini"), []byte("keep"), 0o644))

	prog := makeZip(t, map[string]string{"automailpro.exe": "v2"})
	e := newTestEngine(t, &fakeAPI{Raw: json.RawMessage(`{"version_Programme":"2","version_extension":"2"}`)}, d,
		bytesSource(prog), errSource(errors.New("must not download")))

	res := e.CheckAndUpdate(context.Background(), nil)
	require.NoError(t, res.Err)
	assert.True(t, res.UpdateRequired)
	assert.True(t, res.Restart)
	assert.Equal(t, StateProgramStale, res.State)

	assert.FileExists(t, filepath.Join(d.Program, "settings.ini"))
	assert.FileExists(t, filepath.Join(d.Program, "automailpro.exe"))
	assert.Equal(t, Versions{"2", "2"}, d.Store.ReadLocal())
}

func TestEngine_CheckAndUpdate_DownloadFailureKeepsVersions(t *testing.T) {
	d := newDirs(t)
	require.NoError(t, d.Store.Write(Versions{"1", "2"}))
	e := newTestEngine(t, &fakeAPI{Raw: json.RawMessage(`{"version_program":"1","version_extension":"9"}`)}, d,
		nil, bytesSource([]byte("not a zip")))

	res := e.CheckAndUpdate(context.Background(), nil)
	require.Error(t, res.Err)
	assert.True(t, res.UpdateRequired)
	assert.False(t, res.Applied)
	assert.Equal(t, "2", d.Store.ReadLocal().Extension)
}

func TestEngine_CheckAndUpdate_Panic(t *testing.T) {
	e := newTestEngine(t, panicAPI{}, newDirs(t), nil, nil)

	res := e.CheckAndUpdate(context.Background(), nil)
	assert.True(t, res.UpdateRequired)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "kaboom")
}

func TestEngine_CheckAndUpdate_ServerErrorMeansUpdateRequired(t *testing.T) {
	var versionHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/updates/version.json" {
			versionHits.Add(1)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := &config.Config{
		APIBaseURL:     srv.URL,
		Endpoints:      config.DefaultEndpoints(),
		MaxAttempts:    3,
		RetryDelay:     time.Millisecond,
		BackoffFactor:  time.Millisecond,
		RequestTimeout: 2 * time.Second,
	}
	api := client.NewHTTPClient(cfg, logging.NewNop())

	d := newDirs(t)
	require.NoError(t, d.Store.Write(Versions{"1", "2"}))
	program, extension := Sources(cfg, api, api.HTTP())
	e := newTestEngine(t, api, d, program, extension)

	res := e.CheckAndUpdate(context.Background(), nil)
	assert.True(t, res.UpdateRequired)
	assert.Equal(t, StateAssumeRequired, res.State)
	assert.Error(t, res.Err)
	assert.EqualValues(t, 3, versionHits.Load())
	assert.Equal(t, Versions{"1", "2"}, d.Store.ReadLocal())
}

func TestEngine_ApplyHoldsGate(t *testing.T) {
	d := newDirs(t)
	release := make(chan struct{})
	started := make(chan struct{})

	slow := SourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
		close(started)
		<-release
		return nil, errors.New("aborted")
	})
	e := newTestEngine(t, &fakeAPI{}, d, nil, slow)

	done := make(chan Outcome, 1)
	go func() {
		done <- e.Apply(context.Background(), Plan{Extension: true}, nil)
	}()
	<-started

	assert.False(t, e.Gate().TryRLock(), "readers must wait while an update is applied")

	close(release)
	out := <-done
	assert.Error(t, out.Err)
	require.True(t, e.Gate().TryRLock())
	e.Gate().RUnlock()
}

func TestEngine_RecordsMetadata(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)
	require.NoError(t, err)
	meta := metadata.NewSQLiteRepository(db)

	d := newDirs(t)
	require.NoError(t, d.Store.Write(Versions{"1", "2"}))
	e := NewEngine(&fakeAPI{Raw: json.RawMessage(`{"version_program":"1","version_extension":"2"}`)}, Options{
		Store: d.Store,
		Meta:  meta,
	}, logging.NewNop())
	fixed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	e.CheckAndUpdate(context.Background(), nil)

	ctx := context.Background()
	state, err := metadata.GetString(ctx, meta, metadata.KeyLastUpdateState)
	require.NoError(t, err)
	assert.Equal(t, string(StateNoChange), state)

	at, err := metadata.GetTime(ctx, meta, metadata.KeyLastUpdateCheck)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(at))
}

func TestEngine_Watch(t *testing.T) {
	d := newDirs(t)
	require.NoError(t, d.Store.Write(Versions{"1", "2"}))
	api := &fakeAPI{Raw: json.RawMessage(`{"version_program":"1","version_extension":"2"}`)}
	e := newTestEngine(t, api, d, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan Result, 4)
	go e.Watch(ctx, 5*time.Millisecond, nil, func(r Result) {
		select {
		case results <- r:
		default:
		}
	})

	select {
	case r := <-results:
		assert.False(t, r.UpdateRequired)
	case <-time.After(2 * time.Second):
		t.Fatal("watch produced no result")
	}
	cancel()
}
