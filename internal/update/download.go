package update

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/automailpro/internal/common"
	"github.com/dmitrijs2005/automailpro/internal/filex"
	"github.com/dmitrijs2005/automailpro/internal/netx"
)

var (
	ErrEmptyArchive = errors.New("archive is empty")
	ErrUnsafePath   = errors.New("archive entry escapes target directory")
)

// Source yields an update archive.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (io.ReadCloser, error)

func (f SourceFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

func stopped(ctx context.Context, stop *atomic.Bool) error {
	if stop != nil && stop.Load() {
		return common.ErrStopped
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStopped, err)
	}
	return nil
}

// DownloadAndExtract streams the archive from src into a scratch directory
// under tempDir, validates it, extracts it and only then moves the result
// into target. With clear set, target is emptied before the move. The stop
// flag is polled between chunks and between phases; a stop leaves target
// untouched.
func DownloadAndExtract(ctx context.Context, src Source, target, tempDir string, clear bool, stop *atomic.Bool) error {
	if err := stopped(ctx, stop); err != nil {
		return err
	}

	if tempDir == "" {
		tempDir = filepath.Dir(target)
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}
	work := filepath.Join(tempDir, "update-"+uuid.NewString())
	if err := os.Mkdir(work, 0o755); err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(work)

	archive := filepath.Join(work, "archive.zip")
	if err := download(ctx, src, archive, stop); err != nil {
		return err
	}

	if err := stopped(ctx, stop); err != nil {
		return err
	}

	extracted := filepath.Join(work, "extract")
	if err := extract(ctx, archive, extracted, stop); err != nil {
		return err
	}

	if err := stopped(ctx, stop); err != nil {
		return err
	}

	if clear {
		if err := filex.ClearDir(target); err != nil {
			return fmt.Errorf("clear %s: %w", target, err)
		}
	}
	if err := filex.MoveContents(extracted, target); err != nil {
		return fmt.Errorf("install into %s: %w", target, err)
	}
	return nil
}

func download(ctx context.Context, src Source, dst string, stop *atomic.Bool) error {
	rc, err := src.Open(ctx)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return err
	}

	n, err := netx.CopyChunks(ctx, f, rc, stop)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if n == 0 {
		return ErrEmptyArchive
	}
	return nil
}

// extract unpacks archive into dir. Entries resolving outside dir are
// rejected; symlinks are skipped.
func extract(ctx context.Context, archive, dir string, stop *atomic.Bool) error {
	zr, err := zip.OpenReader(archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		zr.Close()
		return fmt.Errorf("%w: %w", ErrUnsafePath, err)
	}
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	if len(zr.File) == 0 {
		return ErrEmptyArchive
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, zf := range zr.File {
		if err := stopped(ctx, stop); err != nil {
			return err
		}

		name := filepath.FromSlash(zf.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, zf.Name)
		}
		dst := filepath.Join(dir, name)

		mode := zf.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return err
			}
		case mode&os.ModeSymlink != 0:
			continue
		default:
			if err := extractFile(zf, dst); err != nil {
				return fmt.Errorf("extract %s: %w", zf.Name, err)
			}
		}
	}
	return nil
}

func extractFile(zf *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	perm := zf.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
