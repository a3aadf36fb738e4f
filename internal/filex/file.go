// Package filex holds filesystem helpers: directory materialisation,
// recursive copies and temp-then-rename swaps.
package filex

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	dirPerm  = 0o770
	filePerm = 0o660
)

// PathConflictError reports a path that exists but is not a directory.
type PathConflictError struct {
	Path string
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("path conflict: %s exists and is not a directory", e.Path)
}

// EnsureDir creates dir recursively unless it already is a directory.
func EnsureDir(dir string) error {
	fi, err := os.Stat(dir)
	switch {
	case err == nil && !fi.IsDir():
		return &PathConflictError{Path: dir}
	case err == nil:
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// EnsureDirs calls EnsureDir for each entry, stopping at the first failure.
// Empty entries are skipped.
func EnsureDirs(dirs ...string) error {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := EnsureDir(d); err != nil {
			return err
		}
	}
	return nil
}

// WriteFileAtomic writes data into a temp file next to path and renames it
// over path. Parent directories are created.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// CopyFile copies a single regular file, overwriting dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), dirPerm); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fi.Mode().Perm()|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// CopyTree recursively copies src into dst, overwriting existing files.
// onFileErr is called for every file that fails to copy; the walk continues.
// A nil onFileErr makes the first failure fatal.
func CopyTree(src, dst string, onFileErr func(rel string, err error)) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, dirPerm)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if err := CopyFile(path, target); err != nil {
			if onFileErr == nil {
				return fmt.Errorf("copy %s: %w", rel, err)
			}
			onFileErr(rel, err)
		}
		return nil
	})
}

// ReplaceDir swaps the fully prepared directory staged into dst.
// The previous dst, if any, is moved aside first and removed afterwards,
// so dst always holds either the old or the new tree.
func ReplaceDir(staged, dst string) error {
	old := dst + ".old"
	_ = os.RemoveAll(old)

	hadOld := true
	if err := os.Rename(dst, old); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("move aside %s: %w", dst, err)
		}
		hadOld = false
	}

	if err := os.Rename(staged, dst); err != nil {
		if hadOld {
			_ = os.Rename(old, dst)
		}
		return fmt.Errorf("swap %s: %w", dst, err)
	}

	if hadOld {
		_ = os.RemoveAll(old)
	}
	return nil
}

// ClearDir removes every entry inside dir but keeps dir itself.
func ClearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// MoveContents moves every top-level entry of src into dst, replacing
// entries of the same name. dst is created if missing.
func MoveContents(src, dst string) error {
	if err := os.MkdirAll(dst, dirPerm); err != nil {
		return fmt.Errorf("mkdir %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())

		if err := os.RemoveAll(to); err != nil {
			return fmt.Errorf("remove %s: %w", to, err)
		}
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("move %s: %w", e.Name(), err)
		}
	}
	return nil
}
