package extension

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/automailpro/internal/client/models"
	"github.com/dmitrijs2005/automailpro/internal/common"
	"github.com/dmitrijs2005/automailpro/internal/filex"
	"github.com/dmitrijs2005/automailpro/internal/logging"
	"github.com/dmitrijs2005/automailpro/internal/scenario"
)

// Family selects the template tree.
type Family string

const (
	Chromium Family = "chromium"
	Firefox  Family = "firefox"
)

var (
	ErrUnknownFamily = errors.New("unknown browser family")
	ErrNoTemplate    = errors.New("template directory missing")
	ErrBadOutputName = errors.New("email cannot be used as a directory name")
)

// ParseFamily accepts "chromium"/"chrome" and "firefox".
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "chromium", "chrome":
		return Chromium, nil
	case "firefox":
		return Firefox, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFamily, s)
}

// FileError is a per-file failure. It is recorded and the build goes on.
type FileError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// BuildResult describes one built extension.
type BuildResult struct {
	Email      string
	Dir        string
	FileErrors []*FileError
}

// Builder stamps per-account extensions under OutputDir.
type Builder struct {
	Templates map[Family]string
	OutputDir string
	Logger    logging.Logger
}

func NewBuilder(templates map[Family]string, outputDir string, log logging.Logger) *Builder {
	return &Builder{
		Templates: templates,
		OutputDir: outputDir,
		Logger:    log.With("component", "extension"),
	}
}

// Dir returns the output directory of email.
func (b *Builder) Dir(email string) string {
	return filepath.Join(b.OutputDir, email)
}

// Build materialises the extension of account. The output directory is
// replaced in one rename; readers see either the previous or the new
// build.
func (b *Builder) Build(ctx context.Context, account models.Account, family Family, program scenario.Program) (BuildResult, error) {
	res := BuildResult{Email: account.Email, Dir: b.Dir(account.Email)}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if !filepath.IsLocal(account.Email) || strings.ContainsAny(account.Email, `/\`) {
		return res, fmt.Errorf("%w: %q", ErrBadOutputName, account.Email)
	}

	tpl, ok := b.Templates[family]
	if !ok {
		return res, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}
	if fi, err := os.Stat(tpl); err != nil || !fi.IsDir() {
		return res, fmt.Errorf("%w: %s", ErrNoTemplate, tpl)
	}

	if err := os.MkdirAll(b.OutputDir, 0o755); err != nil {
		return res, err
	}
	staged := filepath.Join(b.OutputDir, ".build-"+uuid.NewString())
	defer os.RemoveAll(staged)

	log := b.Logger.With("email", account.Email, "family", family)
	record := func(path, op string, err error) {
		fe := &FileError{Path: path, Op: op, Err: err}
		res.FileErrors = append(res.FileErrors, fe)
		log.Warn(ctx, "extension file skipped", "path", path, "op", op, "error", err)
	}

	if err := filex.CopyTree(tpl, staged, func(rel string, err error) { record(rel, "copy", err) }); err != nil {
		return res, fmt.Errorf("copy template: %w", err)
	}

	traitement := filepath.Join(staged, common.TraitementFileName)
	if err := scenario.WriteTraitement(traitement, program); err != nil {
		record(common.TraitementFileName, "write", err)
	}

	b.substitute(staged, account, record)
	b.injectSearches(ctx, staged, traitement, record)

	if err := filex.ReplaceDir(staged, res.Dir); err != nil {
		return res, err
	}

	log.Info(ctx, "extension built", "dir", res.Dir, "file_errors", len(res.FileErrors))
	return res, nil
}

// substitute applies the account markers to every script in the tree.
func (b *Builder) substitute(root string, account models.Account, record func(path, op string, err error)) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			rel, _ := filepath.Rel(root, path)
			record(rel, "walk", err)
			return nil
		}
		if d.IsDir() || !IsScript(d.Name()) {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		if err := rewrite(path, func(s string) (string, error) {
			return replacer(d.Name(), account).Replace(s), nil
		}); err != nil {
			record(rel, "substitute", err)
		}
		return nil
	})
	if err != nil {
		record(".", "walk", err)
	}
}

// injectSearches writes the search values of google steps into the
// matching blocks of gmail_process.js.
func (b *Builder) injectSearches(ctx context.Context, root, traitement string, record func(path, op string, err error)) {
	program, err := scenario.ReadTraitement(traitement)
	if err != nil {
		record(common.TraitementFileName, "read", err)
		return
	}

	var targets []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && d.Name() == FileGmailProcess {
			targets = append(targets, path)
		}
		return nil
	})

	for _, path := range targets {
		rel, _ := filepath.Rel(root, path)
		err := rewrite(path, func(src string) (string, error) {
			for _, a := range program {
				if a.Search == nil || !strings.HasPrefix(a.Process, "google") {
					continue
				}
				quoted, err := quote(*a.Search)
				if err != nil {
					return "", err
				}
				out, _, err := InjectSearch(src, a.Process, quoted)
				switch {
				case errors.Is(err, ErrBlockNotFound):
				case err != nil:
					b.Logger.Warn(ctx, "search not injected", "file", rel, "process", a.Process, "error", err)
				default:
					src = out
				}
			}
			return src, nil
		})
		if err != nil {
			record(rel, "inject", err)
		}
	}
}

// quote renders s as a JSON string literal without HTML escaping.
func quote(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// rewrite replaces the content of path with fn(content), keeping its mode.
func rewrite(path string, fn func(string) (string, error)) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := fn(string(b))
	if err != nil {
		return err
	}
	if out == string(b) {
		return nil
	}
	return os.WriteFile(path, []byte(out), fi.Mode().Perm())
}

// Outcome is the result of one account in BuildAll.
type Outcome struct {
	Account models.Account
	Result  BuildResult
	Err     error
}

// BuildAll builds every account with at most workers concurrent builds.
// Outcomes are returned in account order; a failed account does not stop
// the others.
func (b *Builder) BuildAll(ctx context.Context, accounts []models.Account, family Family, program scenario.Program, workers int) []Outcome {
	out := make([]Outcome, len(accounts))

	var g errgroup.Group
	g.SetLimit(max(workers, 1))

	for i, acct := range accounts {
		out[i].Account = acct
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					b.Logger.Error(ctx, "extension build panic", "email", acct.Email, "panic", r, "stack", string(debug.Stack()))
					out[i].Err = fmt.Errorf("build %s: panic: %v", acct.Email, r)
				}
			}()
			out[i].Result, out[i].Err = b.Build(ctx, acct, family, program)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
