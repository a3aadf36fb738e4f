package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/automailpro/internal/client/client"
	"github.com/dmitrijs2005/automailpro/internal/client/models"
	"github.com/dmitrijs2005/automailpro/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/automailpro/internal/client/repositories/results"
	"github.com/dmitrijs2005/automailpro/internal/cryptox"
	"github.com/dmitrijs2005/automailpro/internal/extension"
	"github.com/dmitrijs2005/automailpro/internal/logging"
	"github.com/dmitrijs2005/automailpro/internal/profile"
	"github.com/dmitrijs2005/automailpro/internal/scenario"
)

var ErrNoAccounts = errors.New("no accounts to process")

// Installer registers a built extension in the account's browser profile.
type Installer interface {
	Install(ctx context.Context, account models.Account, family extension.Family, extDir string) (profile.Profile, error)
}

// RunOptions configure a RunService.
type RunOptions struct {
	Key            cryptox.Key
	TraitementFile string
	ResultsFile    string
	Workers        int
	// Rand seeds the compiler; nil uses a time-seeded source per run.
	Rand *rand.Rand
}

// AccountReport is the outcome of one account within a run.
type AccountReport struct {
	Account    models.Account
	Dir        string
	Profile    *profile.Profile
	Status     models.ResultStatus
	FileErrors int
	Err        error
}

// Report summarises a run.
type Report struct {
	RunID     string
	Program   scenario.Program
	Accounts  []AccountReport
	Completed int
	Failed    int
}

// RunService compiles a scenario, builds one extension per account and
// records the outcome.
type RunService struct {
	client    client.Client
	builder   *extension.Builder
	installer Installer
	results   results.Repository
	meta      metadata.Repository
	opts      RunOptions
	log       logging.Logger
}

// NewRunService wires a RunService. installer may be nil, in which case
// built extensions are left in the output directory.
func NewRunService(c client.Client, b *extension.Builder, installer Installer, repos *client.Repositories, opts RunOptions, log logging.Logger) *RunService {
	return &RunService{
		client:    c,
		builder:   b,
		installer: installer,
		results:   repos.Results,
		meta:      repos.Metadata,
		opts:      opts,
		log:       log,
	}
}

// Compile turns editor rows into a program without building anything.
func (s *RunService) Compile(rows []scenario.Row) scenario.Program {
	return scenario.NewCompiler(s.opts.Rand).Compile(rows)
}

// Run executes the whole pipeline for accounts under the session token.
// Per-account failures are reported, not returned; the error is reserved
// for failures that stop the run.
func (s *RunService) Run(ctx context.Context, token string, rows []scenario.Row, accounts []models.Account, family extension.Family) (Report, error) {
	claims, err := cryptox.DecodeSessionToken(token, s.opts.Key)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrNoSession, err)
	}
	if len(accounts) == 0 {
		return Report{}, ErrNoAccounts
	}

	rep := Report{RunID: uuid.NewString(), Program: s.Compile(rows)}
	log := s.log.With("run_id", rep.RunID, "user", claims.Username)

	if err := scenario.WriteTraitement(s.opts.TraitementFile, rep.Program); err != nil {
		return rep, fmt.Errorf("write traitement: %w", err)
	}

	raw, err := rep.Program.JSON()
	if err != nil {
		return rep, err
	}
	if r := s.client.SaveProcess(ctx, claims.Entity, raw); r == client.SaveFailed {
		log.Warn(ctx, "program not saved remotely")
	}
	for _, a := range accounts {
		if r := s.client.SaveEmail(ctx, claims.Entity, a.Email); r == client.SaveFailed {
			log.Warn(ctx, "email not saved remotely", "email", a.Email)
		}
	}

	outcomes := s.builder.BuildAll(ctx, accounts, family, rep.Program, s.opts.Workers)

	now := time.Now().UTC()
	records := make([]models.Result, 0, len(outcomes))
	for i, o := range outcomes {
		ar := s.account(ctx, o, family)
		rep.Accounts = append(rep.Accounts, ar)
		if ar.Status == models.StatusCompleted {
			rep.Completed++
		} else {
			rep.Failed++
			log.Error(ctx, "account failed", "email", ar.Account.Email, "error", ar.Err)
		}

		detail := ""
		if ar.Err != nil {
			detail = ar.Err.Error()
		}
		records = append(records, models.Result{
			RunID:     rep.RunID,
			Index:     i + 1,
			Email:     ar.Account.Email,
			Status:    ar.Status,
			Detail:    detail,
			CreatedAt: now,
		})
	}

	if err := s.results.InsertBatch(ctx, records); err != nil {
		return rep, fmt.Errorf("store results: %w", err)
	}
	if err := metadata.SetString(ctx, s.meta, metadata.KeyLastRunID, rep.RunID); err != nil {
		log.Warn(ctx, "last run id not stored", "error", err)
	}

	for _, ar := range rep.Accounts {
		if r := s.client.SendStatus(ctx, claims.Entity, ar.Account.Email, string(ar.Status)); r == client.SaveFailed {
			log.Warn(ctx, "status not sent", "email", ar.Account.Email)
		}
	}

	if s.opts.ResultsFile != "" {
		if err := results.ExportFile(s.opts.ResultsFile, records); err != nil {
			return rep, fmt.Errorf("export results: %w", err)
		}
	}

	log.Info(ctx, "run finished", "completed", rep.Completed, "failed", rep.Failed)
	return rep, nil
}

func (s *RunService) account(ctx context.Context, o extension.Outcome, family extension.Family) AccountReport {
	ar := AccountReport{
		Account:    o.Account,
		Dir:        o.Result.Dir,
		FileErrors: len(o.Result.FileErrors),
		Status:     models.StatusCompleted,
	}
	if o.Err != nil {
		ar.Status, ar.Err = models.StatusFailed, o.Err
		return ar
	}
	for _, fe := range o.Result.FileErrors {
		s.log.Warn(ctx, "extension file skipped", "email", o.Account.Email, "path", fe.Path, "op", fe.Op, "error", fe.Err)
	}

	if s.installer == nil {
		return ar
	}
	p, err := s.installer.Install(ctx, o.Account, family, o.Result.Dir)
	if err != nil {
		ar.Status, ar.Err = models.StatusFailed, err
		return ar
	}
	ar.Profile = &p
	return ar
}

// Results lists the stored results of runID, or of the latest run when
// runID is empty. The run id used is returned.
func (s *RunService) Results(ctx context.Context, runID string) (string, []models.Result, error) {
	if runID == "" {
		id, err := s.results.LatestRunID(ctx)
		if err != nil {
			return "", nil, err
		}
		runID = id
	}
	if runID == "" {
		return "", nil, nil
	}
	rs, err := s.results.ListByRun(ctx, runID)
	return runID, rs, err
}
