package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/automailpro/internal/client/models"
	"github.com/dmitrijs2005/automailpro/internal/extension"
	"github.com/dmitrijs2005/automailpro/internal/filex"
	"github.com/dmitrijs2005/automailpro/internal/scenario"
)

// Update checks the remote versions and, after confirmation, installs
// whatever is stale.
func (a *App) Update(ctx context.Context) error {
	plan := a.updates.Check(ctx)
	if plan.Err != nil {
		a.palette.failure.Fprintf(a.out, "Version check failed: %v\n", plan.Err)
	}
	if !plan.Required() {
		a.palette.info.Fprintf(a.out, "Already up to date (program %s, extension %s)\n", plan.Local.Program, plan.Local.Extension)
		return nil
	}

	a.palette.info.Fprintf(a.out, "Update available: program %s -> %s, extension %s -> %s\n",
		plan.Local.Program, plan.Remote.Program, plan.Local.Extension, plan.Remote.Extension)
	ok, err := GetConfirm(a.reader, "Apply update now?", a.out)
	if err != nil || !ok {
		return err
	}

	a.reportUpdate(ctx, a.updates.CheckAndUpdate(ctx, &a.stop), true)
	return nil
}

// Scenarios lists the scenarios saved on the server.
func (a *App) Scenarios(ctx context.Context) error {
	if !a.isLoggedIn() {
		return ErrNotLoggedIn
	}
	list := a.scenarios.LoadScenarios(ctx, a.status.Entity)
	if !list.Session {
		return fmt.Errorf("%w: server rejected the session", ErrNotLoggedIn)
	}
	if len(list.Scenarios) == 0 {
		a.palette.info.Fprintln(a.out, "No saved scenarios")
		return nil
	}
	for _, s := range list.Scenarios {
		fmt.Fprintf(a.out, "%-12s %s\n", s.ID, s.Name)
	}
	return nil
}

// Compile compiles the editor rows in rowsFile. The program is written to
// outFile, or printed when outFile is empty.
func (a *App) Compile(ctx context.Context, rowsFile, outFile string) error {
	rows, err := scenario.LoadRowsFile(rowsFile)
	if err != nil {
		return err
	}
	b, err := a.runs.Compile(rows).JSON()
	if err != nil {
		return err
	}
	if outFile == "" {
		fmt.Fprintln(a.out, string(b))
		return nil
	}
	if err := filex.WriteFileAtomic(outFile, b, 0o644); err != nil {
		return err
	}
	a.palette.success.Fprintf(a.out, "Program written to %s\n", outFile)
	return nil
}

// Build runs the full pipeline for the accounts in accountsFile.
func (a *App) Build(ctx context.Context, rowsFile, accountsFile, family string) error {
	fam, err := extension.ParseFamily(family)
	if err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	rows, err := scenario.LoadRowsFile(rowsFile)
	if err != nil {
		return err
	}
	accounts, err := models.LoadAccountsFile(accountsFile)
	if err != nil {
		return err
	}

	rep, err := a.runs.Run(ctx, a.status.Token, rows, accounts, fam)
	if err != nil {
		return err
	}

	for _, r := range rep.Accounts {
		if r.Err != nil {
			a.palette.failure.Fprintf(a.out, "  %-32s %s: %v\n", r.Account.Email, r.Status, r.Err)
			continue
		}
		a.palette.success.Fprintf(a.out, "  %-32s %s %s\n", r.Account.Email, r.Status, r.Dir)
	}
	a.palette.info.Fprintf(a.out, "Run %s: %d completed, %d failed\n", rep.RunID, rep.Completed, rep.Failed)
	return nil
}

// Results prints the stored results of runID, or of the latest run.
func (a *App) Results(ctx context.Context, runID string) error {
	id, rs, err := a.runs.Results(ctx, runID)
	if err != nil {
		return err
	}
	if len(rs) == 0 {
		a.palette.info.Fprintln(a.out, "No results")
		return nil
	}
	a.palette.info.Fprintf(a.out, "Run %s\n", id)
	for _, r := range rs {
		c := a.palette.success
		if r.Status != models.StatusCompleted {
			c = a.palette.failure
		}
		c.Fprintf(a.out, "%3d %-32s %-9s %s\n", r.Index, r.Email, r.Status, r.Detail)
	}
	return nil
}
