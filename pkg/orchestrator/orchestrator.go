// Package orchestrator drives a full run: accounts in input order, each
// account's discovered projects in discovery order, one reconciliation per
// project. Account-scoped failures (token, project listing) and
// project-scoped failures are recorded and never abort the run; only
// configuration errors and a corrupt state database are fatal. The
// orchestrator is the single writer of the state database, merging
// accepted mutations and persisting once at run end.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nholm/gemkeys/pkg/auth"
	"github.com/nholm/gemkeys/pkg/gcp"
	"github.com/nholm/gemkeys/pkg/history"
	"github.com/nholm/gemkeys/pkg/reconcile"
	"github.com/nholm/gemkeys/pkg/statedb"
)

// Action selects the reconciliation direction of a run.
type Action string

const (
	ActionCreate Action = "create"
	ActionDelete Action = "delete"
)

// ErrConfiguration marks a bad invocation; the run aborts before any cloud
// call.
var ErrConfiguration = errors.New("configuration error")

// Orchestrator wires the collaborators for a run.
type Orchestrator struct {
	Auth       auth.Provider
	NewCloud   gcp.Factory
	History    history.Store // optional
	Logger     *slog.Logger
	StatePath  string
	EmailsFile string
}

// Params select what a run does.
type Params struct {
	Action Action
	// Email restricts the run to one account. Mandatory for delete: the
	// tool refuses an implicit all-accounts delete.
	Email  string
	DryRun bool
}

// Run executes one full run and returns its report. The returned error is
// non-nil only for fatal conditions (configuration, state corruption,
// persist failure); per-account and per-project failures are recorded in
// the report instead.
func (o *Orchestrator) Run(ctx context.Context, params Params) (*RunReport, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if params.Action != ActionCreate && params.Action != ActionDelete {
		return nil, fmt.Errorf("%w: unknown action %q", ErrConfiguration, params.Action)
	}
	if params.Action == ActionDelete && params.Email == "" {
		return nil, fmt.Errorf("%w: delete requires --email, refusing to delete across all accounts", ErrConfiguration)
	}

	var emails []string
	if params.Email != "" {
		emails = []string{params.Email}
	} else {
		var err error
		emails, err = LoadEmails(o.EmailsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		if len(emails) == 0 {
			return nil, fmt.Errorf("%w: no accounts in %s", ErrConfiguration, o.EmailsFile)
		}
	}

	db, err := statedb.Load(o.StatePath)
	if err != nil {
		return nil, err
	}

	report := &RunReport{
		Action:    params.Action,
		DryRun:    params.DryRun,
		StartedAt: time.Now().UTC(),
	}
	if params.DryRun {
		logger.Info("dry run: no cloud mutation and no persist will happen")
	}

	for _, email := range emails {
		report.Accounts = append(report.Accounts, o.runAccount(ctx, email, params, db, logger))
	}
	report.FinishedAt = time.Now().UTC()

	if !params.DryRun {
		if err := statedb.Save(db, o.StatePath); err != nil {
			return report, err
		}
		logger.Info("state database saved", "path", o.StatePath)
		if o.History != nil {
			rec := history.Record{
				StartedAt:  report.StartedAt,
				FinishedAt: report.FinishedAt,
				Action:     string(params.Action),
				DryRun:     false,
				Accounts:   len(report.Accounts),
				Counts:     report.Counts(),
			}
			if err := o.History.Append(ctx, rec); err != nil {
				logger.Warn("could not journal run", "error", err)
			}
		}
	}
	return report, nil
}

func (o *Orchestrator) runAccount(ctx context.Context, email string, params Params, db *statedb.Database, logger *slog.Logger) AccountReport {
	acct := AccountReport{Email: email}
	logger.Info("processing account", "account", email, "action", params.Action)

	token, err := o.Auth.GetValidToken(ctx, email)
	if err != nil {
		logger.Warn("skipping account, no valid token", "account", email, "error", err)
		acct.Err = fmt.Sprintf("auth: %v", err)
		return acct
	}

	cloud, err := o.NewCloud(ctx, token)
	if err != nil {
		acct.Err = fmt.Sprintf("cloud client: %v", err)
		return acct
	}

	projects, err := cloud.ListProjects(ctx)
	if err != nil {
		logger.Warn("skipping account, cannot list projects", "account", email, "error", err)
		acct.Err = fmt.Sprintf("list projects: %v", err)
		return acct
	}
	if len(projects) == 0 {
		logger.Warn("no projects visible to account", "account", email)
	}

	rec := reconcile.New(cloud, logger.With("account", email))
	for _, project := range projects {
		// Cancellation stops starting new reconciliations; an in-flight
		// cloud mutation is never abandoned.
		if ctx.Err() != nil {
			logger.Warn("run cancelled, remaining projects not processed", "account", email)
			break
		}

		var outcome reconcile.Outcome
		switch params.Action {
		case ActionCreate:
			outcome = rec.Create(ctx, project.ID, db.RecordsFor(email, project.ID), params.DryRun)
		case ActionDelete:
			outcome = rec.Delete(ctx, project.ID, params.DryRun)
		}

		if !params.DryRun {
			o.merge(db, email, outcome, logger)
		}
		acct.Projects = append(acct.Projects, projectOutcome(outcome))
	}
	return acct
}

// merge applies a reconciliation outcome to the state database. Only
// operations that actually succeeded against the cloud reach the database.
func (o *Orchestrator) merge(db *statedb.Database, email string, outcome reconcile.Outcome, logger *slog.Logger) {
	if outcome.Created != nil {
		if err := db.AddRecord(email, *outcome.Created); err != nil {
			logger.Warn("record already present", "account", email, "error", err)
		}
	}
	for _, adopted := range outcome.Adopted {
		if err := db.AddRecord(email, adopted); err != nil {
			logger.Warn("record already present", "account", email, "error", err)
		}
	}
	if len(outcome.DemotedKeyIDs) > 0 {
		db.MarkInactive(email, outcome.ProjectID, outcome.DemotedKeyIDs)
	}
	if len(outcome.DeletedKeyIDs) > 0 {
		db.RemoveRecords(email, outcome.ProjectID, outcome.DeletedKeyIDs)
	}
}
