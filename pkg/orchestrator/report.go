package orchestrator

import (
	"time"

	"github.com/nholm/gemkeys/pkg/reconcile"
)

// ProjectOutcome is the reported result for one (account, project) pair.
type ProjectOutcome struct {
	ProjectID     string   `json:"project_id"`
	Tag           string   `json:"tag"`
	WouldHave     bool     `json:"would_have,omitempty"`
	Detail        string   `json:"detail,omitempty"`
	DeletedKeyIDs []string `json:"deleted_key_ids,omitempty"`
	FailedKeyIDs  []string `json:"failed_key_ids,omitempty"`
}

// AccountReport holds one account's outcomes. Err is set when the whole
// account was skipped (token acquisition or project listing failed).
type AccountReport struct {
	Email    string           `json:"email"`
	Err      string           `json:"error,omitempty"`
	Projects []ProjectOutcome `json:"projects,omitempty"`
}

// RunReport is the full per-run summary. A dry run produces the same shape
// with DryRun set and WouldHave marking suppressed mutations.
type RunReport struct {
	Action     Action          `json:"action"`
	DryRun     bool            `json:"dry_run"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Accounts   []AccountReport `json:"accounts"`
}

// Counts tallies outcome tags across all accounts. Skipped accounts count
// under "account-skipped".
func (r *RunReport) Counts() map[string]int {
	counts := make(map[string]int)
	for _, acct := range r.Accounts {
		if acct.Err != "" {
			counts["account-skipped"]++
			continue
		}
		for _, p := range acct.Projects {
			counts[p.Tag]++
		}
	}
	return counts
}

func projectOutcome(o reconcile.Outcome) ProjectOutcome {
	return ProjectOutcome{
		ProjectID:     o.ProjectID,
		Tag:           o.Label(),
		WouldHave:     o.WouldHave,
		Detail:        o.Detail,
		DeletedKeyIDs: o.DeletedKeyIDs,
		FailedKeyIDs:  o.FailedKeyIDs,
	}
}
