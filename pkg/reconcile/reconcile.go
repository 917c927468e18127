// Package reconcile decides, per project, whether a managed API key should
// exist and converges cloud state to that decision. Presence is determined
// from both the local state database and a live key listing: the live
// listing is authoritative for existence, the database check preserves
// locally-tracked secret material and surfaces drift. Under dry-run the
// same decision path runs with every mutating call suppressed.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nholm/gemkeys/pkg/config"
	"github.com/nholm/gemkeys/pkg/gcp"
	"github.com/nholm/gemkeys/pkg/statedb"
)

// Reconciler converges one (account, project) pair at a time. It holds no
// state between calls.
type Reconciler struct {
	cloud  gcp.Client
	logger *slog.Logger
}

// New builds a Reconciler over one account's cloud client.
func New(cloud gcp.Client, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{cloud: cloud, logger: logger}
}

// Create ensures exactly one managed key exists in the project. records are
// the state database entries for this (account, project) pair; the caller
// merges the outcome's proposed mutations back into the database.
func (r *Reconciler) Create(ctx context.Context, projectID string, records []statedb.KeyRecord, dryRun bool) Outcome {
	enabled, err := r.cloud.IsServiceEnabled(ctx, projectID)
	if err != nil {
		return errOutcome(projectID, err)
	}
	if !enabled {
		if dryRun {
			r.logger.Info("would enable service", "project", projectID)
		} else if err := r.cloud.EnableService(ctx, projectID); err != nil {
			// Enablement failure is a skip, not a run-level error. The
			// cause still lands in the report so a permissions problem
			// is not silently masked.
			r.logger.Warn("could not enable service", "project", projectID, "error", err)
			return Outcome{
				ProjectID: projectID,
				Tag:       TagSkippedDisabled,
				Detail:    fmt.Sprintf("enable failed (%s)", gcp.KindOf(err)),
			}
		}
	}

	live, err := r.cloud.ListKeys(ctx, projectID)
	if err != nil {
		return errOutcome(projectID, err)
	}
	managed := filterManaged(live)
	liveIDs := make(map[string]bool, len(managed))
	for _, k := range managed {
		liveIDs[k.ID] = true
	}

	active := activeRecords(records)

	if len(managed) > 0 {
		out := Outcome{ProjectID: projectID, Tag: TagAlreadyPresent}

		// Demote records whose key no longer exists in the cloud.
		for _, rec := range active {
			if !liveIDs[rec.KeyID] {
				out.DemotedKeyIDs = append(out.DemotedKeyIDs, rec.KeyID)
			}
		}

		// Adopt live keys the database does not know about, so the key
		// string is not lost to future runs.
		recorded := make(map[string]bool, len(records))
		for _, rec := range records {
			recorded[rec.KeyID] = true
		}
		for _, k := range managed {
			if recorded[k.ID] {
				continue
			}
			if dryRun {
				out.Detail = fmt.Sprintf("would adopt key %s", k.ID)
				continue
			}
			secret, err := r.cloud.GetKeyString(ctx, k.Name)
			if err != nil {
				if gcp.IsPermission(err) {
					r.logger.Warn("cannot read key string for adoption", "project", projectID, "key", k.ID)
					continue
				}
				return errOutcome(projectID, err)
			}
			out.Adopted = append(out.Adopted, statedb.KeyRecord{
				ProjectID:   projectID,
				KeyID:       k.ID,
				KeyName:     k.Name,
				KeyString:   secret,
				DisplayName: k.DisplayName,
				CreatedAt:   k.CreateTime,
				State:       statedb.StateActive,
			})
			r.logger.Info("adopted unrecorded key", "project", projectID, "key", k.ID)
		}
		return out
	}

	// No managed key in the cloud. Any active record is drift from an
	// out-of-band deletion: demote it and create a fresh key.
	out := Outcome{ProjectID: projectID, Tag: TagCreated}
	for _, rec := range active {
		r.logger.Warn("recorded key missing from cloud", "project", projectID, "key", rec.KeyID)
		out.DemotedKeyIDs = append(out.DemotedKeyIDs, rec.KeyID)
	}

	if dryRun {
		out.WouldHave = true
		return out
	}

	created, err := r.cloud.CreateKey(ctx, projectID)
	if err != nil {
		// Keep the demotions: the drift was observed regardless of
		// whether the replacement key could be created.
		failed := errOutcome(projectID, err)
		failed.DemotedKeyIDs = out.DemotedKeyIDs
		return failed
	}
	out.Created = &statedb.KeyRecord{
		ProjectID:   projectID,
		KeyID:       created.ID,
		KeyName:     created.Name,
		KeyString:   created.KeyString,
		DisplayName: created.DisplayName,
		CreatedAt:   created.CreateTime,
		State:       statedb.StateActive,
	}
	r.logger.Info("created restricted key", "project", projectID, "key", created.ID)
	return out
}

// Delete removes every managed key from the project. The live listing is
// authoritative; a project may hold several managed keys from out-of-band
// creation and all of them are removed. Records are proposed for removal
// only for keys whose cloud deletion succeeded.
func (r *Reconciler) Delete(ctx context.Context, projectID string, dryRun bool) Outcome {
	live, err := r.cloud.ListKeys(ctx, projectID)
	if err != nil {
		return errOutcome(projectID, err)
	}
	managed := filterManaged(live)
	if len(managed) == 0 {
		return Outcome{ProjectID: projectID, Tag: TagNotFound}
	}

	out := Outcome{ProjectID: projectID}
	var firstErr error
	for _, k := range managed {
		if dryRun {
			out.DeletedKeyIDs = append(out.DeletedKeyIDs, k.ID)
			r.logger.Info("would delete key", "project", projectID, "key", k.ID)
			continue
		}
		if err := r.cloud.DeleteKey(ctx, k.Name); err != nil {
			out.FailedKeyIDs = append(out.FailedKeyIDs, k.ID)
			if firstErr == nil {
				firstErr = err
			}
			r.logger.Warn("failed to delete key", "project", projectID, "key", k.ID, "error", err)
			continue
		}
		out.DeletedKeyIDs = append(out.DeletedKeyIDs, k.ID)
		r.logger.Info("deleted key", "project", projectID, "key", k.ID)
	}

	switch {
	case len(out.FailedKeyIDs) == 0:
		out.Tag = TagDeleted
		out.WouldHave = dryRun
	case len(out.DeletedKeyIDs) > 0:
		out.Tag = TagPartialDelete
		out.ErrKind = gcp.KindOf(firstErr)
		out.Err = firstErr
	default:
		out.Tag = TagError
		out.ErrKind = gcp.KindOf(firstErr)
		out.Err = firstErr
	}
	return out
}

func filterManaged(keys []gcp.Key) []gcp.Key {
	var out []gcp.Key
	for _, k := range keys {
		if config.ManagedDisplayName(k.DisplayName) {
			out = append(out, k)
		}
	}
	return out
}

func activeRecords(records []statedb.KeyRecord) []statedb.KeyRecord {
	var out []statedb.KeyRecord
	for _, r := range records {
		if r.State == statedb.StateActive {
			out = append(out, r)
		}
	}
	return out
}
