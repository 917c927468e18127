package reconcile

import (
	"github.com/nholm/gemkeys/pkg/gcp"
	"github.com/nholm/gemkeys/pkg/statedb"
)

// Tag names the result of reconciling one project.
type Tag string

const (
	TagCreated         Tag = "created"
	TagAlreadyPresent  Tag = "already-present"
	TagDeleted         Tag = "deleted"
	TagNotFound        Tag = "not-found"
	TagSkippedDisabled Tag = "skipped-service-disabled"
	TagPartialDelete   Tag = "partial-delete"
	TagError           Tag = "error"
)

// Outcome is the reconciler's proposal for one (account, project) pair.
// The orchestrator merges the record mutations into the state database;
// the reconciler itself never persists.
type Outcome struct {
	ProjectID string
	Tag       Tag

	// WouldHave marks a dry-run outcome whose converging side effect was
	// suppressed. The decision path is identical to a real run.
	WouldHave bool

	// ErrKind is set when Tag is TagError.
	ErrKind gcp.Kind
	Err     error

	// Created is the record for a newly created key.
	Created *statedb.KeyRecord
	// Adopted are records for live keys that had no local record (drift:
	// cloud has a key the database does not know about).
	Adopted []statedb.KeyRecord
	// DemotedKeyIDs are database records whose cloud key disappeared out
	// of band; they are marked inactive, not removed.
	DemotedKeyIDs []string
	// DeletedKeyIDs and FailedKeyIDs describe the delete path. Records
	// are removed only for keys actually deleted in the cloud.
	DeletedKeyIDs []string
	FailedKeyIDs  []string

	Detail string
}

// Label renders the tag for reports, expanding errors to error:<kind>.
func (o Outcome) Label() string {
	if o.Tag == TagError {
		return "error:" + string(o.ErrKind)
	}
	return string(o.Tag)
}

func errOutcome(projectID string, err error) Outcome {
	return Outcome{
		ProjectID: projectID,
		Tag:       TagError,
		ErrKind:   gcp.KindOf(err),
		Err:       err,
	}
}
