// Package statedb holds the durable record of every API key this tool has
// created. The database is a single JSON document keyed by account email,
// loaded once at run start and rewritten atomically once at run end. The
// orchestrator is its only writer; the reconciler proposes mutations but
// never persists.
package statedb

import (
	"errors"
	"fmt"
	"time"
)

// ErrCorrupt is returned when the state file exists but cannot be parsed.
// A run must not proceed against unknown prior state.
var ErrCorrupt = errors.New("state database is corrupt")

// Record states. A record goes inactive when its cloud key disappears out
// of band; the entry stays for audit instead of being silently dropped.
const (
	StateActive   = "active"
	StateInactive = "inactive"
)

// KeyRecord is the locally-tracked identity and secret material of one
// created key. The key string is captured once at creation; cloud listings
// cannot return it afterwards. Immutable apart from State.
type KeyRecord struct {
	ProjectID   string    `json:"project_id"`
	KeyID       string    `json:"key_id"`
	KeyName     string    `json:"key_name"`
	KeyString   string    `json:"key_string"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	State       string    `json:"state"`
}

// Database is the root document. Accounts maps email to that account's key
// records across all its projects.
type Database struct {
	SchemaVersion string                 `json:"schema_version"`
	GeneratedAt   time.Time              `json:"generated_at"`
	LastModified  time.Time              `json:"last_modified"`
	Accounts      map[string][]KeyRecord `json:"accounts"`
}

const schemaVersion = "1.0.0"

// New returns an empty database.
func New() *Database {
	now := time.Now().UTC()
	return &Database{
		SchemaVersion: schemaVersion,
		GeneratedAt:   now,
		LastModified:  now,
		Accounts:      make(map[string][]KeyRecord),
	}
}

// RecordsFor returns the records for one (account, project) pair.
func (db *Database) RecordsFor(email, projectID string) []KeyRecord {
	var out []KeyRecord
	for _, r := range db.Accounts[email] {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out
}

// AddRecord appends a record unless a record with the same key id already
// exists for the account.
func (db *Database) AddRecord(email string, rec KeyRecord) error {
	if rec.State == "" {
		rec.State = StateActive
	}
	for _, existing := range db.Accounts[email] {
		if existing.KeyID == rec.KeyID {
			return fmt.Errorf("key %s already recorded for %s", rec.KeyID, email)
		}
	}
	if db.Accounts == nil {
		db.Accounts = make(map[string][]KeyRecord)
	}
	db.Accounts[email] = append(db.Accounts[email], rec)
	return nil
}

// RemoveRecords drops the records with the given key ids for one
// (account, project) pair and returns how many were removed. Records for
// keys that were not named stay untouched.
func (db *Database) RemoveRecords(email, projectID string, keyIDs []string) int {
	drop := make(map[string]bool, len(keyIDs))
	for _, id := range keyIDs {
		drop[id] = true
	}

	kept := db.Accounts[email][:0]
	removed := 0
	for _, r := range db.Accounts[email] {
		if r.ProjectID == projectID && drop[r.KeyID] {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	if removed > 0 {
		db.Accounts[email] = kept
	}
	return removed
}

// MarkInactive flips the named records to the inactive state.
func (db *Database) MarkInactive(email, projectID string, keyIDs []string) {
	mark := make(map[string]bool, len(keyIDs))
	for _, id := range keyIDs {
		mark[id] = true
	}
	records := db.Accounts[email]
	for i := range records {
		if records[i].ProjectID == projectID && mark[records[i].KeyID] {
			records[i].State = StateInactive
		}
	}
}
