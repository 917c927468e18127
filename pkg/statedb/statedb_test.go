package statedb

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(project, keyID string) KeyRecord {
	return KeyRecord{
		ProjectID:   project,
		KeyID:       keyID,
		KeyName:     "projects/" + project + "/locations/global/keys/" + keyID,
		KeyString:   "AIza-" + keyID,
		DisplayName: "Gemini API Key",
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		State:       StateActive,
	}
}

func TestRoundTrip(t *testing.T) {
	cases := map[string]func(*Database){
		"empty": func(db *Database) {},
		"one account one record": func(db *Database) {
			require.NoError(t, db.AddRecord("a@x.com", record("p1", "k1")))
		},
		"many accounts many records": func(db *Database) {
			require.NoError(t, db.AddRecord("a@x.com", record("p1", "k1")))
			require.NoError(t, db.AddRecord("a@x.com", record("p2", "k2")))
			require.NoError(t, db.AddRecord("b@x.com", record("p3", "k3")))
			db.Accounts["c@x.com"] = []KeyRecord{}
		},
	}

	for name, populate := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			db := New()
			populate(db)

			require.NoError(t, Save(db, path))
			loaded, err := Load(path)
			require.NoError(t, err)

			assert.Equal(t, db.SchemaVersion, loaded.SchemaVersion)
			assert.Equal(t, len(db.Accounts), len(loaded.Accounts))
			for email, records := range db.Accounts {
				assert.Equal(t, records, loaded.Accounts[email], "account %s", email)
			}
		})
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	db, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, db.Accounts)
	assert.Equal(t, "1.0.0", db.SchemaVersion)
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadToleratesHandEditedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	db := New()
	require.NoError(t, db.AddRecord("a@x.com", record("p1", "k1")))
	require.NoError(t, db.AddRecord("a@x.com", record("p2", "k2")))
	require.NoError(t, Save(db, path))

	// Simulate a hand edit removing one record.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	var accounts map[string][]KeyRecord
	require.NoError(t, json.Unmarshal(doc["accounts"], &accounts))
	accounts["a@x.com"] = accounts["a@x.com"][:1]
	edited, err := json.Marshal(accounts)
	require.NoError(t, err)
	doc["accounts"] = edited
	data, err = json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Accounts["a@x.com"], 1)
	assert.Equal(t, "k1", loaded.Accounts["a@x.com"][0].KeyID)
}

func TestAddRecordRejectsDuplicateKeyID(t *testing.T) {
	db := New()
	require.NoError(t, db.AddRecord("a@x.com", record("p1", "k1")))
	assert.Error(t, db.AddRecord("a@x.com", record("p1", "k1")))
	assert.Len(t, db.Accounts["a@x.com"], 1)
}

func TestRemoveRecordsOnlyNamedKeys(t *testing.T) {
	db := New()
	require.NoError(t, db.AddRecord("a@x.com", record("p1", "k1")))
	require.NoError(t, db.AddRecord("a@x.com", record("p1", "k2")))
	require.NoError(t, db.AddRecord("a@x.com", record("p2", "k3")))

	removed := db.RemoveRecords("a@x.com", "p1", []string{"k1"})
	assert.Equal(t, 1, removed)

	remaining := db.Accounts["a@x.com"]
	require.Len(t, remaining, 2)
	assert.Equal(t, "k2", remaining[0].KeyID)
	assert.Equal(t, "k3", remaining[1].KeyID)

	// Same key id under a different project is untouched.
	assert.Equal(t, 0, db.RemoveRecords("a@x.com", "p2", []string{"k2"}))
}

func TestMarkInactive(t *testing.T) {
	db := New()
	require.NoError(t, db.AddRecord("a@x.com", record("p1", "k1")))
	require.NoError(t, db.AddRecord("a@x.com", record("p1", "k2")))

	db.MarkInactive("a@x.com", "p1", []string{"k1"})

	records := db.RecordsFor("a@x.com", "p1")
	require.Len(t, records, 2)
	assert.Equal(t, StateInactive, records[0].State)
	assert.Equal(t, StateActive, records[1].State)
}

func TestSaveIsAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	first := New()
	require.NoError(t, first.AddRecord("a@x.com", record("p1", "k1")))
	require.NoError(t, Save(first, path))

	second := New()
	require.NoError(t, second.AddRecord("b@x.com", record("p2", "k2")))
	require.NoError(t, Save(second, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Accounts, 1)
	assert.Contains(t, loaded.Accounts, "b@x.com")

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
