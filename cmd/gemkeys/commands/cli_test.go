package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"golang.org/x/oauth2"

	"github.com/nholm/gemkeys/pkg/auth"
	"github.com/nholm/gemkeys/pkg/gcp"
	"github.com/nholm/gemkeys/pkg/history"
	"github.com/nholm/gemkeys/pkg/oskeyring"
	"github.com/nholm/gemkeys/pkg/statedb"
)

type cmdFixture struct {
	ctx   *cliCtx
	root  *cli
	out   *bytes.Buffer
	cloud *gcp.Fake
	hist  *history.MemoryStore
}

func newCmdFixture(t *testing.T, emails string) *cmdFixture {
	t.Helper()
	dir := t.TempDir()

	emailsFile := filepath.Join(dir, "emails.txt")
	assert.NoError(t, os.WriteFile(emailsFile, []byte(emails), 0o600))

	cloud := gcp.NewFake()
	hist := history.NewMemoryStore()
	out := &bytes.Buffer{}

	provider := &auth.StaticProvider{Tokens: map[string]*oauth2.Token{
		"a@x.com": {AccessToken: "tok-a", Expiry: time.Now().Add(time.Hour)},
	}}

	root := &cli{
		EmailsFile: emailsFile,
		StateFile:  filepath.Join(dir, "api_keys.json"),
		HistoryDB:  filepath.Join(dir, "history.db"),
	}
	ctx := &cliCtx{
		Context: context.Background(),
		Keyring: oskeyring.NewMemoryService(),
		Out:     out,
		Auth:    provider,
		Cloud: func(context.Context, *oauth2.Token) (gcp.Client, error) {
			return cloud, nil
		},
		History: hist,
	}
	return &cmdFixture{ctx: ctx, root: root, out: out, cloud: cloud, hist: hist}
}

func TestCreateCmd(t *testing.T) {
	f := newCmdFixture(t, "a@x.com\n")
	f.cloud.AddProject("proj-1", true)

	cmd := &CreateCmd{}
	err := cmd.Run(f.ctx, f.root)
	assert.NoError(t, err)

	out := f.out.String()
	assert.Contains(t, out, "Run summary: create")
	assert.Contains(t, out, "proj-1")
	assert.Contains(t, out, "created=1")

	db, err := statedb.Load(f.root.StateFile)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(db.Accounts["a@x.com"]))
	assert.Equal(t, 1, len(f.hist.Records()))
}

func TestCreateCmdDryRun(t *testing.T) {
	f := newCmdFixture(t, "a@x.com\n")
	f.cloud.AddProject("proj-1", true)

	cmd := &CreateCmd{DryRun: true}
	err := cmd.Run(f.ctx, f.root)
	assert.NoError(t, err)

	out := f.out.String()
	assert.Contains(t, out, "(dry run)")
	assert.Contains(t, out, "would create")

	_, statErr := os.Stat(f.root.StateFile)
	assert.True(t, os.IsNotExist(statErr), "dry-run must not create the state file")
	assert.Equal(t, 0, f.cloud.Mutations)
	assert.Equal(t, 0, len(f.hist.Records()))
}

func TestCreateCmdSingleEmailSkipsList(t *testing.T) {
	// The email list file is absent; --email must not need it.
	f := newCmdFixture(t, "")
	assert.NoError(t, os.Remove(f.root.EmailsFile))
	f.cloud.AddProject("proj-1", true)

	cmd := &CreateCmd{Email: "a@x.com"}
	err := cmd.Run(f.ctx, f.root)
	assert.NoError(t, err)
	assert.Contains(t, f.out.String(), "created=1")
}

func TestDeleteCmd(t *testing.T) {
	f := newCmdFixture(t, "a@x.com\n")
	f.cloud.AddProject("proj-1", true)

	create := &CreateCmd{}
	assert.NoError(t, create.Run(f.ctx, f.root))
	f.out.Reset()

	cmd := &DeleteCmd{Email: "a@x.com"}
	err := cmd.Run(f.ctx, f.root)
	assert.NoError(t, err)

	out := f.out.String()
	assert.Contains(t, out, "Run summary: delete")
	assert.Contains(t, out, "deleted=1")
	assert.Equal(t, 0, len(f.cloud.Keys["proj-1"]))
}

func TestHistoryCmdEmpty(t *testing.T) {
	f := newCmdFixture(t, "a@x.com\n")

	cmd := &HistoryCmd{Limit: 10}
	err := cmd.Run(f.ctx, f.root)
	assert.NoError(t, err)
	assert.Contains(t, f.out.String(), "no recorded runs")
}

func TestHistoryCmdListsRuns(t *testing.T) {
	f := newCmdFixture(t, "a@x.com\n")
	f.cloud.AddProject("proj-1", true)

	create := &CreateCmd{}
	assert.NoError(t, create.Run(f.ctx, f.root))
	f.out.Reset()

	cmd := &HistoryCmd{Limit: 10}
	err := cmd.Run(f.ctx, f.root)
	assert.NoError(t, err)

	out := f.out.String()
	assert.Contains(t, out, "create")
	assert.Contains(t, out, "accounts=1")
	assert.Contains(t, out, "created=1")
}
