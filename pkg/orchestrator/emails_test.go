package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.txt")
	content := "# team accounts\na@x.com\n\nb@x.com\n  c@x.com  \na@x.com\n# trailing comment\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	emails, err := LoadEmails(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, emails)
}

func TestLoadEmailsMissingFile(t *testing.T) {
	_, err := LoadEmails(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
