// Package config holds the paths and Google Cloud constants shared across
// the gemkeys CLI. Flag and environment resolution happens in the command
// layer; the rest of the codebase receives an explicit Config struct.
package config

import "github.com/joho/godotenv"

const (
	// GenerativeLanguageService is the only service new API keys are
	// restricted to.
	GenerativeLanguageService = "generativelanguage.googleapis.com"

	// KeyDisplayName is the reserved display name marking keys managed by
	// gemkeys. It is the sole identifying marker used for idempotence and
	// deletion targeting.
	KeyDisplayName = "Gemini API Key"

	// LegacyKeyDisplayName is an older label some keys were created under.
	// It counts as managed for presence checks and deletion, but new keys
	// always use KeyDisplayName.
	LegacyKeyDisplayName = "Generative Language API Key"
)

// Scopes requested when authenticating an account.
var Scopes = []string{"https://www.googleapis.com/auth/cloud-platform"}

// Config carries the file locations and OAuth client settings for a run.
type Config struct {
	EmailsFile     string
	StateFile      string
	CredentialsDir string
	LogDir         string
	HistoryDB      string

	ClientID     string
	ClientSecret string
}

// LoadDotenv loads a .env file from the working directory into the process
// environment, if one exists. Values already set in the environment win.
func LoadDotenv() {
	_ = godotenv.Load()
}

// ManagedDisplayName reports whether a key display name identifies a key
// managed by this tool.
func ManagedDisplayName(name string) bool {
	return name == KeyDisplayName || name == LegacyKeyDisplayName
}
