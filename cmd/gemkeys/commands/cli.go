package commands

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/nholm/gemkeys/pkg/auth"
	"github.com/nholm/gemkeys/pkg/config"
	"github.com/nholm/gemkeys/pkg/gcp"
	"github.com/nholm/gemkeys/pkg/history"
	"github.com/nholm/gemkeys/pkg/oskeyring"
	"github.com/nholm/gemkeys/pkg/runlog"
)

// cliCtx is passed to every command's Run method. Auth, Cloud and History
// are test seams: when nil the real implementations are built from the
// root flags.
type cliCtx struct {
	context.Context
	Logger  *slog.Logger
	Keyring oskeyring.Service
	Out     io.Writer

	Auth    auth.Provider
	Cloud   gcp.Factory
	History history.Store
}

type cli struct {
	Debug          bool   `help:"Enable debug logging." env:"GEMKEYS_DEBUG"`
	EmailsFile     string `help:"Account list file, one email per line." default:"emails.txt" env:"GEMKEYS_EMAILS_FILE"`
	StateFile      string `help:"State database file." default:"api_keys.json" env:"GEMKEYS_STATE_FILE"`
	CredentialsDir string `help:"Directory holding per-account token files." default:"credentials" env:"GEMKEYS_CREDENTIALS_DIR"`
	LogDir         string `help:"Directory for per-run log files." default:"logs" env:"GEMKEYS_LOG_DIR"`
	HistoryDB      string `help:"Run history database file." default:"history.db" env:"GEMKEYS_HISTORY_DB"`
	ClientID       string `help:"OAuth client ID." env:"GEMKEYS_CLIENT_ID"`
	ClientSecret   string `help:"OAuth client secret (or store it in the OS keyring)." env:"GEMKEYS_CLIENT_SECRET"`

	Create  CreateCmd        `cmd:"" help:"Ensure a restricted Gemini API key exists in every reachable project."`
	Delete  DeleteCmd        `cmd:"" help:"Delete all managed Gemini API keys for one account."`
	Login   LoginCmd         `cmd:"" help:"Authorize an account interactively and store its token."`
	History HistoryCmd       `cmd:"" help:"Show past runs."`
	Version kong.VersionFlag `help:"Show version."`
}

// Execute parses arguments and runs the selected command.
func Execute(version string) {
	config.LoadDotenv()

	var cli cli
	kctx := kong.Parse(&cli,
		kong.UsageOnError(),
		kong.Name("gemkeys"),
		kong.Description("gemkeys provisions and revokes restricted Gemini API keys across every Google Cloud project reachable by your accounts."),
		kong.Vars{"version": version},
	)

	logger, closeLog, logPath, err := runlog.Setup(cli.LogDir, cli.Debug)
	kctx.FatalIfErrorf(err)
	defer closeLog()
	logger.Info("logging initialized", "file", logPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&cliCtx{
		Context: ctx,
		Logger:  logger,
		Keyring: oskeyring.NewOSService(),
		Out:     os.Stdout,
	})
	kctx.FatalIfErrorf(err)
}
