package commands

import (
	"fmt"

	"github.com/nholm/gemkeys/pkg/auth"
	"github.com/nholm/gemkeys/pkg/gcp"
	"github.com/nholm/gemkeys/pkg/history"
	"github.com/nholm/gemkeys/pkg/orchestrator"
)

// setupOrchestrator wires the orchestrator from the root flags, honoring
// the cliCtx test seams. The returned closer releases the history store.
func setupOrchestrator(ctx *cliCtx, root *cli) (*orchestrator.Orchestrator, func() error, error) {
	provider := ctx.Auth
	if provider == nil {
		provider = auth.NewGoogleProvider(root.CredentialsDir, root.ClientID, root.ClientSecret, ctx.Keyring, ctx.Logger)
	}

	factory := ctx.Cloud
	if factory == nil {
		factory = gcp.NewClient
	}

	store := ctx.History
	closer := func() error { return nil }
	if store == nil {
		bolt, err := history.OpenBolt(root.HistoryDB)
		if err != nil {
			return nil, nil, fmt.Errorf("opening history database: %w", err)
		}
		store = bolt
		closer = bolt.Close
	}

	return &orchestrator.Orchestrator{
		Auth:       provider,
		NewCloud:   factory,
		History:    store,
		Logger:     ctx.Logger,
		StatePath:  root.StateFile,
		EmailsFile: root.EmailsFile,
	}, closer, nil
}
