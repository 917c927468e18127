package commands

import (
	"github.com/nholm/gemkeys/pkg/orchestrator"
	"github.com/nholm/gemkeys/pkg/runlog"
)

type DeleteCmd struct {
	// Mandatory: deleting across all accounts implicitly is refused.
	Email  string `required:"" help:"Account whose managed keys are deleted."`
	DryRun bool   `help:"Report what would be deleted without deleting."`
}

func (c *DeleteCmd) Run(ctx *cliCtx, root *cli) error {
	orch, closer, err := setupOrchestrator(ctx, root)
	if err != nil {
		return err
	}
	defer closer()

	report, err := orch.Run(ctx, orchestrator.Params{
		Action: orchestrator.ActionDelete,
		Email:  c.Email,
		DryRun: c.DryRun,
	})
	if err != nil {
		return err
	}

	runlog.Render(ctx.Out, report)
	return nil
}
