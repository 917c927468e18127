package commands

import (
	"github.com/nholm/gemkeys/pkg/orchestrator"
	"github.com/nholm/gemkeys/pkg/runlog"
)

type CreateCmd struct {
	Email  string `optional:"" help:"Process only this account instead of the email list."`
	DryRun bool   `help:"Compute every decision without touching cloud state or the state database."`
}

func (c *CreateCmd) Run(ctx *cliCtx, root *cli) error {
	orch, closer, err := setupOrchestrator(ctx, root)
	if err != nil {
		return err
	}
	defer closer()

	report, err := orch.Run(ctx, orchestrator.Params{
		Action: orchestrator.ActionCreate,
		Email:  c.Email,
		DryRun: c.DryRun,
	})
	if err != nil {
		return err
	}

	runlog.Render(ctx.Out, report)
	return nil
}
