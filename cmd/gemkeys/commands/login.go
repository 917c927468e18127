package commands

import (
	"github.com/nholm/gemkeys/pkg/auth"
)

type LoginCmd struct {
	Email string `required:"" help:"Account to authorize."`
}

func (c *LoginCmd) Run(ctx *cliCtx, root *cli) error {
	provider := auth.NewGoogleProvider(root.CredentialsDir, root.ClientID, root.ClientSecret, ctx.Keyring, ctx.Logger)
	ctx.Logger.Info("starting interactive authorization", "account", c.Email)
	return provider.Login(ctx, c.Email)
}
