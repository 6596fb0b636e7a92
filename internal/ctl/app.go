// Package ctl implements the vaultlinkctl commands: invitation generation
// and acceptance, peer listing and vault rekeying.
package ctl

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vaultlink/vaultlink/internal/app"
	"github.com/vaultlink/vaultlink/internal/config"
	"github.com/vaultlink/vaultlink/internal/logging"
	"github.com/vaultlink/vaultlink/internal/pairing"
	"github.com/vaultlink/vaultlink/internal/store"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	app     *app.App
	out     io.Writer
	pairing *pairing.Service
	store   *store.Store
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &App{
		config:  cfg,
		logger:  a.Logger(),
		app:     a,
		out:     os.Stdout,
		pairing: a.Pairing(),
		store:   a.Store(),
	}, nil
}

const usage = `usage: vaultlinkctl <command> [args]

commands:
  invite                    generate a pairing invitation and wait for a peer
  accept <payload>          accept an invitation payload from another device
  peers                     list known peer devices
  rekey <vault-id> <file>   re-encrypt a vault export under a new password
`

// Run dispatches a single command. Unknown commands print usage and fail.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "invite":
		return a.Invite(ctx)
	case "accept":
		if len(args) < 2 {
			return fmt.Errorf("accept: missing invitation payload")
		}
		return a.Accept(ctx, args[1])
	case "peers":
		return a.Peers(ctx)
	case "rekey":
		if len(args) < 3 {
			return fmt.Errorf("rekey: usage: rekey <vault-id> <file>")
		}
		return a.Rekey(ctx, args[1], args[2])
	case "help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}
