package ctl

import (
	"context"
	"fmt"

	"github.com/vaultlink/vaultlink/internal/models"
)

// Accept decodes an out-of-band invitation payload and runs the accepting
// side of the pairing handshake.
func (a *App) Accept(ctx context.Context, payload string) error {
	inv, err := models.DecodeInvitationPayload(payload)
	if err != nil {
		return err
	}

	peer, err := a.pairing.AcceptInvitation(ctx, inv)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Paired with %s (%s) at %s:%d\n", peer.Name, peer.ID, peer.Address, peer.Port)
	return nil
}
