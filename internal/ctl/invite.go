package ctl

import (
	"context"
	"fmt"
	"time"

	"github.com/vaultlink/vaultlink/internal/eventhub"
	"github.com/vaultlink/vaultlink/internal/pairing"
)

// Invite generates a single-use pairing invitation, prints its out-of-band
// payload and waits for the peer to accept it (or for the invitation to
// expire).
func (a *App) Invite(ctx context.Context) error {
	sub := a.app.Hub().Subscribe(16)
	defer a.app.Hub().Unsubscribe(sub)

	inv, err := a.pairing.GenerateInvitation(ctx)
	if err != nil {
		return err
	}

	payload, err := inv.EncodePayload()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Invitation (valid until %s):\n\n%s\n\n", inv.ExpiresAt.Format(time.RFC3339), payload)
	fmt.Fprintln(a.out, "Run `vaultlinkctl accept <payload>` on the other device. Waiting...")

	for {
		select {
		case <-ctx.Done():
			a.pairing.Cancel()
			return ctx.Err()
		case ev, ok := <-sub.Events():
			if !ok {
				return fmt.Errorf("event stream closed")
			}
			if ev.Type != eventhub.EventPairingResult {
				continue
			}
			res, ok := ev.Payload.(pairing.Result)
			if !ok {
				continue
			}
			switch res.Status {
			case pairing.StatusCompleted:
				fmt.Fprintf(a.out, "Paired with device %s\n", res.PeerID)
				return nil
			case pairing.StatusExpired:
				return fmt.Errorf("invitation expired before it was accepted")
			case pairing.StatusFailed:
				return fmt.Errorf("pairing failed: %s", res.Error)
			}
		}
	}
}
