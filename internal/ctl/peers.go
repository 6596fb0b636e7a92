package ctl

import (
	"context"
	"fmt"
)

// Peers prints every device in the trust store.
func (a *App) Peers(ctx context.Context) error {
	peers, err := a.store.Peers.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(peers) == 0 {
		fmt.Fprintln(a.out, "No known peers.")
		return nil
	}

	for _, p := range peers {
		fmt.Fprintf(a.out, "%s  %-20s %-10s %s:%d  last seen %s\n",
			p.ID, p.Name, p.Status, p.Address, p.Port, p.LastSeenAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
