package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSync(ctx context.Context) error {
	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	result, err := c.engine.Drain(ctx, session.TenantID, session.Token)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if result.Total == 0 {
		c.io.Println("Queue is empty, nothing to sync.")
		return nil
	}

	c.io.Printf("Synced %d of %d queued score(s).\n", result.Synced, result.Total)
	if result.Failed > 0 {
		c.io.Printf("Dead-letter: %d (run 'ringsync queue' to inspect)\n", result.Failed)
	}
	if result.Skipped > 0 {
		c.io.Printf("Skipped: %d (unknown mutation type, kept in queue)\n", result.Skipped)
	}

	remaining, err := c.queue.CountPending(ctx, session.TenantID)
	if err == nil && remaining > 0 {
		c.io.Printf("Still pending: %d (delivery will be retried on next sync)\n", remaining)
	}

	return nil
}
