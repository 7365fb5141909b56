package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ringsync/ringsync/internal/client/auth"
	"github.com/ringsync/ringsync/internal/client/storage"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Device Status ===")
	c.io.Println()

	session, err := c.authService.Session(ctx)
	if err != nil && !errors.Is(err, auth.ErrSessionExpired) {
		if errors.Is(err, storage.ErrSessionNotFound) {
			c.io.Println("Status: Not activated")
			c.io.Println()
			c.io.Println("Run 'ringsync activate' with your license key.")
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}
	expired := errors.Is(err, auth.ErrSessionExpired)

	expiresAt := time.Unix(session.ExpiresAt, 0)

	c.io.Println("Status: Activated")
	c.io.Printf("Event:         %s\n", session.EventName)
	c.io.Printf("License:       %s\n", session.TenantID)
	c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))

	if expired {
		c.io.Println()
		c.io.Println("Token has expired. Re-activate with the license key to sync.")
	}

	// Состояние очереди: сколько записей ждет доставки и сколько в dead-letter
	pending, err := c.queue.CountPending(ctx, session.TenantID)
	if err != nil {
		return fmt.Errorf("failed to count pending mutations: %w", err)
	}

	failed, err := c.queue.ListFailed(ctx, session.TenantID)
	if err != nil {
		return fmt.Errorf("failed to list dead-letter mutations: %w", err)
	}

	c.io.Println()
	if pending > 0 {
		c.io.Printf("Pending sync: %d score(s) waiting for delivery\n", pending)
		c.io.Println("Run 'ringsync sync' to deliver them.")
	} else {
		c.io.Println("All scores delivered to the server.")
	}

	if len(failed) > 0 {
		c.io.Printf("Dead-letter: %d score(s) rejected or exhausted\n", len(failed))
		c.io.Println("Run 'ringsync queue' to inspect, then 'retry' or 'discard'.")
	}

	return nil
}
