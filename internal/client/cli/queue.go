package cli

import (
	"context"
	"fmt"

	"github.com/ringsync/ringsync/internal/models"
)

func (c *Cli) runQueue(ctx context.Context) error {
	session, err := c.localSession(ctx)
	if err != nil {
		return err
	}

	pending, err := c.queue.ListPending(ctx, session.TenantID)
	if err != nil {
		return fmt.Errorf("failed to list pending mutations: %w", err)
	}

	failed, err := c.queue.ListFailed(ctx, session.TenantID)
	if err != nil {
		return fmt.Errorf("failed to list dead-letter mutations: %w", err)
	}

	if len(pending) == 0 && len(failed) == 0 {
		c.io.Println("Queue is empty.")
		return nil
	}

	if len(pending) > 0 {
		c.io.Printf("=== Pending (%d) ===\n\n", len(pending))
		for _, m := range pending {
			c.printMutation(m)
		}
	}

	if len(failed) > 0 {
		c.io.Printf("=== Dead-letter (%d) ===\n\n", len(failed))
		for _, m := range failed {
			c.printMutation(m)
		}
		c.io.Println("Use 'ringsync retry MUTATION_ID' or 'ringsync discard MUTATION_ID'.")
	}

	return nil
}

func (c *Cli) printMutation(m *models.MutationRecord) {
	c.io.Printf("%s  %s %s\n", m.ID, m.Type, m.EntityID)
	c.io.Printf("    Status:   %s  attempts=%d\n", m.Status, m.Attempts)
	c.io.Printf("    Created:  %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"))
	if m.LastError != "" {
		c.io.Printf("    Error:    %s\n", m.LastError)
	}
	c.io.Println()
}

func (c *Cli) runRetry(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing mutation ID. Usage: ringsync retry MUTATION_ID")
	}
	mutationID := args[0]

	if _, err := c.localSession(ctx); err != nil {
		return err
	}

	m, err := c.queue.GetMutation(ctx, mutationID)
	if err != nil {
		return err
	}
	if m.Status != models.StatusFailed {
		return fmt.Errorf("mutation %s is %s, only dead-letter mutations can be retried", mutationID, m.Status)
	}

	if err := c.queue.MarkPending(ctx, mutationID, "operator retry"); err != nil {
		return fmt.Errorf("failed to requeue mutation: %w", err)
	}

	c.io.Printf("Mutation %s requeued. Run 'ringsync sync' to deliver it.\n", mutationID)
	return nil
}

func (c *Cli) runDiscard(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing mutation ID. Usage: ringsync discard MUTATION_ID")
	}
	mutationID := args[0]

	if _, err := c.localSession(ctx); err != nil {
		return err
	}

	m, err := c.queue.GetMutation(ctx, mutationID)
	if err != nil {
		return err
	}
	// Удаление pending-записи - это потеря не доставленной оценки,
	// поэтому discard разрешен только для dead-letter
	if m.Status != models.StatusFailed {
		return fmt.Errorf("mutation %s is %s, only dead-letter mutations can be discarded", mutationID, m.Status)
	}

	if err := c.queue.Remove(ctx, mutationID); err != nil {
		return fmt.Errorf("failed to discard mutation: %w", err)
	}

	c.io.Printf("Mutation %s discarded. The score was NOT delivered to the server.\n", mutationID)
	return nil
}
