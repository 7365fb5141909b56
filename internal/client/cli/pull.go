package cli

import (
	"context"
	"fmt"

	"github.com/ringsync/ringsync/internal/models"
)

func (c *Cli) runPull(ctx context.Context) error {
	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	result, err := c.replication.Pull(ctx, session.TenantID, session.Token)
	if err != nil {
		return fmt.Errorf("pull failed (previous local data is kept): %w", err)
	}

	c.io.Println("Mirror refreshed.")
	c.io.Printf("Trials:  %d\n", result.Tables[models.TableTrials])
	c.io.Printf("Classes: %d\n", result.Tables[models.TableClasses])
	c.io.Printf("Entries: %d\n", result.Tables[models.TableEntries])

	return nil
}
