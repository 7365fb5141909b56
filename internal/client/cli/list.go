package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runTrials(ctx context.Context) error {
	session, err := c.localSession(ctx)
	if err != nil {
		return err
	}

	trials, err := c.replication.Trials(ctx, session.TenantID)
	if err != nil {
		return err
	}

	if len(trials) == 0 {
		c.io.Println("No trials in the local mirror. Run 'ringsync pull' first.")
		return nil
	}

	c.io.Printf("=== Trials (%d) ===\n\n", len(trials))
	for _, trial := range trials {
		c.io.Printf("%s  %s\n", trial.ID, trial.Name)
		c.io.Printf("    Venue:  %s\n", trial.Venue)
		c.io.Printf("    Date:   %s\n", trial.Date.Format("2006-01-02"))
		c.io.Printf("    Status: %s\n", trial.Status)
		c.io.Println()
	}
	return nil
}

func (c *Cli) runClasses(ctx context.Context) error {
	session, err := c.localSession(ctx)
	if err != nil {
		return err
	}

	classes, err := c.replication.Classes(ctx, session.TenantID)
	if err != nil {
		return err
	}

	if len(classes) == 0 {
		c.io.Println("No classes in the local mirror. Run 'ringsync pull' first.")
		return nil
	}

	c.io.Printf("=== Classes (%d) ===\n\n", len(classes))
	for _, class := range classes {
		c.io.Printf("%s  %s\n", class.ID, class.Name)
		c.io.Printf("    Element: %s / %s\n", class.Element, class.Level)
		c.io.Printf("    Judge:   %s\n", class.JudgeName)
		c.io.Printf("    Entries: %d\n", class.EntryCount)
		c.io.Println()
	}
	return nil
}

func (c *Cli) runEntries(ctx context.Context, args []string) error {
	session, err := c.localSession(ctx)
	if err != nil {
		return err
	}

	var classID string
	if len(args) > 0 {
		classID = args[0]
	}

	entries, err := c.replication.Entries(ctx, session.TenantID)
	if err != nil {
		return err
	}

	shown := 0
	for _, entry := range entries {
		if classID != "" && entry.ClassID != classID {
			continue
		}
		if shown == 0 {
			c.io.Println("=== Entries ===")
			c.io.Println()
		}
		shown++

		c.io.Printf("%s  #%s %s (%s)\n", entry.ID, entry.ArmbandNumber, entry.DogName, entry.HandlerName)
		if entry.Scored {
			c.io.Printf("    Result: %s  points=%.1f  time=%.1fs  faults=%d  judge=%s\n",
				entry.Result, entry.Points, entry.TimeSeconds, entry.Faults, entry.JudgeName)
		} else {
			c.io.Printf("    Result: (not scored)\n")
		}
		c.io.Println()
	}

	if shown == 0 {
		if classID != "" {
			return fmt.Errorf("no entries for class %s in the local mirror", classID)
		}
		c.io.Println("No entries in the local mirror. Run 'ringsync pull' first.")
	}
	return nil
}
