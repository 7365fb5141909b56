package cli

import (
	"context"
	"fmt"
)

// Run исполняет одну команду CLI
func (c *Cli) Run(ctx context.Context, command string, sources KeySources, args []string) error {
	switch command {
	case "activate":
		return c.runActivate(ctx, sources, args)
	case "deactivate":
		return c.runDeactivate(ctx)
	case "status":
		return c.runStatus(ctx)
	case "pull":
		return c.runPull(ctx)
	case "trials":
		return c.runTrials(ctx)
	case "classes":
		return c.runClasses(ctx)
	case "entries":
		return c.runEntries(ctx, args)
	case "score":
		return c.runScore(ctx, args)
	case "sync":
		return c.runSync(ctx)
	case "queue":
		return c.runQueue(ctx)
	case "retry":
		return c.runRetry(ctx, args)
	case "discard":
		return c.runDiscard(ctx, args)
	default:
		PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}
