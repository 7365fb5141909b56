package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/ringsync/ringsync/internal/client/scoring"
	"github.com/ringsync/ringsync/internal/models"
)

func (c *Cli) runScore(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing entry ID. Usage: ringsync score ENTRY_ID --result Q [--points N] [--time SECONDS] [--faults N] [--judge NAME]")
	}
	entryID := args[0]

	flags := flag.NewFlagSet("score", flag.ContinueOnError)
	result := flags.String("result", "", "result code: Q, NQ, EX, DQ or ABS")
	points := flags.Float64("points", 0, "points earned")
	timeSeconds := flags.Float64("time", 0, "run time in seconds")
	faults := flags.Int("faults", 0, "number of faults")
	judge := flags.String("judge", "", "judge name")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	input := scoring.ScoreInput{
		EntryID:     entryID,
		Result:      *result,
		JudgeName:   *judge,
		Points:      *points,
		TimeSeconds: *timeSeconds,
		Faults:      *faults,
	}

	// Immediate-путь координатора синхронный: к возврату SubmitScore
	// callbacks либо уже отработали, либо мутация осталась в очереди
	delivered := false
	var rejection error
	cb := scoring.Callbacks{
		OnSuccess: func(entry *models.Entry) {
			delivered = true
			c.io.Printf("Score confirmed by server: %s -> %s\n", entry.ID, entry.Result)
		},
		OnError: func(err error) {
			delivered = true
			rejection = err
		},
	}

	mutationID, err := c.coordinator.SubmitScore(ctx, session.TenantID, session.Token, input, cb)
	if err != nil {
		return fmt.Errorf("score not recorded: %w", err)
	}

	// Подтвержденный отказ сервера - это ошибка команды: скрипты должны
	// видеть ненулевой код выхода, оценка ушла в dead-letter
	if rejection != nil {
		return fmt.Errorf("score rejected by server: %w", rejection)
	}

	if !delivered {
		c.io.Println("Score recorded locally and queued for delivery.")
		c.io.Printf("Mutation: %s\n", mutationID)
		c.io.Println("Run 'ringsync sync' when the server is reachable.")
	}

	return nil
}
