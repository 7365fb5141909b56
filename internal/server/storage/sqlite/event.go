package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ringsync/ringsync/internal/models"
	"github.com/ringsync/ringsync/internal/server/storage"
)

// ListTrials returns all trials of a tenant
func (s *Storage) ListTrials(ctx context.Context, tenantID string) ([]models.Trial, error) {
	query := `
		SELECT id, tenant_id, name, venue, status, date, updated_at
		FROM trials
		WHERE tenant_id = ?
		ORDER BY date, id
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials: %w", err)
	}
	defer rows.Close()

	trials := make([]models.Trial, 0)
	for rows.Next() {
		var trial models.Trial
		if err := rows.Scan(
			&trial.ID,
			&trial.TenantID,
			&trial.Name,
			&trial.Venue,
			&trial.Status,
			&trial.Date,
			&trial.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		trials = append(trials, trial)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trials: %w", err)
	}

	return trials, nil
}

// ListClasses returns all classes of a tenant
func (s *Storage) ListClasses(ctx context.Context, tenantID string) ([]models.Class, error) {
	query := `
		SELECT id, tenant_id, trial_id, name, element, level, judge_name, entry_count, updated_at
		FROM classes
		WHERE tenant_id = ?
		ORDER BY trial_id, name, id
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	classes := make([]models.Class, 0)
	for rows.Next() {
		var class models.Class
		if err := rows.Scan(
			&class.ID,
			&class.TenantID,
			&class.TrialID,
			&class.Name,
			&class.Element,
			&class.Level,
			&class.JudgeName,
			&class.EntryCount,
			&class.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, class)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate classes: %w", err)
	}

	return classes, nil
}

// ListEntries returns all entries of a tenant
func (s *Storage) ListEntries(ctx context.Context, tenantID string) ([]models.Entry, error) {
	query := `
		SELECT id, tenant_id, class_id, armband_number, dog_name, handler_name,
		       result, judge_name, score_mutation_id, points, time_seconds,
		       scored_at, faults, scored, updated_at
		FROM entries
		WHERE tenant_id = ?
		ORDER BY class_id, armband_number, id
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// GetEntry returns one entry by ID within a tenant
func (s *Storage) GetEntry(ctx context.Context, tenantID, entryID string) (*models.Entry, error) {
	return getEntryTx(ctx, s.db, tenantID, entryID)
}

// UpsertScore applies a score payload to an entry using the LWW rule.
// Сравнение и запись выполняются в одной транзакции: конкурентные
// доставки двух устройств не могут затереть более новую оценку.
func (s *Storage) UpsertScore(ctx context.Context, tenantID, entryID string, payload *models.ScorePayload) (*models.Entry, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback после commit безвреден

	current, err := getEntryTx(ctx, tx, tenantID, entryID)
	if err != nil {
		return nil, false, err
	}

	// Правило LWW общее с клиентом: повторная доставка той же мутации
	// и доставка устаревшей оценки не затирают более новую
	if current.Scored && !models.ScoreWins(payload.ScoredAt, payload.MutationID, current.ScoredAt, current.ScoreMutationID) {
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return current, false, nil
	}

	updated := current.ApplyScore(payload)
	updated.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE entries
		SET result = ?, judge_name = ?, score_mutation_id = ?, points = ?,
		    time_seconds = ?, scored_at = ?, faults = ?, scored = 1, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	if _, err := tx.ExecContext(ctx, query,
		updated.Result,
		updated.JudgeName,
		updated.ScoreMutationID,
		updated.Points,
		updated.TimeSeconds,
		updated.ScoredAt,
		updated.Faults,
		updated.UpdatedAt,
		tenantID,
		entryID,
	); err != nil {
		return nil, false, fmt.Errorf("failed to update entry score: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, true, nil
}

// PutTrial inserts or replaces a trial
func (s *Storage) PutTrial(ctx context.Context, trial *models.Trial) error {
	query := `
		INSERT INTO trials (id, tenant_id, name, venue, status, date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			venue = excluded.venue,
			status = excluded.status,
			date = excluded.date,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		trial.ID, trial.TenantID, trial.Name, trial.Venue, trial.Status, trial.Date, trial.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert trial: %w", err)
	}
	return nil
}

// PutClass inserts or replaces a class
func (s *Storage) PutClass(ctx context.Context, class *models.Class) error {
	query := `
		INSERT INTO classes (id, tenant_id, trial_id, name, element, level, judge_name, entry_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			trial_id = excluded.trial_id,
			name = excluded.name,
			element = excluded.element,
			level = excluded.level,
			judge_name = excluded.judge_name,
			entry_count = excluded.entry_count,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		class.ID, class.TenantID, class.TrialID, class.Name, class.Element,
		class.Level, class.JudgeName, class.EntryCount, class.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert class: %w", err)
	}
	return nil
}

// PutEntry inserts or replaces an entry.
// Поля результата при конфликте не трогаются: каталог заявок можно
// переимпортировать, не теряя уже выставленные оценки.
func (s *Storage) PutEntry(ctx context.Context, entry *models.Entry) error {
	query := `
		INSERT INTO entries (id, tenant_id, class_id, armband_number, dog_name, handler_name,
		                     result, judge_name, score_mutation_id, points, time_seconds,
		                     scored_at, faults, scored, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			class_id = excluded.class_id,
			armband_number = excluded.armband_number,
			dog_name = excluded.dog_name,
			handler_name = excluded.handler_name,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.TenantID, entry.ClassID, entry.ArmbandNumber, entry.DogName,
		entry.HandlerName, entry.Result, entry.JudgeName, entry.ScoreMutationID,
		entry.Points, entry.TimeSeconds, entry.ScoredAt, entry.Faults, entry.Scored,
		entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

// querier объединяет *sql.DB и *sql.Tx для общих чтений
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getEntryTx читает entry внутри произвольного querier
func getEntryTx(ctx context.Context, q querier, tenantID, entryID string) (*models.Entry, error) {
	query := `
		SELECT id, tenant_id, class_id, armband_number, dog_name, handler_name,
		       result, judge_name, score_mutation_id, points, time_seconds,
		       scored_at, faults, scored, updated_at
		FROM entries
		WHERE tenant_id = ? AND id = ?
	`

	entry, err := scanEntry(q.QueryRowContext(ctx, query, tenantID, entryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// rowScanner абстрагирует *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	entry := &models.Entry{}
	err := row.Scan(
		&entry.ID,
		&entry.TenantID,
		&entry.ClassID,
		&entry.ArmbandNumber,
		&entry.DogName,
		&entry.HandlerName,
		&entry.Result,
		&entry.JudgeName,
		&entry.ScoreMutationID,
		&entry.Points,
		&entry.TimeSeconds,
		&entry.ScoredAt,
		&entry.Faults,
		&entry.Scored,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}
	return entry, nil
}
