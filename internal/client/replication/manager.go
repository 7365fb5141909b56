package replication

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	httpClient "github.com/ringsync/ringsync/internal/client/api"
	"github.com/ringsync/ringsync/internal/client/bus"
	"github.com/ringsync/ringsync/internal/client/storage"
	"github.com/ringsync/ringsync/internal/models"
)

// Manager handles pull-based refresh of the local mirror.
// Каждый pull забирает полный tenant-scoped snapshot таблицы и заменяет
// локальную копию целиком; при ошибке pull предыдущий snapshot остается
// нетронутым, так что offline-чтение продолжает работать.
type Manager struct {
	apiClient httpClient.ClientAPI
	mirror    storage.MirrorStorage
	metadata  storage.MetadataStorage
	events    *bus.Bus
	logger    *slog.Logger
}

// NewManager creates a new replication manager
func NewManager(
	apiClient httpClient.ClientAPI,
	mirror storage.MirrorStorage,
	metadata storage.MetadataStorage,
	events *bus.Bus,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		apiClient: apiClient,
		mirror:    mirror,
		metadata:  metadata,
		events:    events,
		logger:    logger,
	}
}

// PullResult contains per-table row counts of one pull pass
type PullResult struct {
	Tables map[string]int
}

// Pull refreshes all mirrored tables for a tenant.
// Таблицы обновляются по очереди, каждая - атомарным ReplaceAll.
// Ошибка на любой таблице прерывает проход; уже обновленные таблицы
// остаются обновленными (между таблицами нет кросс-табличной атомарности,
// это допустимо: каждая таблица сама по себе консистентный snapshot).
func (m *Manager) Pull(ctx context.Context, tenantID, token string) (*PullResult, error) {
	m.logger.Info("Starting mirror pull", "tenant_id", tenantID)

	result := &PullResult{Tables: make(map[string]int)}

	trials, err := m.apiClient.PullTrials(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("pull trials: %w", err)
	}
	rows := make(map[string][]byte, len(trials.Rows))
	for _, row := range trials.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("marshal trial %s: %w", row.ID, err)
		}
		rows[row.ID] = data
	}
	if err := m.replaceTable(ctx, tenantID, models.TableTrials, rows, trials.ServerTime); err != nil {
		return nil, err
	}
	result.Tables[models.TableTrials] = len(rows)

	classes, err := m.apiClient.PullClasses(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("pull classes: %w", err)
	}
	rows = make(map[string][]byte, len(classes.Rows))
	for _, row := range classes.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("marshal class %s: %w", row.ID, err)
		}
		rows[row.ID] = data
	}
	if err := m.replaceTable(ctx, tenantID, models.TableClasses, rows, classes.ServerTime); err != nil {
		return nil, err
	}
	result.Tables[models.TableClasses] = len(rows)

	entries, err := m.apiClient.PullEntries(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("pull entries: %w", err)
	}
	rows = make(map[string][]byte, len(entries.Rows))
	for _, row := range entries.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("marshal entry %s: %w", row.ID, err)
		}
		rows[row.ID] = data
	}
	if err := m.replaceTable(ctx, tenantID, models.TableEntries, rows, entries.ServerTime); err != nil {
		return nil, err
	}
	result.Tables[models.TableEntries] = len(rows)

	m.logger.Info("Mirror pull completed",
		"tenant_id", tenantID,
		"trials", result.Tables[models.TableTrials],
		"classes", result.Tables[models.TableClasses],
		"entries", result.Tables[models.TableEntries])

	return result, nil
}

// Run periodically pulls the mirror until the context is canceled.
// Ошибки pull логируются и не прерывают цикл: потеря связи - ожидаемое
// состояние, следующий тик попробует снова.
func (m *Manager) Run(ctx context.Context, tenantID, token string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Pull(ctx, tenantID, token); err != nil {
				m.logger.Warn("Periodic pull failed", "tenant_id", tenantID, "error", err)
			}
		}
	}
}

// Entries returns the mirrored entries for a tenant (patch-aware)
func (m *Manager) Entries(ctx context.Context, tenantID string) ([]models.Entry, error) {
	raw, err := m.mirror.GetAll(ctx, tenantID, models.TableEntries)
	if err != nil {
		return nil, fmt.Errorf("read entries mirror: %w", err)
	}

	entries := make([]models.Entry, 0, len(raw))
	for _, data := range raw {
		var entry models.Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Classes returns the mirrored classes for a tenant
func (m *Manager) Classes(ctx context.Context, tenantID string) ([]models.Class, error) {
	raw, err := m.mirror.GetAll(ctx, tenantID, models.TableClasses)
	if err != nil {
		return nil, fmt.Errorf("read classes mirror: %w", err)
	}

	classes := make([]models.Class, 0, len(raw))
	for _, data := range raw {
		var class models.Class
		if err := json.Unmarshal(data, &class); err != nil {
			return nil, fmt.Errorf("unmarshal class: %w", err)
		}
		classes = append(classes, class)
	}
	return classes, nil
}

// Trials returns the mirrored trials for a tenant
func (m *Manager) Trials(ctx context.Context, tenantID string) ([]models.Trial, error) {
	raw, err := m.mirror.GetAll(ctx, tenantID, models.TableTrials)
	if err != nil {
		return nil, fmt.Errorf("read trials mirror: %w", err)
	}

	trials := make([]models.Trial, 0, len(raw))
	for _, data := range raw {
		var trial models.Trial
		if err := json.Unmarshal(data, &trial); err != nil {
			return nil, fmt.Errorf("unmarshal trial: %w", err)
		}
		trials = append(trials, trial)
	}
	return trials, nil
}

// replaceTable заменяет snapshot таблицы, сохраняет метку pull
// и публикует событие обновления зеркала
func (m *Manager) replaceTable(ctx context.Context, tenantID, table string, rows map[string][]byte, serverTime int64) error {
	if err := m.mirror.ReplaceAll(ctx, tenantID, table, rows); err != nil {
		return fmt.Errorf("replace %s: %w", table, err)
	}

	if err := m.metadata.SaveLastPullTime(ctx, tenantID, table, serverTime); err != nil {
		// Метка pull не критична для корректности зеркала
		m.logger.Warn("Failed to save last pull time", "table", table, "error", err)
	}

	if m.events != nil {
		m.events.Publish(bus.MirrorUpdated{TenantID: tenantID, Table: table, Rows: len(rows)})
	}
	return nil
}
