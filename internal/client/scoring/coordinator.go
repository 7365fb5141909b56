package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	httpClient "github.com/ringsync/ringsync/internal/client/api"
	"github.com/ringsync/ringsync/internal/client/bus"
	"github.com/ringsync/ringsync/internal/client/storage"
	"github.com/ringsync/ringsync/internal/models"
	"github.com/ringsync/ringsync/internal/validation"
	"github.com/ringsync/ringsync/pkg/api"
)

// ScoreInput содержит вводимые судьей данные оценки
type ScoreInput struct {
	EntryID     string
	Result      string
	JudgeName   string
	Points      float64
	TimeSeconds float64
	Faults      int
}

// Callbacks notify the caller about the eventual fate of a submission.
// Вызываются ровно один раз: либо на immediate-пути, либо когда фоновый
// drain доставит мутацию. Callbacks живут только в памяти процесса -
// после перезапуска итоги доставки видны через события шины и очередь.
type Callbacks struct {
	OnSuccess func(entry *models.Entry)
	OnError   func(err error)
}

// Coordinator applies score writes optimistically.
// Каждая запись сначала становится видимой локально (patch поверх зеркала)
// и попадает в очередь, затем доставляется на сервер - сразу, если есть
// связь, иначе фоновым drain. Локальное состояние никогда не ждет сети.
type Coordinator struct {
	mirror      storage.MirrorStorage
	queue       storage.QueueStorage
	apiClient   httpClient.ClientAPI
	events      *bus.Bus
	logger      *slog.Logger
	online      func() bool
	now         func() time.Time
	unsubscribe func()

	mu        sync.Mutex
	callbacks map[string]Callbacks // ключ - mutation ID
}

// NewCoordinator creates a new optimistic write coordinator.
// online сообщает, стоит ли пытаться доставить запись немедленно;
// nil означает "всегда пытаться" (транзиентная ошибка просто оставит
// мутацию в очереди).
func NewCoordinator(
	mirror storage.MirrorStorage,
	queue storage.QueueStorage,
	apiClient httpClient.ClientAPI,
	events *bus.Bus,
	logger *slog.Logger,
	online func() bool,
) *Coordinator {
	if online == nil {
		online = func() bool { return true }
	}
	return &Coordinator{
		mirror:    mirror,
		queue:     queue,
		apiClient: apiClient,
		events:    events,
		logger:    logger,
		online:    online,
		now:       time.Now,
		callbacks: make(map[string]Callbacks),
	}
}

// Start subscribes the coordinator to drain outcomes so deferred
// submissions get promoted or rolled back when the queue is drained
func (c *Coordinator) Start(tenantID string) {
	if c.events == nil {
		return
	}
	c.unsubscribe = c.events.Subscribe(bus.TopicSyncCompleted, func(event bus.Event) {
		completed, ok := event.(bus.SyncCompleted)
		if !ok || completed.TenantID != tenantID {
			return
		}
		ctx := context.Background()
		for _, outcome := range completed.Acked {
			c.handleAcked(ctx, tenantID, outcome)
		}
		for _, outcome := range completed.Rejected {
			c.handleRejected(ctx, tenantID, outcome)
		}
	})
}

// Close unsubscribes the coordinator from the event bus
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// SubmitScore records a score optimistically and attempts delivery.
// Возвращает ID мутации сразу после локальной фиксации: patch поверх
// зеркала и durable-запись в очереди. Ошибка возвращается только если
// запись не прошла валидацию или не зафиксировалась локально - сетевые
// итоги приходят через callbacks.
func (c *Coordinator) SubmitScore(ctx context.Context, tenantID, token string, input ScoreInput, cb Callbacks) (string, error) {
	if err := validation.ValidateResult(input.Result); err != nil {
		return "", err
	}
	if err := validation.ValidateScore(input.Points, input.TimeSeconds, input.Faults); err != nil {
		return "", err
	}

	mutationID := uuid.New().String()
	now := c.now()

	payload := &models.ScorePayload{
		MutationID:  mutationID,
		Result:      input.Result,
		JudgeName:   input.JudgeName,
		Points:      input.Points,
		Faults:      input.Faults,
		TimeSeconds: input.TimeSeconds,
		ScoredAt:    now.UnixMilli(),
	}

	// Оцениваемая сущность должна присутствовать в зеркале:
	// устройство судьи всегда делает pull до начала работы
	baseRow, err := c.mirror.Get(ctx, tenantID, models.TableEntries, input.EntryID)
	if err != nil {
		return "", fmt.Errorf("failed to load entry %s: %w", input.EntryID, err)
	}

	var entry models.Entry
	if err := json.Unmarshal(baseRow, &entry); err != nil {
		return "", fmt.Errorf("failed to decode entry %s: %w", input.EntryID, err)
	}

	patched, err := json.Marshal(entry.ApplyScore(payload))
	if err != nil {
		return "", fmt.Errorf("failed to encode patched entry: %w", err)
	}

	// Сначала optimistic patch: результат виден локально немедленно.
	// Новый patch замещает предыдущий для той же сущности.
	if err := c.mirror.ApplyPatch(ctx, tenantID, models.TableEntries, input.EntryID, patched); err != nil {
		return "", fmt.Errorf("failed to apply optimistic patch: %w", err)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode score payload: %w", err)
	}

	record := &models.MutationRecord{
		ID:        mutationID,
		Type:      models.MutationSubmitScore,
		TenantID:  tenantID,
		Table:     models.TableEntries,
		EntityID:  input.EntryID,
		Payload:   payloadJSON,
		CreatedAt: now,
	}

	// Durable-фиксация до любой сетевой попытки:
	// перезапуск процесса не теряет запись
	if err := c.queue.Enqueue(ctx, record); err != nil {
		if dropErr := c.mirror.DropPatch(ctx, tenantID, models.TableEntries, input.EntryID); dropErr != nil {
			c.logger.Error("Failed to roll back patch after enqueue failure",
				"entry_id", input.EntryID, "error", dropErr)
		}
		return "", fmt.Errorf("failed to enqueue mutation: %w", err)
	}

	c.logger.Info("Score recorded locally",
		"mutation_id", mutationID,
		"entry_id", input.EntryID,
		"result", input.Result)

	if !c.online() {
		// Offline: мутация дождется drain при восстановлении связи
		c.registerCallbacks(mutationID, cb)
		return mutationID, nil
	}

	c.deliverImmediately(ctx, tenantID, token, record, payload, cb)
	return mutationID, nil
}

// deliverImmediately пытается доставить запись на месте.
// Транзиентная неудача деградирует в очередь; перманентный отказ
// откатывает optimistic-состояние.
func (c *Coordinator) deliverImmediately(ctx context.Context, tenantID, token string, record *models.MutationRecord, payload *models.ScorePayload, cb Callbacks) {
	if err := c.queue.MarkInFlight(ctx, record.ID); err != nil {
		c.logger.Warn("Failed to mark mutation in-flight", "mutation_id", record.ID, "error", err)
		c.registerCallbacks(record.ID, cb)
		return
	}

	req := api.ScoreRequest{
		MutationID:  record.ID,
		Result:      payload.Result,
		Points:      payload.Points,
		Faults:      payload.Faults,
		TimeSeconds: payload.TimeSeconds,
		JudgeName:   payload.JudgeName,
		ScoredAt:    payload.ScoredAt,
	}

	resp, err := c.apiClient.SubmitScore(ctx, token, record.EntityID, req)
	if err == nil {
		if removeErr := c.queue.Remove(ctx, record.ID); removeErr != nil {
			c.logger.Error("Failed to remove acknowledged mutation", "mutation_id", record.ID, "error", removeErr)
		}
		c.promote(ctx, tenantID, record.EntityID, &resp.Entry)
		if cb.OnSuccess != nil {
			cb.OnSuccess(&resp.Entry)
		}
		return
	}

	if httpClient.IsPermanent(err) {
		c.logger.Warn("Score permanently rejected",
			"mutation_id", record.ID,
			"entry_id", record.EntityID,
			"error", err)
		if markErr := c.queue.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			c.logger.Error("Failed to dead-letter mutation", "mutation_id", record.ID, "error", markErr)
		}
		c.rollback(ctx, tenantID, record.EntityID)
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return
	}

	// Связь подвела: запись остается в очереди, фоновый drain доделает
	c.logger.Info("Immediate delivery failed, queued for background sync",
		"mutation_id", record.ID, "error", err)
	if markErr := c.queue.MarkPending(ctx, record.ID, err.Error()); markErr != nil {
		c.logger.Error("Failed to return mutation to pending", "mutation_id", record.ID, "error", markErr)
	}
	c.registerCallbacks(record.ID, cb)
	if c.events != nil {
		c.events.Publish(bus.SyncRequested{TenantID: tenantID, Reason: "immediate delivery failed"})
	}
}

// handleAcked обрабатывает подтвержденную фоновым drain мутацию
func (c *Coordinator) handleAcked(ctx context.Context, tenantID string, outcome bus.MutationOutcome) {
	if outcome.Table != models.TableEntries {
		return
	}

	cb, registered := c.takeCallbacks(outcome.MutationID)

	// Patch остается, пока для сущности есть более новые pending-мутации:
	// их optimistic-состояние новее только что подтвержденного
	count, err := c.queue.CountPendingForEntity(ctx, tenantID, outcome.EntityID)
	if err != nil {
		c.logger.Error("Failed to count pending mutations", "entity_id", outcome.EntityID, "error", err)
		return
	}

	var entry models.Entry
	row, err := c.mirror.Get(ctx, tenantID, models.TableEntries, outcome.EntityID)
	if err != nil {
		c.logger.Warn("Failed to load entry for promotion", "entity_id", outcome.EntityID, "error", err)
		return
	}
	if err := json.Unmarshal(row, &entry); err != nil {
		c.logger.Error("Failed to decode entry for promotion", "entity_id", outcome.EntityID, "error", err)
		return
	}

	if count == 0 {
		// Подтвержденная строка переезжает в базовую таблицу, patch снимается
		// одной транзакцией: чтения не увидят промежуточного отката
		if err := c.mirror.Promote(ctx, tenantID, models.TableEntries, outcome.EntityID, row); err != nil {
			c.logger.Error("Failed to promote confirmed entry", "entity_id", outcome.EntityID, "error", err)
			return
		}
	}

	if registered && cb.OnSuccess != nil {
		cb.OnSuccess(&entry)
	}
}

// handleRejected обрабатывает переведенную в dead-letter мутацию
func (c *Coordinator) handleRejected(ctx context.Context, tenantID string, outcome bus.MutationOutcome) {
	if outcome.Table != models.TableEntries {
		return
	}

	cb, registered := c.takeCallbacks(outcome.MutationID)

	c.rollback(ctx, tenantID, outcome.EntityID)

	if registered && cb.OnError != nil {
		cb.OnError(errors.New(outcome.Err))
	}
}

// promote записывает подтвержденную сервером строку, если нет более
// новых pending-мутаций для сущности
func (c *Coordinator) promote(ctx context.Context, tenantID, entityID string, confirmed *models.Entry) {
	count, err := c.queue.CountPendingForEntity(ctx, tenantID, entityID)
	if err != nil {
		c.logger.Error("Failed to count pending mutations", "entity_id", entityID, "error", err)
		return
	}
	if count > 0 {
		return
	}

	row, err := json.Marshal(confirmed)
	if err != nil {
		c.logger.Error("Failed to encode confirmed entry", "entity_id", entityID, "error", err)
		return
	}
	if err := c.mirror.Promote(ctx, tenantID, models.TableEntries, entityID, row); err != nil {
		c.logger.Error("Failed to promote confirmed entry", "entity_id", entityID, "error", err)
	}
}

// rollback снимает optimistic patch, если его не замещает более новая
// pending-мутация той же сущности
func (c *Coordinator) rollback(ctx context.Context, tenantID, entityID string) {
	count, err := c.queue.CountPendingForEntity(ctx, tenantID, entityID)
	if err != nil {
		c.logger.Error("Failed to count pending mutations", "entity_id", entityID, "error", err)
		return
	}
	if count > 0 {
		return
	}

	if err := c.mirror.DropPatch(ctx, tenantID, models.TableEntries, entityID); err != nil {
		c.logger.Warn("Failed to drop optimistic patch", "entity_id", entityID, "error", err)
	}
}

func (c *Coordinator) registerCallbacks(mutationID string, cb Callbacks) {
	if cb.OnSuccess == nil && cb.OnError == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks[mutationID] = cb
}

func (c *Coordinator) takeCallbacks(mutationID string) (Callbacks, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.callbacks[mutationID]
	if ok {
		delete(c.callbacks, mutationID)
	}
	return cb, ok
}
