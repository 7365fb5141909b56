package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/sethvargo/go-retry"

	httpClient "github.com/ringsync/ringsync/internal/client/api"
	"github.com/ringsync/ringsync/internal/client/bus"
	"github.com/ringsync/ringsync/internal/client/storage"
	"github.com/ringsync/ringsync/internal/models"
	"github.com/ringsync/ringsync/pkg/api"
)

// Sender доставляет одну мутацию на сервер, отображая payload в wire-формат
// конкретного типа мутации
type Sender func(ctx context.Context, token string, m *models.MutationRecord) error

// RetryPolicy задает явную политику повторов drain-прохода.
// Повторы внутри прохода: экспоненциальный backoff с верхней границей.
// Повторы между проходами: запись остается pending, но после
// MaxDrainAttempts завершенных неудачных попыток переводится в dead-letter,
// чтобы вечно падающая мутация не застревала в очереди незаметно.
type RetryPolicy struct {
	InitialBackoff   time.Duration // первая пауза между попытками внутри прохода
	MaxBackoff       time.Duration // верхняя граница паузы
	RetriesPerDrain  uint64        // дополнительные попытки внутри одного прохода
	MaxDrainAttempts int           // порог dead-letter по завершенным drain-попыткам
}

// DefaultRetryPolicy returns the policy used by the scoring device
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialBackoff:   500 * time.Millisecond,
		MaxBackoff:       10 * time.Second,
		RetriesPerDrain:  2,
		MaxDrainAttempts: 8,
	}
}

// Engine drains the offline mutation queue against the backend.
// Создается явно и передается потребителям (dependency injection),
// жизненный цикл Start/Close; никакого глобального singleton-состояния.
type Engine struct {
	queue       storage.QueueStorage
	events      *bus.Bus
	logger      *slog.Logger
	senders     map[models.MutationType]Sender
	policy      RetryPolicy
	unsubscribe func()
	drainMu     gosync.Mutex // сериализует drain-проходы внутри процесса
}

// NewEngine creates a new sync engine
func NewEngine(queue storage.QueueStorage, events *bus.Bus, logger *slog.Logger, policy RetryPolicy) *Engine {
	return &Engine{
		queue:   queue,
		events:  events,
		logger:  logger,
		policy:  policy,
		senders: make(map[models.MutationType]Sender),
	}
}

// RegisterSender registers the delivery mapping for one mutation type.
// Мутации незарегистрированных типов пропускаются при drain и остаются
// pending - их доставит версия кода, которая знает этот тип.
func (e *Engine) RegisterSender(mutationType models.MutationType, sender Sender) {
	e.senders[mutationType] = sender
}

// ScoreSender builds the Sender for submit_score mutations
func ScoreSender(apiClient httpClient.ClientAPI) Sender {
	return func(ctx context.Context, token string, m *models.MutationRecord) error {
		var payload models.ScorePayload
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			return fmt.Errorf("failed to decode score payload: %w", err)
		}

		req := api.ScoreRequest{
			MutationID:  m.ID,
			Result:      payload.Result,
			Points:      payload.Points,
			Faults:      payload.Faults,
			TimeSeconds: payload.TimeSeconds,
			JudgeName:   payload.JudgeName,
			ScoredAt:    payload.ScoredAt,
		}

		_, err := apiClient.SubmitScore(ctx, token, m.EntityID, req)
		return err
	}
}

// Start recovers abandoned in_flight records and subscribes to drain
// requests on the event bus. Вызывается один раз после открытия хранилища:
// in_flight запись на старте процесса - это брошенная на середине доставка
// (исполнение не переживает перезапуск), она возвращается в pending.
func (e *Engine) Start(ctx context.Context, tenantID, token string) error {
	requeued, err := e.queue.RequeueInFlight(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to requeue abandoned mutations: %w", err)
	}
	if requeued > 0 {
		e.logger.Info("Requeued abandoned in-flight mutations", "count", requeued)
	}

	if e.events != nil {
		e.unsubscribe = e.events.Subscribe(bus.TopicSyncRequested, func(event bus.Event) {
			req, ok := event.(bus.SyncRequested)
			if !ok || req.TenantID != tenantID {
				return
			}
			// Drain в отдельной горутине: обработчики шины не должны блокироваться
			go func() {
				if _, err := e.Drain(context.Background(), tenantID, token); err != nil {
					e.logger.Warn("Requested drain failed", "reason", req.Reason, "error", err)
				}
			}()
		})
	}

	return nil
}

// Close unsubscribes the engine from the event bus
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// DrainResult contains the outcome of one drain pass
type DrainResult struct {
	Synced  int // подтверждено сервером и удалено из очереди
	Failed  int // переведено в dead-letter
	Skipped int // пропущено (неизвестный тип мутации)
	Total   int // всего записей рассмотрено в проходе
}

// Drain attempts delivery of every pending mutation for a tenant.
// Мутации одной сущности доставляются в порядке создания внутри прохода
// (гарантируется порядком ListPending). Между проходами глобальный порядок
// не гарантируется - это допустимо, потому что мутации являются
// per-entity LWW overwrite, а не дельтами.
func (e *Engine) Drain(ctx context.Context, tenantID, token string) (*DrainResult, error) {
	e.drainMu.Lock()
	defer e.drainMu.Unlock()

	pending, err := e.queue.ListPending(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending mutations: %w", err)
	}

	e.logger.Info("Starting drain pass", "tenant_id", tenantID, "pending", len(pending))

	result := &DrainResult{Total: len(pending)}
	var acked, rejected []bus.MutationOutcome

	for _, m := range pending {
		sender, ok := e.senders[m.Type]
		if !ok {
			// Forward compatibility: тип из будущей версии кода
			e.logger.Warn("Skipping mutation of unknown type", "mutation_id", m.ID, "type", m.Type)
			result.Skipped++
			continue
		}

		if err := e.queue.MarkInFlight(ctx, m.ID); err != nil {
			// Запись уже забрал другой проход или удалил оператор
			e.logger.Debug("Failed to mark mutation in-flight", "mutation_id", m.ID, "error", err)
			result.Skipped++
			continue
		}

		deliverErr := e.deliver(ctx, token, sender, m)
		if deliverErr == nil {
			// Сервер подтвердил запись: единственный путь удаления из очереди
			if err := e.queue.Remove(ctx, m.ID); err != nil {
				e.logger.Error("Failed to remove acknowledged mutation", "mutation_id", m.ID, "error", err)
			}
			result.Synced++
			acked = append(acked, outcome(m, nil))
			continue
		}

		if httpClient.IsPermanent(deliverErr) {
			// Подтвержденный отказ сервера: dead-letter, повтор бессмыслен
			e.logger.Warn("Mutation permanently rejected",
				"mutation_id", m.ID,
				"entity_id", m.EntityID,
				"error", deliverErr)
			if err := e.queue.MarkFailed(ctx, m.ID, deliverErr.Error()); err != nil {
				e.logger.Error("Failed to dead-letter mutation", "mutation_id", m.ID, "error", err)
			}
			result.Failed++
			rejected = append(rejected, outcome(m, deliverErr))
			continue
		}

		// Транзиентная ошибка: запись остается pending для следующего прохода,
		// если не исчерпан лимит drain-попыток
		if m.Attempts+1 >= e.policy.MaxDrainAttempts {
			e.logger.Warn("Mutation exhausted drain attempts",
				"mutation_id", m.ID,
				"attempts", m.Attempts+1,
				"error", deliverErr)
			if err := e.queue.MarkFailed(ctx, m.ID, fmt.Sprintf("exhausted %d attempts: %v", m.Attempts+1, deliverErr)); err != nil {
				e.logger.Error("Failed to dead-letter mutation", "mutation_id", m.ID, "error", err)
			}
			result.Failed++
			rejected = append(rejected, outcome(m, deliverErr))
			continue
		}

		e.logger.Info("Mutation delivery failed, will retry next drain",
			"mutation_id", m.ID,
			"attempts", m.Attempts+1,
			"error", deliverErr)
		if err := e.queue.MarkPending(ctx, m.ID, deliverErr.Error()); err != nil {
			e.logger.Error("Failed to return mutation to pending", "mutation_id", m.ID, "error", err)
		}
	}

	e.logger.Info("Drain pass completed",
		"tenant_id", tenantID,
		"synced", result.Synced,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"total", result.Total)

	// Уведомляем подписчиков (координатор, UI) итогами прохода,
	// чтобы optimistic-состояние обновилось без поллинга
	if e.events != nil {
		e.events.Publish(bus.SyncCompleted{
			TenantID: tenantID,
			Acked:    acked,
			Rejected: rejected,
			Synced:   result.Synced,
			Failed:   result.Failed,
			Skipped:  result.Skipped,
			Total:    result.Total,
		})
	}

	return result, nil
}

// deliver выполняет доставку с ограниченным экспоненциальным backoff.
// Перманентные отказы прерывают повторы немедленно.
func (e *Engine) deliver(ctx context.Context, token string, sender Sender, m *models.MutationRecord) error {
	backoff := retry.NewExponential(e.policy.InitialBackoff)
	backoff = retry.WithCappedDuration(e.policy.MaxBackoff, backoff)
	backoff = retry.WithMaxRetries(e.policy.RetriesPerDrain, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := sender(ctx, token, m); err != nil {
			if httpClient.IsPermanent(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}

// outcome строит итог доставки мутации для события шины
func outcome(m *models.MutationRecord, err error) bus.MutationOutcome {
	o := bus.MutationOutcome{
		MutationID: m.ID,
		Table:      m.Table,
		EntityID:   m.EntityID,
		Payload:    m.Payload,
	}
	if err != nil {
		o.Err = err.Error()
	}
	return o
}
