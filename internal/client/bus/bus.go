package bus

import (
	"encoding/json"
	"sync"
)

// Topic идентифицирует тип события на шине
type Topic string

const (
	// TopicSyncRequested запрос фонового drain (например, после неудачного
	// immediate-path или при восстановлении связи)
	TopicSyncRequested Topic = "sync.requested"
	// TopicSyncCompleted завершение drain-прохода с итогами
	TopicSyncCompleted Topic = "sync.completed"
	// TopicMirrorUpdated таблица зеркала обновлена успешным pull
	TopicMirrorUpdated Topic = "mirror.updated"
)

// Event представляет типизированное событие с фиксированной схемой.
// Шина заменяет нетипизированный broadcast между контекстами исполнения:
// подписчики получают конкретные структуры, а не произвольные payload-ы.
type Event interface {
	Topic() Topic
}

// SyncRequested просит sync engine выполнить drain при первой возможности
type SyncRequested struct {
	TenantID string // tenant, для которого запрошен drain
	Reason   string // причина запроса (diagnostics)
}

// Topic implements Event
func (SyncRequested) Topic() Topic { return TopicSyncRequested }

// MutationOutcome итог доставки одной мутации в drain-проходе.
// Payload дублируется из записи очереди, потому что подтвержденные записи
// уже удалены из очереди к моменту публикации события.
type MutationOutcome struct {
	MutationID string          // идентификатор мутации
	Table      string          // зеркалируемая таблица
	EntityID   string          // сущность, к которой относилась мутация
	Err        string          // текст ошибки для отклоненных мутаций
	Payload    json.RawMessage // payload мутации
}

// SyncCompleted итоги одного drain-прохода.
// Публикуется после полного прохода, чтобы подписчики (координатор, UI)
// могли обновить optimistic-состояние без поллинга очереди.
type SyncCompleted struct {
	TenantID string
	Acked    []MutationOutcome // подтвержденные сервером мутации
	Rejected []MutationOutcome // переведенные в dead-letter мутации
	Synced   int               // количество подтвержденных
	Failed   int               // количество отклоненных
	Skipped  int               // пропущенные (неизвестный тип мутации)
	Total    int               // всего записей в проходе
}

// Topic implements Event
func (SyncCompleted) Topic() Topic { return TopicSyncCompleted }

// MirrorUpdated таблица зеркала заменена новым snapshot-ом
type MirrorUpdated struct {
	TenantID string
	Table    string
	Rows     int
}

// Topic implements Event
func (MirrorUpdated) Topic() Topic { return TopicMirrorUpdated }

// Handler обрабатывает событие. Вызывается синхронно в горутине публикации:
// обработчики должны быть быстрыми и не блокироваться.
type Handler func(Event)

// Bus представляет in-process шину событий с подпиской по topic
type Bus struct {
	mu      sync.RWMutex
	subs    map[Topic][]subscription
	nextSub int
}

type subscription struct {
	handler Handler
	id      int
}

// New создает новую шину событий
func New() *Bus {
	return &Bus{
		subs: make(map[Topic][]subscription),
	}
}

// Subscribe регистрирует обработчик для topic.
// Возвращает функцию отписки.
func (b *Bus) Subscribe(topic Topic, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSub++
	id := b.nextSub
	b.subs[topic] = append(b.subs[topic], subscription{handler: handler, id: id})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subs[topic]
		for i, sub := range subs {
			if sub.id == id {
				b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish доставляет событие всем подписчикам его topic
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.subs[event.Topic()]
	handlers := make([]Handler, 0, len(subs))
	for _, sub := range subs {
		handlers = append(handlers, sub.handler)
	}
	b.mu.RUnlock()

	// Вызываем вне блокировки: обработчик может подписываться/отписываться
	for _, handler := range handlers {
		handler(event)
	}
}
