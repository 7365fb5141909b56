package models

import (
	"encoding/json"
	"time"
)

// MutationType определяет вид отложенной записи в очереди
type MutationType string

const (
	// MutationSubmitScore отправка результата судейства для entry
	MutationSubmitScore MutationType = "submit_score"
)

// MutationStatus представляет состояние записи в конечном автомате очереди
type MutationStatus string

const (
	// StatusPending запись ожидает доставки на сервер
	StatusPending MutationStatus = "pending"
	// StatusInFlight запись в процессе доставки (drain начал отправку)
	StatusInFlight MutationStatus = "in_flight"
	// StatusFailed терминальный отказ (dead-letter), требует действия оператора
	StatusFailed MutationStatus = "failed"
)

// CanTransition проверяет допустимость перехода состояния мутации.
// Автомат:
//
//	pending   -> in_flight           (drain забрал запись)
//	in_flight -> pending             (транзиентная ошибка или abandoned recovery)
//	in_flight -> failed              (подтвержденный отказ сервера / исчерпаны попытки)
//	failed    -> pending             (оператор запросил повтор)
//
// Удаление записи разрешено только из in_flight (подтверждение сервера)
// и из failed (оператор отбросил запись) - это проверяется в хранилище очереди.
func CanTransition(from, to MutationStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusInFlight
	case StatusInFlight:
		return to == StatusPending || to == StatusFailed
	case StatusFailed:
		return to == StatusPending
	}
	return false
}

// MutationRecord представляет одну отложенную запись в durable-очереди.
// Запись существует с момента приема мутации координатором и до
// подтвержденной доставки на сервер (или явного discard оператором).
// Переживает перезапуск процесса: хранится в BoltDB до удаления.
type MutationRecord struct {
	CreatedAt time.Time       `json:"created_at"` // CreatedAt время создания, задает порядок доставки
	ID        string          `json:"id"`         // ID уникальный идентификатор мутации (UUID)
	Type      MutationType    `json:"type"`       // Type вид мутации
	TenantID  string          `json:"tenant_id"`  // TenantID ключ лицензии (партиционирование)
	Table     string          `json:"table"`      // Table зеркалируемая таблица, к которой относится мутация
	EntityID  string          `json:"entity_id"`  // EntityID серверный идентификатор сущности
	Status    MutationStatus  `json:"status"`     // Status текущее состояние в автомате
	LastError string          `json:"last_error"` // LastError последняя ошибка доставки (для failed/pending)
	Payload   json.RawMessage `json:"payload"`    // Payload данные мутации (JSON, специфичен для Type)
	Seq       uint64          `json:"seq"`        // Seq монотонный номер вставки, разрешает ties по CreatedAt
	Attempts  int             `json:"attempts"`   // Attempts количество завершенных drain-попыток
}

// Clone создает глубокую копию записи
func (m *MutationRecord) Clone() *MutationRecord {
	payload := make(json.RawMessage, len(m.Payload))
	copy(payload, m.Payload)

	clone := *m
	clone.Payload = payload
	return &clone
}

// ScorePayload представляет данные мутации submit_score.
// Это полный итоговый результат entry (overwrite, не дельта),
// поэтому повторная доставка одной и той же мутации безопасна.
type ScorePayload struct {
	Result      string  `json:"result"`       // Result итоговый результат: Q, NQ, EX, DQ, ABS
	JudgeName   string  `json:"judge_name"`   // JudgeName имя судьи, выставившего результат
	MutationID  string  `json:"mutation_id"`  // MutationID идентификатор мутации (tiebreak при равных ScoredAt)
	Points      float64 `json:"points"`       // Points набранные баллы
	Faults      int     `json:"faults"`       // Faults количество штрафов
	TimeSeconds float64 `json:"time_seconds"` // TimeSeconds время прохождения в секундах
	ScoredAt    int64   `json:"scored_at"`    // ScoredAt unix-время судейства в миллисекундах (LWW ключ)
}
