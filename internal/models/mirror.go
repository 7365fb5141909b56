package models

import "time"

// Имена зеркалируемых таблиц. Клиент хранит локальную копию каждой из них
// и обновляет её целиком при каждом успешном pull.
const (
	TableTrials  = "trials"
	TableClasses = "classes"
	TableEntries = "entries"
)

// MirrorTables список всех зеркалируемых таблиц в порядке pull
var MirrorTables = []string{TableTrials, TableClasses, TableEntries}

// Trial представляет одно соревнование (испытание)
type Trial struct {
	Date      time.Time `json:"date"`       // Date дата проведения
	UpdatedAt time.Time `json:"updated_at"` // UpdatedAt время последнего изменения на сервере
	ID        string    `json:"id"`         // ID серверный идентификатор (UUID)
	TenantID  string    `json:"tenant_id"`  // TenantID ключ лицензии
	Name      string    `json:"name"`       // Name название соревнования
	Venue     string    `json:"venue"`      // Venue место проведения
	Status    string    `json:"status"`     // Status статус: scheduled, running, completed
}

// Class представляет класс/ринг внутри trial (например "Novice A")
type Class struct {
	UpdatedAt  time.Time `json:"updated_at"` // UpdatedAt время последнего изменения на сервере
	ID         string    `json:"id"`         // ID серверный идентификатор (UUID)
	TenantID   string    `json:"tenant_id"`  // TenantID ключ лицензии
	TrialID    string    `json:"trial_id"`   // TrialID соревнование, к которому относится класс
	Name       string    `json:"name"`       // Name название класса
	Element    string    `json:"element"`    // Element дисциплина (Interior, Container, ...)
	Level      string    `json:"level"`      // Level уровень (Novice, Advanced, ...)
	JudgeName  string    `json:"judge_name"` // JudgeName назначенный судья
	EntryCount int       `json:"entry_count"`
}

// Entry представляет одну заявку (собака + хендлер) в классе.
// Поля результата заполняются мутацией submit_score.
type Entry struct {
	UpdatedAt       time.Time `json:"updated_at"`        // UpdatedAt время последнего изменения на сервере
	ID              string    `json:"id"`                // ID серверный идентификатор (UUID)
	TenantID        string    `json:"tenant_id"`         // TenantID ключ лицензии
	ClassID         string    `json:"class_id"`          // ClassID класс, в котором выступает заявка
	ArmbandNumber   string    `json:"armband_number"`    // ArmbandNumber стартовый номер
	DogName         string    `json:"dog_name"`          // DogName кличка собаки
	HandlerName     string    `json:"handler_name"`      // HandlerName имя хендлера
	Result          string    `json:"result"`            // Result результат: Q, NQ, EX, DQ, ABS (пусто = не судился)
	JudgeName       string    `json:"judge_name"`        // JudgeName судья, выставивший результат
	ScoreMutationID string    `json:"score_mutation_id"` // ScoreMutationID мутация, записавшая результат (LWW tiebreak)
	Points          float64   `json:"points"`            // Points набранные баллы
	TimeSeconds     float64   `json:"time_seconds"`      // TimeSeconds время прохождения
	ScoredAt        int64     `json:"scored_at"`         // ScoredAt unix-время судейства в миллисекундах (LWW ключ)
	Faults          int       `json:"faults"`            // Faults количество штрафов
	Scored          bool      `json:"scored"`            // Scored true если результат выставлен
}

// ScoreWins определяет, должна ли новая оценка (scoredAt, mutationID)
// перезаписать существующую оценку entry.
// Правило LWW (Last-Write-Wins):
// 1. Сравниваются ScoredAt (больший выигрывает)
// 2. При равных ScoredAt сравниваются MutationID лексикографически (детерминизм)
// Правило применяется одинаково на сервере и на клиенте, поэтому повторная
// и конкурентная доставка одной мутации сходятся к одному состоянию.
func ScoreWins(newScoredAt int64, newMutationID string, oldScoredAt int64, oldMutationID string) bool {
	if newScoredAt != oldScoredAt {
		return newScoredAt > oldScoredAt
	}
	return newMutationID > oldMutationID
}

// ApplyScore применяет payload оценки к entry и возвращает обновленную копию.
// Не мутирует исходную запись.
func (e *Entry) ApplyScore(p *ScorePayload) *Entry {
	patched := *e
	patched.Result = p.Result
	patched.Points = p.Points
	patched.Faults = p.Faults
	patched.TimeSeconds = p.TimeSeconds
	patched.JudgeName = p.JudgeName
	patched.ScoredAt = p.ScoredAt
	patched.ScoreMutationID = p.MutationID
	patched.Scored = true
	return &patched
}
