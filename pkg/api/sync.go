package api

import "github.com/ringsync/ringsync/internal/models"

// TrialsResponse snapshot таблицы trials
type TrialsResponse struct {
	Rows       []models.Trial `json:"rows"`
	ServerTime int64          `json:"server_time"` // unix-время сервера в миллисекундах
}

// ClassesResponse snapshot таблицы classes
type ClassesResponse struct {
	Rows       []models.Class `json:"rows"`
	ServerTime int64          `json:"server_time"`
}

// EntriesResponse snapshot таблицы entries
type EntriesResponse struct {
	Rows       []models.Entry `json:"rows"`
	ServerTime int64          `json:"server_time"`
}

// ScoreRequest представляет доставку одной мутации submit_score.
// Запрос идемпотентен: сервер применяет оценку только если пара
// (scored_at, mutation_id) выигрывает LWW-сравнение с текущей оценкой entry.
type ScoreRequest struct {
	MutationID  string  `json:"mutation_id"`  // идентификатор мутации из очереди клиента
	Result      string  `json:"result"`       // Q, NQ, EX, DQ, ABS
	JudgeName   string  `json:"judge_name"`   // судья
	Points      float64 `json:"points"`       // баллы
	TimeSeconds float64 `json:"time_seconds"` // время прохождения
	ScoredAt    int64   `json:"scored_at"`    // unix-время судейства в миллисекундах
	Faults      int     `json:"faults"`       // штрафы
}

// ScoreResponse представляет ответ сервера на доставку оценки
type ScoreResponse struct {
	Entry   models.Entry `json:"entry"`   // актуальное состояние entry после применения LWW
	Applied bool         `json:"applied"` // false = у сервера уже была более новая оценка (replay/race)
}
