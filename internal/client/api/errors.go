package api

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError представляет ответ сервера с не-2xx статусом.
// Классификация транзиентная/перманентная определяет судьбу мутации:
// транзиентные ошибки оставляют запись pending для следующего drain,
// перманентные переводят её в dead-letter.
type StatusError struct {
	Message    string
	StatusCode int
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Permanent reports whether the rejection is non-retryable.
// 5xx, 408 (request timeout) и 429 (rate limit) считаются транзиентными;
// остальные 4xx - подтвержденный отказ сервера (валидация, ссылочная
// целостность), повтор которого бессмыслен.
func (e *StatusError) Permanent() bool {
	if e.StatusCode >= 500 {
		return false
	}
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return e.StatusCode >= 400
}

// IsPermanent reports whether err is a confirmed non-retryable rejection.
// Сетевые ошибки (err не является StatusError) всегда транзиентны:
// недоступность сети - ожидаемое состояние offline-first клиента.
func IsPermanent(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Permanent()
	}
	return false
}
