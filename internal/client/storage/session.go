package storage

import (
	"context"
	"time"
)

// DeviceSession represents the activated state of a scoring device.
// The active tenant key is stored explicitly so background drains can scope
// queue and mirror access without any page-local session state.
type DeviceSession struct {
	TenantID  string `json:"tenant_id"`  // TenantID ключ лицензии (партиционирование данных)
	EventName string `json:"event_name"` // EventName название события
	Token     string `json:"token"`      // Token device JWT для запросов к серверу
	ExpiresAt int64  `json:"expires_at"` // ExpiresAt unix-время истечения токена
}

// Expired reports whether the session token is past its expiry
func (s *DeviceSession) Expired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}

// SessionStorage defines interface for storing the device session
type SessionStorage interface {
	// SaveSession stores the session produced by license activation
	SaveSession(ctx context.Context, session *DeviceSession) error

	// GetSession retrieves the stored session.
	// Returns ErrSessionNotFound if the device has not been activated.
	GetSession(ctx context.Context) (*DeviceSession, error)

	// DeleteSession removes the stored session (deactivation)
	DeleteSession(ctx context.Context) error
}
