package storage

import (
	"context"
	"time"
)

// License represents one purchased event license.
// Идентификатор лицензии (первая группа ключа) одновременно служит
// tenant ID: все данные соревнования партиционированы по нему.
// Полный ключ хранится только в виде bcrypt-хеша.
type License struct {
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	LastActivatedAt *time.Time `json:"last_activated_at,omitempty"`
	LicenseID       string     `json:"license_id"`
	KeyHash         string     `json:"key_hash"`
	EventName       string     `json:"event_name"`
}

// Expired reports whether the license can no longer activate devices
func (l *License) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && now.After(l.ExpiresAt)
}

// LicenseStorage defines persistence for event licenses
type LicenseStorage interface {
	// CreateLicense registers a new license.
	// Возвращает ErrLicenseAlreadyExists при повторном license_id.
	CreateLicense(ctx context.Context, license *License) error

	// GetLicense returns a license by its ID.
	// Возвращает ErrLicenseNotFound, если лицензия не зарегистрирована.
	GetLicense(ctx context.Context, licenseID string) (*License, error)

	// TouchActivation records the time of the latest device activation
	TouchActivation(ctx context.Context, licenseID string, activatedAt time.Time) error
}
