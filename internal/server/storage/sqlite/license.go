package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ringsync/ringsync/internal/server/storage"
)

// CreateLicense registers a new event license
func (s *Storage) CreateLicense(ctx context.Context, license *storage.License) error {
	query := `
		INSERT INTO licenses (license_id, key_hash, event_name, created_at, expires_at, last_activated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		license.LicenseID,
		license.KeyHash,
		license.EventName,
		license.CreatedAt,
		license.ExpiresAt,
		license.LastActivatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: licenses.license_id") {
			return storage.ErrLicenseAlreadyExists
		}
		return fmt.Errorf("failed to insert license: %w", err)
	}

	return nil
}

// GetLicense retrieves a license by its ID
func (s *Storage) GetLicense(ctx context.Context, licenseID string) (*storage.License, error) {
	query := `
		SELECT license_id, key_hash, event_name, created_at, expires_at, last_activated_at
		FROM licenses
		WHERE license_id = ?
	`

	license := &storage.License{}
	var lastActivated sql.NullTime

	err := s.db.QueryRowContext(ctx, query, licenseID).Scan(
		&license.LicenseID,
		&license.KeyHash,
		&license.EventName,
		&license.CreatedAt,
		&license.ExpiresAt,
		&lastActivated,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrLicenseNotFound
		}
		return nil, fmt.Errorf("failed to get license: %w", err)
	}

	if lastActivated.Valid {
		license.LastActivatedAt = &lastActivated.Time
	}

	return license, nil
}

// TouchActivation records the time of the latest device activation
func (s *Storage) TouchActivation(ctx context.Context, licenseID string, activatedAt time.Time) error {
	query := `UPDATE licenses SET last_activated_at = ? WHERE license_id = ?`

	result, err := s.db.ExecContext(ctx, query, activatedAt, licenseID)
	if err != nil {
		return fmt.Errorf("failed to update activation time: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrLicenseNotFound
	}

	return nil
}
