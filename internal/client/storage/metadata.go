package storage

import "context"

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveLastPullTime saves the server time of the last successful pull
	// for one tenant+table (unix milliseconds).
	SaveLastPullTime(ctx context.Context, tenantID, table string, serverTime int64) error

	// GetLastPullTime retrieves the server time of the last successful pull.
	// Returns 0 if the table has never been pulled.
	GetLastPullTime(ctx context.Context, tenantID, table string) (int64, error)

	// SaveDeviceID persists the locally generated device identifier
	SaveDeviceID(ctx context.Context, deviceID string) error

	// GetDeviceID retrieves the device identifier, or "" if none was saved
	GetDeviceID(ctx context.Context) (string, error)
}
