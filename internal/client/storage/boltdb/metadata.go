package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/ringsync/ringsync/internal/client/storage"
)

const (
	keyDeviceID = "device_id"
)

// lastPullKey ключ метки последнего pull для пары tenant+table
func lastPullKey(tenantID, table string) []byte {
	return []byte(fmt.Sprintf("last_pull:%s:%s", tenantID, table))
}

// SaveLastPullTime saves the server time of the last successful pull
func (s *Storage) SaveLastPullTime(ctx context.Context, tenantID, table string, serverTime int64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(serverTime))

		if err := tx.Bucket(bucketMetadata).Put(lastPullKey(tenantID, table), buf); err != nil {
			return fmt.Errorf("failed to save last pull time: %w", err)
		}
		return nil
	})
}

// GetLastPullTime retrieves the server time of the last successful pull.
// Returns 0 if the table has never been pulled.
func (s *Storage) GetLastPullTime(ctx context.Context, tenantID, table string) (int64, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var serverTime int64

	err := s.db.View(func(tx *bbolt.Tx) error {
		buf := tx.Bucket(bucketMetadata).Get(lastPullKey(tenantID, table))
		if buf == nil {
			// Таблица ни разу не pull-илась
			return nil
		}
		serverTime = int64(binary.BigEndian.Uint64(buf))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get last pull time: %w", err)
	}

	return serverTime, nil
}

// SaveDeviceID persists the locally generated device identifier
func (s *Storage) SaveDeviceID(ctx context.Context, deviceID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMetadata).Put([]byte(keyDeviceID), []byte(deviceID))
	})
}

// GetDeviceID retrieves the device identifier, or "" if none was saved
func (s *Storage) GetDeviceID(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var deviceID string

	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketMetadata).Get([]byte(keyDeviceID)); v != nil {
			deviceID = string(v)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get device id: %w", err)
	}

	return deviceID, nil
}
