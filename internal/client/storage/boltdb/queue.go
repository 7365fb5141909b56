package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/ringsync/ringsync/internal/client/storage"
	"github.com/ringsync/ringsync/internal/models"
)

// Очередь хранится по ключу seq (8 байт big-endian), что дает порядок
// вставки при обходе курсором. Индекс id -> seq обслуживает операции по ID.
// Переходы статусов проверяются через models.CanTransition внутри той же
// write-транзакции, так что гонка двух drain-проходов за один record
// разрешается транзакциями bbolt, а не блокировками в памяти.

// Enqueue appends a new record with status pending.
// Seq присваивается из NextSequence в той же транзакции, что и запись:
// после возврата запись durable и переживет перезапуск процесса.
func (s *Storage) Enqueue(ctx context.Context, m *models.MutationRecord) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		queue := tx.Bucket(bucketQueue)
		idx := tx.Bucket(bucketQueueIdx)

		seq, err := queue.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}

		m.Seq = seq
		m.Status = models.StatusPending

		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal mutation: %w", err)
		}

		key := seqKey(seq)
		if err := queue.Put(key, data); err != nil {
			return fmt.Errorf("failed to put mutation: %w", err)
		}
		if err := idx.Put([]byte(m.ID), key); err != nil {
			return fmt.Errorf("failed to index mutation: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue transaction failed: %w", err)
	}

	return nil
}

// GetMutation returns a record by ID
func (s *Storage) GetMutation(ctx context.Context, id string) (*models.MutationRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var m *models.MutationRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		m, err = getByID(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ListPending returns pending and in_flight records for a tenant,
// ordered by CreatedAt ascending, ties broken by insertion order (Seq)
func (s *Storage) ListPending(ctx context.Context, tenantID string) ([]*models.MutationRecord, error) {
	return s.listByStatus(tenantID, func(status models.MutationStatus) bool {
		return status == models.StatusPending || status == models.StatusInFlight
	})
}

// ListFailed returns dead-letter records for a tenant
func (s *Storage) ListFailed(ctx context.Context, tenantID string) ([]*models.MutationRecord, error) {
	return s.listByStatus(tenantID, func(status models.MutationStatus) bool {
		return status == models.StatusFailed
	})
}

// MarkInFlight transitions pending -> in_flight
func (s *Storage) MarkInFlight(ctx context.Context, id string) error {
	return s.updateRecord(id, func(m *models.MutationRecord) error {
		if !models.CanTransition(m.Status, models.StatusInFlight) {
			return fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, m.Status, models.StatusInFlight)
		}
		m.Status = models.StatusInFlight
		return nil
	})
}

// MarkPending transitions in_flight -> pending (transient failure) or
// failed -> pending (operator retry). In-flight records count the attempt.
func (s *Storage) MarkPending(ctx context.Context, id, reason string) error {
	return s.updateRecord(id, func(m *models.MutationRecord) error {
		if !models.CanTransition(m.Status, models.StatusPending) {
			return fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, m.Status, models.StatusPending)
		}
		if m.Status == models.StatusInFlight {
			m.Attempts++
		}
		m.Status = models.StatusPending
		m.LastError = reason
		return nil
	})
}

// MarkFailed transitions in_flight -> failed (dead-letter)
func (s *Storage) MarkFailed(ctx context.Context, id, reason string) error {
	return s.updateRecord(id, func(m *models.MutationRecord) error {
		if !models.CanTransition(m.Status, models.StatusFailed) {
			return fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, m.Status, models.StatusFailed)
		}
		m.Attempts++
		m.Status = models.StatusFailed
		m.LastError = reason
		return nil
	})
}

// Remove deletes a record and its index entry
func (s *Storage) Remove(ctx context.Context, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		idx := tx.Bucket(bucketQueueIdx)
		key := idx.Get([]byte(id))
		if key == nil {
			return storage.ErrMutationNotFound
		}
		if err := tx.Bucket(bucketQueue).Delete(key); err != nil {
			return fmt.Errorf("failed to delete mutation: %w", err)
		}
		return idx.Delete([]byte(id))
	})
	if err != nil {
		return err
	}

	return nil
}

// RequeueInFlight resets abandoned in_flight records back to pending.
// Вызывается при старте engine: процесс не переживает перезапуск, поэтому
// in_flight на старте означает брошенную на середине доставку.
func (s *Storage) RequeueInFlight(ctx context.Context, tenantID string) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	count := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		queue := tx.Bucket(bucketQueue)
		return queue.ForEach(func(k, v []byte) error {
			var m models.MutationRecord
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal mutation: %w", err)
			}
			if m.TenantID != tenantID || m.Status != models.StatusInFlight {
				return nil
			}

			m.Status = models.StatusPending
			m.LastError = "abandoned in-flight delivery"

			data, err := json.Marshal(&m)
			if err != nil {
				return fmt.Errorf("failed to marshal mutation: %w", err)
			}
			if err := queue.Put(k, data); err != nil {
				return fmt.Errorf("failed to requeue mutation: %w", err)
			}
			count++
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("requeue transaction failed: %w", err)
	}

	return count, nil
}

// CountPending returns the number of pending and in_flight records
func (s *Storage) CountPending(ctx context.Context, tenantID string) (int, error) {
	pending, err := s.ListPending(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// CountPendingForEntity returns the number of pending and in_flight records
// targeting one entity
func (s *Storage) CountPendingForEntity(ctx context.Context, tenantID, entityID string) (int, error) {
	pending, err := s.ListPending(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range pending {
		if m.EntityID == entityID {
			count++
		}
	}
	return count, nil
}

// listByStatus возвращает записи tenant, прошедшие фильтр статуса,
// отсортированные по CreatedAt asc с tiebreak по Seq
func (s *Storage) listByStatus(tenantID string, match func(models.MutationStatus) bool) ([]*models.MutationRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var records []*models.MutationRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketQueue).ForEach(func(k, v []byte) error {
			var m models.MutationRecord
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal mutation: %w", err)
			}
			if m.TenantID == tenantID && match(m.Status) {
				records = append(records, &m)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list mutations: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].Seq < records[j].Seq
	})

	return records, nil
}

// updateRecord применяет модификацию записи внутри одной write-транзакции
func (s *Storage) updateRecord(id string, modify func(*models.MutationRecord) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		m, err := getByID(tx, id)
		if err != nil {
			return err
		}

		if err := modify(m); err != nil {
			return err
		}

		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal mutation: %w", err)
		}
		return tx.Bucket(bucketQueue).Put(seqKey(m.Seq), data)
	})
	if err != nil {
		return err
	}

	return nil
}

// getByID читает запись по ID через индекс
func getByID(tx *bbolt.Tx, id string) (*models.MutationRecord, error) {
	key := tx.Bucket(bucketQueueIdx).Get([]byte(id))
	if key == nil {
		return nil, storage.ErrMutationNotFound
	}

	data := tx.Bucket(bucketQueue).Get(key)
	if data == nil {
		return nil, storage.ErrMutationNotFound
	}

	m := &models.MutationRecord{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mutation: %w", err)
	}
	return m, nil
}

// seqKey кодирует seq в 8-байтовый big-endian ключ (сохраняет порядок вставки)
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
