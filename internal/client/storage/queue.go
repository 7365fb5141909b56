package storage

import (
	"context"

	"github.com/ringsync/ringsync/internal/models"
)

// QueueStorage defines interface for the durable offline mutation queue.
// A record lives in the queue from the moment a write is accepted until the
// server has durably acknowledged it (Remove) or an operator discards it.
// Records survive process restarts; all status transitions are guarded by
// the models.CanTransition state machine.
type QueueStorage interface {
	// Enqueue appends a new record with status pending, assigning a monotonic
	// Seq inside the same transaction. Returns after the durable commit;
	// never waits on the network.
	Enqueue(ctx context.Context, m *models.MutationRecord) error

	// GetMutation returns a record by ID.
	// Returns ErrMutationNotFound if it does not exist.
	GetMutation(ctx context.Context, id string) (*models.MutationRecord, error)

	// ListPending returns pending and in_flight records for a tenant, ordered
	// by CreatedAt ascending with Seq as tiebreak. Restartable: callers may
	// re-list after partial processing.
	ListPending(ctx context.Context, tenantID string) ([]*models.MutationRecord, error)

	// ListFailed returns dead-letter records for a tenant (same ordering).
	ListFailed(ctx context.Context, tenantID string) ([]*models.MutationRecord, error)

	// MarkInFlight transitions pending -> in_flight.
	MarkInFlight(ctx context.Context, id string) error

	// MarkPending transitions in_flight -> pending or failed -> pending
	// (operator retry), recording the last delivery error and incrementing
	// the attempt counter for in_flight records.
	MarkPending(ctx context.Context, id, reason string) error

	// MarkFailed transitions in_flight -> failed (dead-letter).
	MarkFailed(ctx context.Context, id, reason string) error

	// Remove deletes a record. The only path that deletes on the success
	// route: callers invoke it solely on confirmed server acknowledgment,
	// or to discard a failed record by operator action.
	Remove(ctx context.Context, id string) error

	// RequeueInFlight resets abandoned in_flight records back to pending.
	// Called on engine start: no execution survives a process restart, so an
	// in_flight record at startup was abandoned mid-delivery.
	RequeueInFlight(ctx context.Context, tenantID string) (int, error)

	// CountPending returns the number of pending and in_flight records.
	CountPending(ctx context.Context, tenantID string) (int, error)

	// CountPendingForEntity returns the number of pending and in_flight
	// records targeting one entity. Used by the coordinator to decide whether
	// an optimistic patch may be rolled back.
	CountPendingForEntity(ctx context.Context, tenantID, entityID string) (int, error)
}
