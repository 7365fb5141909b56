package storage

import (
	"context"
)

// MirrorStorage defines interface for the tenant-partitioned local mirror
// of server tables. Rows are refreshed wholesale by the replication pull;
// the only client-side writes are the optimistic patch operations, owned
// exclusively by the write coordinator.
type MirrorStorage interface {
	// GetAll returns all cached rows for a table, with optimistic patches
	// overlaid. Never touches the network; an empty slice before the first
	// pull is a normal outcome.
	GetAll(ctx context.Context, tenantID, table string) ([][]byte, error)

	// Get returns a single row (patch-aware) by server ID.
	// Returns ErrRowNotFound if the row has not been pulled yet.
	Get(ctx context.Context, tenantID, table, id string) ([]byte, error)

	// ReplaceAll atomically swaps the cached contents of a table for a tenant.
	// Concurrent readers observe either the old snapshot or the new one,
	// never a partially-updated table.
	ReplaceAll(ctx context.Context, tenantID, table string, rows map[string][]byte) error

	// ApplyPatch stores an optimistic overlay for one entity, superseding any
	// previous patch for the same entity.
	ApplyPatch(ctx context.Context, tenantID, table, id string, row []byte) error

	// DropPatch removes the optimistic overlay, rolling reads back to the
	// last pulled server row. No-op if no patch exists.
	DropPatch(ctx context.Context, tenantID, table, id string) error

	// Promote writes a confirmed row into the base table and drops the
	// overlay in one transaction. Used once the server has acknowledged the
	// mutation that produced the patch.
	Promote(ctx context.Context, tenantID, table, id string, row []byte) error
}
