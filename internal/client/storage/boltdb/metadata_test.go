package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringsync/ringsync/internal/client/storage"
	"github.com/ringsync/ringsync/internal/models"
)

func TestMetadata_LastPullTime(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// До первого pull - 0
	ts, err := store.GetLastPullTime(ctx, "tenant-a", models.TableEntries)
	require.NoError(t, err)
	assert.Zero(t, ts)

	require.NoError(t, store.SaveLastPullTime(ctx, "tenant-a", models.TableEntries, 1700000000000))

	ts, err = store.GetLastPullTime(ctx, "tenant-a", models.TableEntries)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts)

	// Метки разделены по таблицам и tenant
	ts, err = store.GetLastPullTime(ctx, "tenant-a", models.TableClasses)
	require.NoError(t, err)
	assert.Zero(t, ts)

	ts, err = store.GetLastPullTime(ctx, "tenant-b", models.TableEntries)
	require.NoError(t, err)
	assert.Zero(t, ts)
}

func TestMetadata_DeviceID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	id, err := store.GetDeviceID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, store.SaveDeviceID(ctx, "device-123"))

	id, err = store.GetDeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "device-123", id)
}

func TestSession_SaveGetDelete(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, err := store.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	session := &storage.DeviceSession{
		TenantID:  "tenant-a",
		EventName: "Spring Classic 2026",
		Token:     "jwt-token",
		ExpiresAt: 1800000000,
	}
	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, session, got)

	require.NoError(t, store.DeleteSession(ctx))
	_, err = store.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}
