package scoring

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpClient "github.com/ringsync/ringsync/internal/client/api"
	"github.com/ringsync/ringsync/internal/client/bus"
	"github.com/ringsync/ringsync/internal/client/storage"
	"github.com/ringsync/ringsync/internal/client/storage/boltdb"
	"github.com/ringsync/ringsync/internal/models"
	"github.com/ringsync/ringsync/pkg/api"
)

const (
	testTenant = "RSNC24"
	testToken  = "device-token"
)

func newTestStorage(t *testing.T) *boltdb.Storage {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

// seedEntry кладет несудившуюся заявку в базовую таблицу зеркала
func seedEntry(t *testing.T, store *boltdb.Storage, entryID string) {
	t.Helper()

	row, err := json.Marshal(models.Entry{
		ID:       entryID,
		TenantID: testTenant,
		ClassID:  "class-1",
		DogName:  "Rex",
	})
	require.NoError(t, err)

	require.NoError(t, store.ReplaceAll(context.Background(), testTenant, models.TableEntries,
		map[string][]byte{entryID: row}))
}

func getEntry(t *testing.T, store *boltdb.Storage, entryID string) models.Entry {
	t.Helper()

	row, err := store.Get(context.Background(), testTenant, models.TableEntries, entryID)
	require.NoError(t, err)

	var entry models.Entry
	require.NoError(t, json.Unmarshal(row, &entry))
	return entry
}

func newCoordinator(store *boltdb.Storage, apiClient httpClient.ClientAPI, events *bus.Bus, online func() bool) *Coordinator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCoordinator(store, store, apiClient, events, logger, online)
}

func qInput(entryID string) ScoreInput {
	return ScoreInput{
		EntryID:     entryID,
		Result:      "Q",
		JudgeName:   "J. Alvarez",
		Points:      95,
		TimeSeconds: 142.7,
	}
}

func TestCoordinator_SubmitScore_OnlineSuccess(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedEntry(t, store, "entry-1")

	mockAPI := &httpClient.ClientAPIMock{
		SubmitScoreFunc: func(ctx context.Context, token, entryID string, req api.ScoreRequest) (*api.ScoreResponse, error) {
			entry := models.Entry{ID: entryID, TenantID: testTenant, Scored: true, Result: req.Result, Points: req.Points}
			return &api.ScoreResponse{Entry: entry, Applied: true}, nil
		},
	}

	coordinator := newCoordinator(store, mockAPI, nil, nil)

	var confirmed *models.Entry
	mutationID, err := coordinator.SubmitScore(ctx, testTenant, testToken, qInput("entry-1"), Callbacks{
		OnSuccess: func(entry *models.Entry) { confirmed = entry },
	})
	require.NoError(t, err)
	assert.NotEmpty(t, mutationID)

	require.NotNil(t, confirmed)
	assert.Equal(t, "Q", confirmed.Result)

	// Очередь пуста: сервер подтвердил запись на immediate-пути
	count, err := store.CountPending(ctx, testTenant)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Зеркало отдает подтвержденную строку
	entry := getEntry(t, store, "entry-1")
	assert.True(t, entry.Scored)
	assert.Equal(t, "Q", entry.Result)

	calls := mockAPI.SubmitScoreCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, testToken, calls[0].Token)
	assert.Equal(t, mutationID, calls[0].Req.MutationID)
}

func TestCoordinator_SubmitScore_OfflineQueues(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedEntry(t, store, "entry-1")

	mockAPI := &httpClient.ClientAPIMock{}
	offline := func() bool { return false }
	coordinator := newCoordinator(store, mockAPI, nil, offline)

	mutationID, err := coordinator.SubmitScore(ctx, testTenant, testToken, qInput("entry-1"), Callbacks{})
	require.NoError(t, err)

	// Оценка видна локально сразу, без сети
	entry := getEntry(t, store, "entry-1")
	assert.True(t, entry.Scored)
	assert.Equal(t, "Q", entry.Result)
	assert.Equal(t, mutationID, entry.ScoreMutationID)

	// Мутация ждет drain
	pending, err := store.ListPending(ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mutationID, pending[0].ID)
	assert.Equal(t, models.StatusPending, pending[0].Status)

	// Сеть не трогалась
	assert.Empty(t, mockAPI.SubmitScoreCalls())
}

func TestCoordinator_SubmitScore_TransientFailureDegradesToQueue(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	events := bus.New()
	seedEntry(t, store, "entry-1")

	mockAPI := &httpClient.ClientAPIMock{
		SubmitScoreFunc: func(ctx context.Context, token, entryID string, req api.ScoreRequest) (*api.ScoreResponse, error) {
			return nil, &httpClient.StatusError{Message: "gateway timeout", StatusCode: http.StatusGatewayTimeout}
		},
	}

	var requested []bus.SyncRequested
	events.Subscribe(bus.TopicSyncRequested, func(e bus.Event) {
		requested = append(requested, e.(bus.SyncRequested))
	})

	coordinator := newCoordinator(store, mockAPI, events, nil)

	mutationID, err := coordinator.SubmitScore(ctx, testTenant, testToken, qInput("entry-1"), Callbacks{})
	require.NoError(t, err)

	// Транзиентная ошибка не откатывает optimistic-состояние
	entry := getEntry(t, store, "entry-1")
	assert.True(t, entry.Scored)

	m, err := store.GetMutation(ctx, mutationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, m.Status)
	assert.Equal(t, 1, m.Attempts)

	// Координатор просит фоновый drain
	require.Len(t, requested, 1)
	assert.Equal(t, testTenant, requested[0].TenantID)
}

func TestCoordinator_SubmitScore_PermanentRejectionRollsBack(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedEntry(t, store, "entry-1")

	mockAPI := &httpClient.ClientAPIMock{
		SubmitScoreFunc: func(ctx context.Context, token, entryID string, req api.ScoreRequest) (*api.ScoreResponse, error) {
			return nil, &httpClient.StatusError{Message: "entry already finalized", StatusCode: http.StatusConflict}
		},
	}

	coordinator := newCoordinator(store, mockAPI, nil, nil)

	var rejectErr error
	mutationID, err := coordinator.SubmitScore(ctx, testTenant, testToken, qInput("entry-1"), Callbacks{
		OnError: func(err error) { rejectErr = err },
	})
	require.NoError(t, err)
	require.Error(t, rejectErr)

	// Optimistic patch снят: зеркало показывает состояние сервера
	entry := getEntry(t, store, "entry-1")
	assert.False(t, entry.Scored)
	assert.Empty(t, entry.Result)

	// Мутация в dead-letter, оператор решает retry/discard
	m, err := store.GetMutation(ctx, mutationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, m.Status)
	assert.Contains(t, m.LastError, "entry already finalized")
}

func TestCoordinator_SubmitScore_ValidationRejectsBeforeQueueing(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedEntry(t, store, "entry-1")

	coordinator := newCoordinator(store, &httpClient.ClientAPIMock{}, nil, nil)

	tests := []struct {
		name  string
		input ScoreInput
	}{
		{"invalid result code", ScoreInput{EntryID: "entry-1", Result: "MAYBE"}},
		{"negative points", ScoreInput{EntryID: "entry-1", Result: "Q", Points: -5}},
		{"excessive time", ScoreInput{EntryID: "entry-1", Result: "Q", TimeSeconds: 7200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coordinator.SubmitScore(ctx, testTenant, testToken, tt.input, Callbacks{})
			require.Error(t, err)
		})
	}

	// Отклоненные на валидации записи не оставляют следов
	count, err := store.CountPending(ctx, testTenant)
	require.NoError(t, err)
	assert.Zero(t, count)

	entry := getEntry(t, store, "entry-1")
	assert.False(t, entry.Scored)
}

func TestCoordinator_SubmitScore_UnknownEntry(t *testing.T) {
	store := newTestStorage(t)

	coordinator := newCoordinator(store, &httpClient.ClientAPIMock{}, nil, nil)

	_, err := coordinator.SubmitScore(context.Background(), testTenant, testToken, qInput("missing"), Callbacks{})
	assert.ErrorIs(t, err, storage.ErrRowNotFound)
}

func TestCoordinator_DeferredAckPromotesPatch(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	events := bus.New()
	seedEntry(t, store, "entry-1")

	coordinator := newCoordinator(store, &httpClient.ClientAPIMock{}, events, func() bool { return false })
	coordinator.Start(testTenant)
	defer coordinator.Close()

	var confirmed *models.Entry
	mutationID, err := coordinator.SubmitScore(ctx, testTenant, testToken, qInput("entry-1"), Callbacks{
		OnSuccess: func(entry *models.Entry) { confirmed = entry },
	})
	require.NoError(t, err)

	// Фоновый drain подтвердил и удалил мутацию
	require.NoError(t, store.MarkInFlight(ctx, mutationID))
	require.NoError(t, store.Remove(ctx, mutationID))

	events.Publish(bus.SyncCompleted{
		TenantID: testTenant,
		Synced:   1,
		Total:    1,
		Acked: []bus.MutationOutcome{
			{MutationID: mutationID, Table: models.TableEntries, EntityID: "entry-1"},
		},
	})

	// Отложенный OnSuccess вызван после подтверждения
	require.NotNil(t, confirmed)
	assert.Equal(t, "Q", confirmed.Result)

	// Строка подтверждена в базовой таблице, patch снят
	entry := getEntry(t, store, "entry-1")
	assert.True(t, entry.Scored)
	assert.Equal(t, mutationID, entry.ScoreMutationID)
}

func TestCoordinator_DeferredAckKeepsNewerPatch(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	events := bus.New()
	seedEntry(t, store, "entry-1")

	coordinator := newCoordinator(store, &httpClient.ClientAPIMock{}, events, func() bool { return false })
	coordinator.Start(testTenant)
	defer coordinator.Close()

	// Судья исправил оценку до того, как первая успела уйти
	firstID, err := coordinator.SubmitScore(ctx, testTenant, testToken, qInput("entry-1"), Callbacks{})
	require.NoError(t, err)

	second := qInput("entry-1")
	second.Result = "NQ"
	secondID, err := coordinator.SubmitScore(ctx, testTenant, testToken, second, Callbacks{})
	require.NoError(t, err)

	// Drain подтвердил только первую мутацию
	require.NoError(t, store.MarkInFlight(ctx, firstID))
	require.NoError(t, store.Remove(ctx, firstID))

	events.Publish(bus.SyncCompleted{
		TenantID: testTenant,
		Synced:   1,
		Total:    2,
		Acked: []bus.MutationOutcome{
			{MutationID: firstID, Table: models.TableEntries, EntityID: "entry-1"},
		},
	})

	// Более новая оценка не затерта подтверждением старой
	entry := getEntry(t, store, "entry-1")
	assert.Equal(t, "NQ", entry.Result)
	assert.Equal(t, secondID, entry.ScoreMutationID)
}

func TestCoordinator_DeferredRejectionRollsBack(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	events := bus.New()
	seedEntry(t, store, "entry-1")

	coordinator := newCoordinator(store, &httpClient.ClientAPIMock{}, events, func() bool { return false })
	coordinator.Start(testTenant)
	defer coordinator.Close()

	var rejectErr error
	mutationID, err := coordinator.SubmitScore(ctx, testTenant, testToken, qInput("entry-1"), Callbacks{
		OnError: func(err error) { rejectErr = err },
	})
	require.NoError(t, err)

	// Drain перевел мутацию в dead-letter
	require.NoError(t, store.MarkInFlight(ctx, mutationID))
	require.NoError(t, store.MarkFailed(ctx, mutationID, "invalid result code"))

	events.Publish(bus.SyncCompleted{
		TenantID: testTenant,
		Failed:   1,
		Total:    1,
		Rejected: []bus.MutationOutcome{
			{MutationID: mutationID, Table: models.TableEntries, EntityID: "entry-1", Err: "invalid result code"},
		},
	})

	require.Error(t, rejectErr)
	assert.Contains(t, rejectErr.Error(), "invalid result code")

	// Optimistic-состояние откатилось
	entry := getEntry(t, store, "entry-1")
	assert.False(t, entry.Scored)
}

func TestCoordinator_PromoteSkippedWhileOtherPendingExists(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedEntry(t, store, "entry-1")

	// Сервер метит подтвержденную строку: если бы Promote выполнился,
	// зеркало отдавало бы ее вместо patch
	mockAPI := &httpClient.ClientAPIMock{
		SubmitScoreFunc: func(ctx context.Context, token, entryID string, req api.ScoreRequest) (*api.ScoreResponse, error) {
			entry := models.Entry{ID: entryID, TenantID: testTenant, Scored: true, Result: req.Result, JudgeName: "SERVER"}
			return &api.ScoreResponse{Entry: entry, Applied: true}, nil
		},
	}

	// Первая оценка застряла в очереди (offline), вторая ушла немедленно
	offline := newCoordinator(store, &httpClient.ClientAPIMock{}, nil, func() bool { return false })
	first := qInput("entry-1")
	first.Result = "NQ"
	_, err := offline.SubmitScore(ctx, testTenant, testToken, first, Callbacks{})
	require.NoError(t, err)

	coordinator := newCoordinator(store, mockAPI, nil, nil)
	secondID, err := coordinator.SubmitScore(ctx, testTenant, testToken, qInput("entry-1"), Callbacks{})
	require.NoError(t, err)

	// Для сущности еще есть pending-мутация: Promote пропущен,
	// зеркало продолжает отдавать локальный patch
	entry := getEntry(t, store, "entry-1")
	assert.Equal(t, "J. Alvarez", entry.JudgeName)
	assert.Equal(t, secondID, entry.ScoreMutationID)

	pending, err := store.ListPending(ctx, testTenant)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCoordinator_OptimisticStateSurvivesReplaceAll(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedEntry(t, store, "entry-1")

	coordinator := newCoordinator(store, &httpClient.ClientAPIMock{}, nil, func() bool { return false })

	mutationID, err := coordinator.SubmitScore(ctx, testTenant, testToken, qInput("entry-1"), Callbacks{})
	require.NoError(t, err)

	// Pull заменяет базовую таблицу, пока мутация еще не доставлена
	row, err := json.Marshal(models.Entry{ID: "entry-1", TenantID: testTenant, ClassID: "class-1"})
	require.NoError(t, err)
	require.NoError(t, store.ReplaceAll(ctx, testTenant, models.TableEntries, map[string][]byte{"entry-1": row}))

	// Локальная оценка все еще видна поверх нового snapshot
	entry := getEntry(t, store, "entry-1")
	assert.True(t, entry.Scored)
	assert.Equal(t, mutationID, entry.ScoreMutationID)
}
