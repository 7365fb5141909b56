package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ringsync/ringsync/internal/models"
	"github.com/ringsync/ringsync/internal/server/storage"
	"github.com/ringsync/ringsync/pkg/api"
)

// SyncHandler отдает tenant-scoped snapshot-ы зеркалируемых таблиц.
// Каждый ответ - полное состояние таблицы на момент запроса; клиент
// заменяет им локальную копию целиком.
type SyncHandler struct {
	logger *slog.Logger
	events storage.EventStorage
	now    func() time.Time
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, events storage.EventStorage) *SyncHandler {
	return &SyncHandler{
		logger: logger,
		events: events,
		now:    time.Now,
	}
}

// Trials обрабатывает GET /api/v1/sync/trials
func (h *SyncHandler) Trials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := GetTenantID(ctx)
	if !ok {
		h.logger.Error("Tenant ID not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	since, err := parseSince(r)
	if err != nil {
		sendError(h.logger, w, "invalid since parameter", http.StatusBadRequest)
		return
	}

	trials, err := h.events.ListTrials(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list trials", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !since.IsZero() {
		filtered := make([]models.Trial, 0, len(trials))
		for _, t := range trials {
			if t.UpdatedAt.After(since) {
				filtered = append(filtered, t)
			}
		}
		trials = filtered
	}

	sendJSON(h.logger, w, api.TrialsResponse{
		Rows:       trials,
		ServerTime: h.now().UnixMilli(),
	}, http.StatusOK)
}

// Classes обрабатывает GET /api/v1/sync/classes
func (h *SyncHandler) Classes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := GetTenantID(ctx)
	if !ok {
		h.logger.Error("Tenant ID not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	since, err := parseSince(r)
	if err != nil {
		sendError(h.logger, w, "invalid since parameter", http.StatusBadRequest)
		return
	}

	classes, err := h.events.ListClasses(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list classes", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !since.IsZero() {
		filtered := make([]models.Class, 0, len(classes))
		for _, c := range classes {
			if c.UpdatedAt.After(since) {
				filtered = append(filtered, c)
			}
		}
		classes = filtered
	}

	sendJSON(h.logger, w, api.ClassesResponse{
		Rows:       classes,
		ServerTime: h.now().UnixMilli(),
	}, http.StatusOK)
}

// Entries обрабатывает GET /api/v1/sync/entries
func (h *SyncHandler) Entries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := GetTenantID(ctx)
	if !ok {
		h.logger.Error("Tenant ID not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	since, err := parseSince(r)
	if err != nil {
		sendError(h.logger, w, "invalid since parameter", http.StatusBadRequest)
		return
	}

	entries, err := h.events.ListEntries(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list entries", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !since.IsZero() {
		filtered := make([]models.Entry, 0, len(entries))
		for _, e := range entries {
			if e.UpdatedAt.After(since) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	sendJSON(h.logger, w, api.EntriesResponse{
		Rows:       entries,
		ServerTime: h.now().UnixMilli(),
	}, http.StatusOK)
}

// parseSince читает опциональный query-параметр since (unix-миллисекунды).
// Нулевое время означает полный snapshot.
func parseSince(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
