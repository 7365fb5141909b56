package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ringsync/ringsync/internal/models"
	"github.com/ringsync/ringsync/internal/server/storage"
	"github.com/ringsync/ringsync/internal/validation"
	"github.com/ringsync/ringsync/pkg/api"
)

// ScoreHandler обрабатывает доставку оценок из очередей устройств
type ScoreHandler struct {
	logger *slog.Logger
	events storage.EventStorage
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(logger *slog.Logger, events storage.EventStorage) *ScoreHandler {
	return &ScoreHandler{
		logger: logger,
		events: events,
	}
}

// Submit обрабатывает PATCH /api/v1/entries/{id}/score.
// Эндпоинт идемпотентен: оценка применяется только если выигрывает
// LWW-сравнение с текущей, поэтому повторная доставка одной мутации
// (at-least-once очередь клиента) безопасна и отвечает 200.
func (h *ScoreHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := GetTenantID(ctx)
	if !ok {
		h.logger.Error("Tenant ID not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	entryID := r.PathValue("id")
	if entryID == "" {
		sendError(h.logger, w, "entry id is required", http.StatusBadRequest)
		return
	}

	var req api.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode score request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.MutationID == "" {
		sendError(h.logger, w, "mutation_id is required", http.StatusUnprocessableEntity)
		return
	}
	if req.ScoredAt <= 0 {
		sendError(h.logger, w, "scored_at is required", http.StatusUnprocessableEntity)
		return
	}

	// Отказ валидации перманентен: клиент переведет мутацию в dead-letter
	if err := validation.ValidateResult(req.Result); err != nil {
		h.logger.WarnContext(ctx, "invalid score result", slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := validation.ValidateScore(req.Points, req.TimeSeconds, req.Faults); err != nil {
		h.logger.WarnContext(ctx, "invalid score values", slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	payload := &models.ScorePayload{
		MutationID:  req.MutationID,
		Result:      req.Result,
		JudgeName:   req.JudgeName,
		Points:      req.Points,
		TimeSeconds: req.TimeSeconds,
		Faults:      req.Faults,
		ScoredAt:    req.ScoredAt,
	}

	entry, applied, err := h.events.UpsertScore(ctx, tenantID, entryID, payload)
	if err != nil {
		if errors.Is(err, storage.ErrEntryNotFound) {
			h.logger.WarnContext(ctx, "score for unknown entry",
				slog.String("entry_id", entryID),
				slog.String("mutation_id", req.MutationID))
			sendError(h.logger, w, "entry not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to upsert score", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "score applied",
		slog.String("entry_id", entryID),
		slog.String("mutation_id", req.MutationID),
		slog.Bool("applied", applied))

	sendJSON(h.logger, w, api.ScoreResponse{
		Entry:   *entry,
		Applied: applied,
	}, http.StatusOK)
}
