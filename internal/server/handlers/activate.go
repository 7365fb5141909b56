package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ringsync/ringsync/internal/server/jwt"
	"github.com/ringsync/ringsync/internal/server/storage"
	"github.com/ringsync/ringsync/internal/validation"
	"github.com/ringsync/ringsync/pkg/api"
)

// ActivateHandler обрабатывает активацию устройств по ключу лицензии
type ActivateHandler struct {
	logger   *slog.Logger
	licenses storage.LicenseStorage
	tokens   *jwt.Service
}

// NewActivateHandler создает новый handler активации
func NewActivateHandler(logger *slog.Logger, licenses storage.LicenseStorage, tokens *jwt.Service) *ActivateHandler {
	return &ActivateHandler{
		logger:   logger,
		licenses: licenses,
		tokens:   tokens,
	}
}

// Activate обрабатывает POST /api/v1/activate.
// Устройство предъявляет полный ключ лицензии и получает device token,
// привязанный к tenant этой лицензии. Эндпоинт защищен rate limit-ом:
// ключ короткий и перебор должен быть дорогим.
func (h *ActivateHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode activate request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateLicenseKey(req.LicenseKey); err != nil {
		h.logger.WarnContext(ctx, "invalid license key format", slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.DeviceID == "" {
		sendError(h.logger, w, "device_id is required", http.StatusBadRequest)
		return
	}

	licenseID := validation.LicenseID(req.LicenseKey)

	license, err := h.licenses.GetLicense(ctx, licenseID)
	if err != nil {
		if errors.Is(err, storage.ErrLicenseNotFound) {
			// Не раскрываем, существует ли лицензия
			h.logger.WarnContext(ctx, "activation failed: license not found", slog.String("license_id", licenseID))
			sendError(h.logger, w, "invalid license key", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get license", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Полный ключ хранится только bcrypt-хешем
	if err := bcrypt.CompareHashAndPassword([]byte(license.KeyHash), []byte(req.LicenseKey)); err != nil {
		h.logger.WarnContext(ctx, "activation failed: key mismatch", slog.String("license_id", licenseID))
		sendError(h.logger, w, "invalid license key", http.StatusUnauthorized)
		return
	}

	if license.Expired(time.Now()) {
		h.logger.WarnContext(ctx, "activation failed: license expired", slog.String("license_id", licenseID))
		sendError(h.logger, w, "license expired", http.StatusForbidden)
		return
	}

	token, expiresAt, err := h.tokens.Issue(license.LicenseID, req.DeviceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue device token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Метка активации не критична для выдачи токена
	if err := h.licenses.TouchActivation(ctx, license.LicenseID, time.Now()); err != nil {
		h.logger.WarnContext(ctx, "failed to touch activation", slog.Any("error", err))
	}

	h.logger.InfoContext(ctx, "device activated",
		slog.String("license_id", license.LicenseID),
		slog.String("device_id", req.DeviceID),
		slog.String("device_name", req.DeviceName))

	resp := api.ActivateResponse{
		Token:     token,
		TenantID:  license.LicenseID,
		EventName: license.EventName,
		ExpiresAt: expiresAt.Unix(),
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}
