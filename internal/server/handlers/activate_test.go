package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ringsync/ringsync/internal/server/jwt"
	"github.com/ringsync/ringsync/internal/server/storage"
	"github.com/ringsync/ringsync/internal/server/storage/sqlite"
	"github.com/ringsync/ringsync/pkg/api"
)

const (
	testLicenseKey = "RSNC24-7GK2-9QPT"
	testTenantID   = "RSNC24"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStorage(t *testing.T) *sqlite.Storage {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

// seedLicense registers a license whose key hash matches testLicenseKey
func seedLicense(t *testing.T, store storage.LicenseStorage, expiresAt time.Time) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testLicenseKey), bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, store.CreateLicense(context.Background(), &storage.License{
		LicenseID: testTenantID,
		KeyHash:   string(hash),
		EventName: "Spring Classic 2024",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}))
}

func activateRequest(t *testing.T, body any) *httptest.ResponseRecorder {
	t.Helper()

	store := newTestStorage(t)
	seedLicense(t, store, time.Now().Add(30*24*time.Hour))

	return doActivate(t, store, body)
}

func doActivate(t *testing.T, store storage.LicenseStorage, body any) *httptest.ResponseRecorder {
	t.Helper()

	tokens := jwt.NewService("test-secret", time.Hour)
	handler := NewActivateHandler(newTestLogger(), store, tokens)

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/activate", bytes.NewReader(data))
	w := httptest.NewRecorder()
	handler.Activate(w, req)
	return w
}

func TestActivate_Success(t *testing.T) {
	store := newTestStorage(t)
	seedLicense(t, store, time.Now().Add(30*24*time.Hour))

	tokens := jwt.NewService("test-secret", time.Hour)
	handler := NewActivateHandler(newTestLogger(), store, tokens)

	body, err := json.Marshal(api.ActivateRequest{
		LicenseKey: testLicenseKey,
		DeviceID:   "tablet-ring-1",
		DeviceName: "Ring 1 tablet",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/activate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Activate(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ActivateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Equal(t, testTenantID, resp.TenantID)
	assert.Equal(t, "Spring Classic 2024", resp.EventName)
	assert.Greater(t, resp.ExpiresAt, time.Now().Unix())

	// Выданный токен должен проходить проверку и нести tenant/device
	claims, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, testTenantID, claims.TenantID)
	assert.Equal(t, "tablet-ring-1", claims.DeviceID)

	// Активация должна оставить отметку на лицензии
	license, err := store.GetLicense(context.Background(), testTenantID)
	require.NoError(t, err)
	require.NotNil(t, license.LastActivatedAt)
}

func TestActivate_InvalidBody(t *testing.T) {
	store := newTestStorage(t)
	tokens := jwt.NewService("test-secret", time.Hour)
	handler := NewActivateHandler(newTestLogger(), store, tokens)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/activate", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	handler.Activate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestActivate_BadKeyFormat(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "empty key", key: ""},
		{name: "lowercase", key: "rsnc24-7gk2-9qpt"},
		{name: "single group", key: "RSNC24"},
		{name: "spaces", key: "RSNC24 7GK2 9QPT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := activateRequest(t, api.ActivateRequest{
				LicenseKey: tt.key,
				DeviceID:   "tablet-ring-1",
			})
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestActivate_MissingDeviceID(t *testing.T) {
	w := activateRequest(t, api.ActivateRequest{
		LicenseKey: testLicenseKey,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "device_id is required")
}

func TestActivate_UnknownLicense(t *testing.T) {
	store := newTestStorage(t)
	// Лицензии в базе нет

	w := doActivate(t, store, api.ActivateRequest{
		LicenseKey: testLicenseKey,
		DeviceID:   "tablet-ring-1",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid license key")
}

func TestActivate_WrongKey(t *testing.T) {
	// Формат и идентификатор совпадают, но вторая часть ключа другая
	w := activateRequest(t, api.ActivateRequest{
		LicenseKey: "RSNC24-XXXX-XXXX",
		DeviceID:   "tablet-ring-1",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid license key")
}

func TestActivate_ExpiredLicense(t *testing.T) {
	store := newTestStorage(t)
	seedLicense(t, store, time.Now().Add(-24*time.Hour))

	w := doActivate(t, store, api.ActivateRequest{
		LicenseKey: testLicenseKey,
		DeviceID:   "tablet-ring-1",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "license expired")
}
