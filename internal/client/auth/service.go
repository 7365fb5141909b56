package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	httpClient "github.com/ringsync/ringsync/internal/client/api"
	"github.com/ringsync/ringsync/internal/client/storage"
	"github.com/ringsync/ringsync/internal/validation"
	"github.com/ringsync/ringsync/pkg/api"
)

// Service управляет активацией устройства по ключу лицензии.
// Успешная активация сохраняет device session (tenant, token, срок действия),
// по которой работают все остальные операции клиента.
type Service struct {
	apiClient httpClient.ClientAPI
	sessions  storage.SessionStorage
	metadata  storage.MetadataStorage
}

// NewService создает новый сервис активации
func NewService(apiClient httpClient.ClientAPI, sessions storage.SessionStorage, metadata storage.MetadataStorage) *Service {
	return &Service{
		apiClient: apiClient,
		sessions:  sessions,
		metadata:  metadata,
	}
}

// ActivateResult содержит результат активации устройства
type ActivateResult struct {
	TenantID  string // ключ лицензии, партиционирующий все локальные данные
	EventName string // название события
	DeviceID  string // идентификатор этого устройства
	ExpiresAt int64  // unix-время истечения device token
}

// Activate обменивает ключ лицензии на device token и сохраняет сессию.
// Повторная активация (новый ключ или продление) перезаписывает сессию.
func (s *Service) Activate(ctx context.Context, licenseKey, deviceName string) (*ActivateResult, error) {
	if err := validation.ValidateLicenseKey(licenseKey); err != nil {
		return nil, fmt.Errorf("invalid license key: %w", err)
	}

	deviceID, err := s.getOrCreateDeviceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create device ID: %w", err)
	}

	resp, err := s.apiClient.Activate(ctx, api.ActivateRequest{
		LicenseKey: licenseKey,
		DeviceID:   deviceID,
		DeviceName: deviceName,
	})
	if err != nil {
		return nil, fmt.Errorf("activation failed: %w", err)
	}

	session := &storage.DeviceSession{
		TenantID:  resp.TenantID,
		EventName: resp.EventName,
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return &ActivateResult{
		TenantID:  resp.TenantID,
		EventName: resp.EventName,
		DeviceID:  deviceID,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// Session возвращает сохраненную сессию устройства.
// Возвращает storage.ErrSessionNotFound, если устройство не активировано,
// и ErrSessionExpired, если срок действия токена истек.
func (s *Service) Session(ctx context.Context) (*storage.DeviceSession, error) {
	session, err := s.sessions.GetSession(ctx)
	if err != nil {
		return nil, err
	}

	if session.Expired(time.Now()) {
		return session, ErrSessionExpired
	}

	return session, nil
}

// Deactivate удаляет сессию устройства.
// Локальные зеркало и очередь не трогаются: необработанные мутации
// переживают повторную активацию тем же ключом.
func (s *Service) Deactivate(ctx context.Context) error {
	if err := s.sessions.DeleteSession(ctx); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ErrSessionExpired indicates that the stored device token is past its expiry
var ErrSessionExpired = errors.New("device session expired, re-activate with the license key")

// getOrCreateDeviceID возвращает сохраненный идентификатор устройства
// или генерирует новый при первом запуске. ID стабилен между активациями:
// сервер видит одно и то же устройство.
func (s *Service) getOrCreateDeviceID(ctx context.Context) (string, error) {
	deviceID, err := s.metadata.GetDeviceID(ctx)
	if err != nil {
		return "", err
	}
	if deviceID != "" {
		return deviceID, nil
	}

	deviceID = uuid.New().String()
	if err := s.metadata.SaveDeviceID(ctx, deviceID); err != nil {
		return "", err
	}
	return deviceID, nil
}
