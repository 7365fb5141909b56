package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ringsync/ringsync/internal/client/auth"
	"github.com/ringsync/ringsync/internal/client/storage"
)

func (c *Cli) runActivate(ctx context.Context, sources KeySources, args []string) error {
	if len(args) > 0 {
		sources.FromArgs = args[0]
	}

	key, err := c.getLicenseKey(sources)
	if err != nil {
		return err
	}

	// Имя устройства чисто информационное, hostname достаточно
	deviceName, err := os.Hostname()
	if err != nil {
		deviceName = ""
	}

	result, err := c.authService.Activate(ctx, key, deviceName)
	if err != nil {
		return fmt.Errorf("activation failed: %w", err)
	}

	c.io.Println("Device activated.")
	c.io.Printf("Event:         %s\n", result.EventName)
	c.io.Printf("License:       %s\n", result.TenantID)
	c.io.Printf("Device ID:     %s\n", result.DeviceID)
	c.io.Printf("Token expires: %s\n", time.Unix(result.ExpiresAt, 0).Format(time.RFC3339))
	c.io.Println()
	c.io.Println("Run 'ringsync pull' to download the event data.")

	return nil
}

func (c *Cli) runDeactivate(ctx context.Context) error {
	if err := c.authService.Deactivate(ctx); err != nil {
		return err
	}
	c.io.Println("Device deactivated. Queued scores are kept and will sync after re-activation.")
	return nil
}

// session возвращает активную сессию или понятную оператору ошибку.
// Используется сетевыми командами, которым нужен валидный токен.
func (c *Cli) session(ctx context.Context) (*storage.DeviceSession, error) {
	session, err := c.authService.Session(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, fmt.Errorf("device is not activated. Run 'ringsync activate' first")
		}
		if errors.Is(err, auth.ErrSessionExpired) {
			return nil, fmt.Errorf("device token expired. Run 'ringsync activate' with your license key")
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// localSession как session, но терпит истекший токен: локальные команды
// (просмотр зеркала, управление очередью) работают без связи с сервером
func (c *Cli) localSession(ctx context.Context) (*storage.DeviceSession, error) {
	session, err := c.authService.Session(ctx)
	if err != nil && !errors.Is(err, auth.ErrSessionExpired) {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, fmt.Errorf("device is not activated. Run 'ringsync activate' first")
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}
