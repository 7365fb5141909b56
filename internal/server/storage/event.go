package storage

import (
	"context"

	"github.com/ringsync/ringsync/internal/models"
)

// EventStorage defines persistence for event data (trials, classes,
// entries) and the idempotent score write.
// Все операции жестко ограничены tenant ID: устройство никогда не видит
// данные чужого соревнования.
type EventStorage interface {
	// ListTrials returns all trials of a tenant
	ListTrials(ctx context.Context, tenantID string) ([]models.Trial, error)

	// ListClasses returns all classes of a tenant
	ListClasses(ctx context.Context, tenantID string) ([]models.Class, error)

	// ListEntries returns all entries of a tenant
	ListEntries(ctx context.Context, tenantID string) ([]models.Entry, error)

	// GetEntry returns one entry by ID within a tenant.
	// Возвращает ErrEntryNotFound, если заявки нет.
	GetEntry(ctx context.Context, tenantID, entryID string) (*models.Entry, error)

	// UpsertScore applies a score payload to an entry using the LWW rule.
	// Возвращает актуальное состояние entry и признак применения:
	// false означает, что у сервера уже была более новая оценка
	// (повторная доставка или гонка двух устройств) - это не ошибка.
	UpsertScore(ctx context.Context, tenantID, entryID string, payload *models.ScorePayload) (*models.Entry, bool, error)

	// PutTrial, PutClass and PutEntry load event data into a tenant.
	// Используются импортом каталога соревнования и тестами.
	PutTrial(ctx context.Context, trial *models.Trial) error
	PutClass(ctx context.Context, class *models.Class) error
	PutEntry(ctx context.Context, entry *models.Entry) error
}
