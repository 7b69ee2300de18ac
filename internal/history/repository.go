package history

import (
	"context"
	"errors"
	"fmt"

	"hydrolink-monitor/internal/database"
	appErrors "hydrolink-monitor/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the refill-history store contract used by the
// controller and the notification deriver.
type Repository interface {
	ListByDevice(ctx context.Context, deviceID string) ([]Record, error)
	Get(ctx context.Context, deviceID, recordID string) (*Record, error)
	Upsert(ctx context.Context, record *Record) error
	MarkNotified(ctx context.Context, deviceID, recordID string) error
	Delete(ctx context.Context, deviceID, recordID string) error
}

type GormRepository struct {
	db *database.Database
}

func NewRepository(db *database.Database) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) ListByDevice(ctx context.Context, deviceID string) ([]Record, error) {
	var records []Record
	err := r.db.DB.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list refill history: %w", err)
	}

	return records, nil
}

func (r *GormRepository) Get(ctx context.Context, deviceID, recordID string) (*Record, error) {
	var record Record
	err := r.db.DB.WithContext(ctx).
		Where("device_id = ? AND id = ?", deviceID, recordID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refill record: %w", err)
	}

	return &record, nil
}

func (r *GormRepository) Upsert(ctx context.Context, record *Record) error {
	err := r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}, {Name: "device_id"}},
			DoNothing: true,
		}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to store refill record: %w", err)
	}

	return nil
}

func (r *GormRepository) MarkNotified(ctx context.Context, deviceID, recordID string) error {
	result := r.db.DB.WithContext(ctx).
		Model(&Record{}).
		Where("device_id = ? AND id = ?", deviceID, recordID).
		Update("notified", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark record notified: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrRecordNotFound
	}

	return nil
}

func (r *GormRepository) Delete(ctx context.Context, deviceID, recordID string) error {
	result := r.db.DB.WithContext(ctx).
		Where("device_id = ? AND id = ?", deviceID, recordID).
		Delete(&Record{})
	if errors.Is(result.Error, gorm.ErrRecordNotFound) || result.RowsAffected == 0 {
		return appErrors.ErrRecordNotFound
	}
	if result.Error != nil {
		return fmt.Errorf("failed to delete refill record: %w", result.Error)
	}

	return nil
}
