package mirror

import (
	"context"
	"fmt"

	"hydrolink-monitor/internal/database"

	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *database.Database
}

func NewGormStore(db *database.Database) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Upsert(ctx context.Context, doc *Document) error {
	err := s.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			UpdateAll: true,
		}).
		Create(doc).Error
	if err != nil {
		return fmt.Errorf("failed to upsert mirror document: %w", err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, deviceID string) error {
	err := s.db.DB.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Delete(&Document{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete mirror document: %w", err)
	}
	return nil
}
