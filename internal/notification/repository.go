package notification

import (
	"context"
	"errors"
	"fmt"

	"hydrolink-monitor/internal/database"
	appErrors "hydrolink-monitor/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the notification-log contract shared by the deriver and
// the feed.
type Store interface {
	Add(ctx context.Context, n *Notification) error
	ListBefore(ctx context.Context, deviceID, cursor string, limit int) ([]Notification, error)
	CountUnread(ctx context.Context, deviceID string) (int64, error)
	MarkRead(ctx context.Context, deviceID, key string) error
	BatteryLatch(ctx context.Context, deviceID string) (string, error)
	SetBatteryLatch(ctx context.Context, deviceID, status string) error
}

type GormStore struct {
	db *database.Database
}

func NewStore(db *database.Database) *GormStore {
	return &GormStore{db: db}
}

// Add stores a notification. A duplicate key is a no-op so a retried
// derivation after a crash does not fail.
func (s *GormStore) Add(ctx context.Context, n *Notification) error {
	err := s.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}, {Name: "key"}},
			DoNothing: true,
		}).
		Create(n).Error
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

// ListBefore returns up to limit notifications in descending key
// order. An empty cursor starts at the newest entry; otherwise only
// keys strictly before the cursor are returned.
func (s *GormStore) ListBefore(ctx context.Context, deviceID, cursor string, limit int) ([]Notification, error) {
	query := s.db.DB.WithContext(ctx).
		Where("device_id = ?", deviceID)
	if cursor != "" {
		query = query.Where("key < ?", cursor)
	}

	var notifications []Notification
	err := query.Order("key DESC").Limit(limit).Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

// CountUnread scans the entire notification log for unseen entries,
// not just the loaded pages.
func (s *GormStore) CountUnread(ctx context.Context, deviceID string) (int64, error) {
	var count int64
	err := s.db.DB.WithContext(ctx).
		Model(&Notification{}).
		Where("device_id = ? AND read = ?", deviceID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

func (s *GormStore) MarkRead(ctx context.Context, deviceID, key string) error {
	result := s.db.DB.WithContext(ctx).
		Model(&Notification{}).
		Where("device_id = ? AND key = ?", deviceID, key).
		Update("read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrNotificationNotFound
	}

	return nil
}

// BatteryLatch returns the persisted latch for a device, defaulting to
// normal when none has been written yet.
func (s *GormStore) BatteryLatch(ctx context.Context, deviceID string) (string, error) {
	var latch BatteryLatch
	err := s.db.DB.WithContext(ctx).
		Where("device_id = ?", deviceID).
		First(&latch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LatchNormal, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read battery latch: %w", err)
	}

	return latch.Status, nil
}

func (s *GormStore) SetBatteryLatch(ctx context.Context, deviceID, status string) error {
	latch := BatteryLatch{DeviceID: deviceID, Status: status}
	err := s.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(&latch).Error
	if err != nil {
		return fmt.Errorf("failed to set battery latch: %w", err)
	}

	return nil
}
