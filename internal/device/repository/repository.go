package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hydrolink-monitor/internal/database"
	"hydrolink-monitor/internal/device/model"
	appErrors "hydrolink-monitor/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeviceRepository struct {
	db *database.Database
}

func NewRepository(db *database.Database) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) GetDevice(ctx context.Context, deviceID string) (*model.Device, error) {
	var device model.Device
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", deviceID).
		First(&device).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return &device, nil
}

// UpsertStatus applies the latest status snapshot, creating the device
// row on first contact.
func (r *DeviceRepository) UpsertStatus(ctx context.Context, deviceID string, waterPct float64, lastUpdated time.Time, battery *int) error {
	device := model.Device{
		ID:              deviceID,
		WaterPercentage: waterPct,
		UpdatedAt:       time.Now(),
	}
	if !lastUpdated.IsZero() {
		device.LastUpdated = &lastUpdated
	}
	if battery != nil {
		device.BatteryPercentage = battery
	}

	columns := []string{"water_percentage", "last_updated", "updated_at"}
	if battery != nil {
		columns = append(columns, "battery_percentage")
	}

	err := r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(&device).Error
	if err != nil {
		return fmt.Errorf("failed to upsert device status: %w", err)
	}

	return nil
}

// UpsertSensorData applies the latest sensor readings.
func (r *DeviceRepository) UpsertSensorData(ctx context.Context, deviceID string, battery *int, litersToday *float64, waterAvailable *bool, measuredHeight *float64) error {
	device := model.Device{
		ID:                   deviceID,
		BatteryPercentage:    battery,
		TotalLitersUsedToday: litersToday,
		WaterAvailable:       waterAvailable,
		MeasuredHeightCm:     measuredHeight,
		UpdatedAt:            time.Now(),
	}

	columns := []string{"updated_at"}
	if battery != nil {
		columns = append(columns, "battery_percentage")
	}
	if litersToday != nil {
		columns = append(columns, "total_liters_used_today")
	}
	if waterAvailable != nil {
		columns = append(columns, "water_available")
	}
	if measuredHeight != nil {
		columns = append(columns, "measured_height_cm")
	}

	err := r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(&device).Error
	if err != nil {
		return fmt.Errorf("failed to upsert sensor data: %w", err)
	}

	return nil
}

func (r *DeviceRepository) GetSettings(ctx context.Context, deviceID string) (*model.Settings, error) {
	var settings model.Settings
	err := r.db.DB.WithContext(ctx).
		Where("device_id = ?", deviceID).
		First(&settings).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		defaults := model.DefaultSettings(deviceID)
		return &defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return &settings, nil
}

func (r *DeviceRepository) SaveSettings(ctx context.Context, settings *model.Settings) error {
	settings.UpdatedAt = time.Now()

	err := r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			UpdateAll: true,
		}).
		Create(settings).Error
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}

func (r *DeviceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Device, error) {
	var devices []model.Device
	err := r.db.DB.WithContext(ctx).
		Joins("JOIN links ON links.device_id = devices.id").
		Where("links.user_id = ?", userID).
		Find(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user devices: %w", err)
	}

	return devices, nil
}

func (r *DeviceRepository) IsLinked(ctx context.Context, userID uuid.UUID, deviceID string) (bool, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&model.Link{}).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check device link: %w", err)
	}

	return count > 0, nil
}

func (r *DeviceRepository) Link(ctx context.Context, userID uuid.UUID, deviceID string) error {
	link := model.Link{UserID: userID, DeviceID: deviceID}
	err := r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
	if err != nil {
		return fmt.Errorf("failed to link device: %w", err)
	}

	return nil
}

func (r *DeviceRepository) Unlink(ctx context.Context, userID uuid.UUID, deviceID string) error {
	result := r.db.DB.WithContext(ctx).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		Delete(&model.Link{})
	if result.Error != nil {
		return fmt.Errorf("failed to unlink device: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrDeviceNotLinked
	}

	return nil
}

// FindMacRegistration looks up the factory registration for a MAC.
func (r *DeviceRepository) FindMacRegistration(ctx context.Context, mac string) (*model.MacRegistration, error) {
	var reg model.MacRegistration
	err := r.db.DB.WithContext(ctx).
		Where("mac = ?", mac).
		First(&reg).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrDeviceUnclaimed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up MAC registration: %w", err)
	}

	return &reg, nil
}

func (r *DeviceRepository) MarkClaimed(ctx context.Context, mac string, userID uuid.UUID) error {
	err := r.db.DB.WithContext(ctx).
		Model(&model.MacRegistration{}).
		Where("mac = ?", mac).
		Update("claimed_by", userID).Error
	if err != nil {
		return fmt.Errorf("failed to mark MAC claimed: %w", err)
	}

	return nil
}

// EnsureDevice creates the device row for a claim if telemetry has not
// already done so.
func (r *DeviceRepository) EnsureDevice(ctx context.Context, deviceID, mac string, name *string) error {
	device := model.Device{ID: deviceID, MAC: mac, Name: name, UpdatedAt: time.Now()}
	err := r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"mac", "updated_at"}),
		}).
		Create(&device).Error
	if err != nil {
		return fmt.Errorf("failed to ensure device row: %w", err)
	}

	return nil
}
