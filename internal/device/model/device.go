package model

import (
	"time"

	"github.com/google/uuid"
)

// Device is the persisted view of one Hydrolink tank unit. The status
// and sensor columns hold the latest telemetry write; presence is
// derived elsewhere and not stored here.
type Device struct {
	ID                   string     `gorm:"primaryKey;size:64" json:"id"`
	Name                 *string    `gorm:"size:120" json:"name,omitempty"`
	MAC                  string     `gorm:"size:32;index" json:"mac,omitempty"`
	WaterPercentage      float64    `json:"water_percentage"`
	LastUpdated          *time.Time `json:"last_updated,omitempty"`
	BatteryPercentage    *int       `json:"battery_percentage,omitempty"`
	TotalLitersUsedToday *float64   `json:"total_liters_used_today,omitempty"`
	WaterAvailable       *bool      `json:"water_available,omitempty"`
	MeasuredHeightCm     *float64   `json:"measured_height_cm,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Settings are the user-tunable refill parameters read by firmware.
type Settings struct {
	DeviceID                  string    `gorm:"primaryKey;size:64" json:"device_id"`
	RefillThresholdPercentage int       `json:"refill_threshold_percentage"`
	MaxFillLevelPercentage    int       `json:"max_fill_level_percentage"`
	ManualRefillTarget        int       `json:"manual_refill_target"`
	DrumHeightCm              float64   `json:"drum_height_cm"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// DefaultSettings mirror the firmware defaults shown before a user has
// saved anything.
func DefaultSettings(deviceID string) Settings {
	return Settings{
		DeviceID:                  deviceID,
		RefillThresholdPercentage: 25,
		MaxFillLevelPercentage:    75,
	}
}

// Link ties a device to a user account.
type Link struct {
	UserID    uuid.UUID `gorm:"primaryKey;type:uuid" json:"user_id"`
	DeviceID  string    `gorm:"primaryKey;size:64" json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MacRegistration maps a factory MAC address to a device id so a fresh
// unit can be claimed by the first account that registers it.
type MacRegistration struct {
	MAC       string     `gorm:"primaryKey;size:32"`
	DeviceID  string     `gorm:"size:64"`
	ClaimedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stats is the water-usage summary card.
type Stats struct {
	LitersUsedToday  float64    `json:"liters_used_today"`
	WaterAvailable   *bool      `json:"water_available,omitempty"`
	RefillsThisMonth int        `json:"refills_this_month"`
	LastRefillDate   *time.Time `json:"last_refill_date,omitempty"`
}
