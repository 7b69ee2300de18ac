// Package mirror maintains a flattened copy of each device's latest
// status in its own table. Reporting queries read the mirror instead
// of the live device rows, and each mirrored write carries a server
// side timestamp independent of the device clock.
package mirror

import (
	"context"
	"time"

	"hydrolink-monitor/internal/telemetry"

	"go.uber.org/zap"
)

// Document is one mirrored status row.
type Document struct {
	DeviceID          string     `gorm:"primaryKey;size:64" json:"device_id"`
	SystemOnline      bool       `json:"system_online"`
	WaterPercentage   float64    `json:"water_percentage"`
	BatteryPercentage *int       `json:"battery_percentage,omitempty"`
	LastUpdated       *time.Time `json:"last_updated,omitempty"`
	MirroredAt        time.Time  `json:"mirrored_at"`
}

// Store persists mirrored documents.
type Store interface {
	Upsert(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, deviceID string) error
}

type Mirror struct {
	store Store
	now   func() time.Time
	log   *zap.Logger
}

func New(store Store, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{store: store, now: time.Now, log: log}
}

// Reflect writes the snapshot into the mirror table, stamping it with
// the server clock.
func (m *Mirror) Reflect(ctx context.Context, snap telemetry.StatusSnapshot) error {
	doc := &Document{
		DeviceID:          snap.DeviceID,
		SystemOnline:      snap.SystemOnline,
		WaterPercentage:   snap.WaterPercentage,
		BatteryPercentage: snap.BatteryPercentage,
		MirroredAt:        m.now(),
	}
	if !snap.LastUpdated.IsZero() {
		t := snap.LastUpdated
		doc.LastUpdated = &t
	}

	if err := m.store.Upsert(ctx, doc); err != nil {
		m.log.Error("failed to mirror status",
			zap.String("device_id", snap.DeviceID),
			zap.Error(err))
		return err
	}
	return nil
}

// Remove drops the mirrored row when the source device goes away.
func (m *Mirror) Remove(ctx context.Context, deviceID string) error {
	if err := m.store.Delete(ctx, deviceID); err != nil {
		m.log.Error("failed to remove mirrored status",
			zap.String("device_id", deviceID),
			zap.Error(err))
		return err
	}
	return nil
}
