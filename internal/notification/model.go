package notification

import "time"

// Notification types known to the dashboard.
const (
	TypeRefill      = "refill"
	TypeNoWater     = "no_water"
	TypeBatteryLow  = "battery_low"
	TypeBatteryFull = "battery_full"
)

// Battery latch states. The latch is the hysteresis device that stops
// the same battery band from notifying more than once.
const (
	LatchNormal = "normal"
	LatchLow    = "low"
	LatchFull   = "full"
)

// Notification is one user-facing event in a device's notification
// log. Key is opaque but monotonic, so lexicographic order correlates
// with recency: a zero-padded millisecond epoch prefix followed by the
// source record id (refill) or the notification type (battery).
type Notification struct {
	DeviceID  string    `gorm:"primaryKey;size:64" json:"device_id"`
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `gorm:"size:24" json:"type"`
	Timestamp int64     `json:"timestamp"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"-"`
}

// BatteryLatch persists the per-device battery notification state.
// Owned exclusively by the deriver.
type BatteryLatch struct {
	DeviceID  string `gorm:"primaryKey;size:64"`
	Status    string `gorm:"size:12"`
	UpdatedAt time.Time
}
