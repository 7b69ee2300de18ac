package telemetry

import (
	"encoding/json"
	"time"
)

// Firmware timestamps arrive as epoch values that are sometimes seconds
// and sometimes milliseconds depending on firmware version. Anything
// below 13 digits is treated as seconds.
const millisLowerBound = 1_000_000_000_000

// NormalizeEpochMillis converts a raw device epoch value to
// milliseconds. Zero and negative values are returned unchanged.
func NormalizeEpochMillis(raw int64) int64 {
	if raw > 0 && raw < millisLowerBound {
		return raw * 1000
	}
	return raw
}

// EpochToTime converts a raw device epoch value to a wall-clock time.
func EpochToTime(raw int64) time.Time {
	ms := NormalizeEpochMillis(raw)
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// StatusMessage is the payload published on the device status topic.
type StatusMessage struct {
	SystemOnline      bool     `json:"systemOnline"`
	WaterPercentage   *float64 `json:"waterPercentage"`
	LastUpdated       int64    `json:"lastUpdated"`
	BatteryPercentage *int     `json:"batteryPercentage"`
}

// SensorDataMessage is the payload published on the sensor data topic.
type SensorDataMessage struct {
	BatteryPercentage    *int     `json:"batteryPercentage"`
	TotalLitersUsedToday *float64 `json:"totalLitersUsedToday"`
	WaterAvailable       *bool    `json:"waterAvailable"`
	MeasuredHeightCm     *float64 `json:"measuredHeightCm"`
	Timestamp            int64    `json:"timestamp"`
}

// RefillEventMessage is one refill history entry published by firmware
// when a refill cycle finishes (or fails).
type RefillEventMessage struct {
	ID                string   `json:"id"`
	Timestamp         int64    `json:"timestamp"`
	BeforeLevelPct    *float64 `json:"beforeLevelPct"`
	AfterLevelPct     *float64 `json:"afterLevelPct"`
	AmountLitersAdded *float64 `json:"amountLitersAdded"`
	DurationMin       *float64 `json:"durationMin"`
	Status            string   `json:"status"`
	ActionsLog        string   `json:"actionsLog"`
}

// StatusSnapshot is the normalized view of a status write.
type StatusSnapshot struct {
	DeviceID          string
	SystemOnline      bool
	WaterPercentage   float64
	LastUpdated       time.Time
	BatteryPercentage *int
}

func ParseStatus(payload []byte) (*StatusMessage, error) {
	var msg StatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func ParseSensorData(payload []byte) (*SensorDataMessage, error) {
	var msg SensorDataMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	return &msg, nil
}

func ParseRefillEvent(payload []byte) (*RefillEventMessage, error) {
	var msg RefillEventMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Snapshot normalizes a raw status message for a device.
func (m *StatusMessage) Snapshot(deviceID string) StatusSnapshot {
	snap := StatusSnapshot{
		DeviceID:          deviceID,
		SystemOnline:      m.SystemOnline,
		LastUpdated:       EpochToTime(m.LastUpdated),
		BatteryPercentage: m.BatteryPercentage,
	}
	if m.WaterPercentage != nil {
		snap.WaterPercentage = *m.WaterPercentage
	}
	return snap
}
