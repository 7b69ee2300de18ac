package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hydrolink-monitor/internal/history"

	"go.uber.org/zap"
)

// NoWaterMarker is the firmware action-log string that distinguishes a
// dry-source failure from an ordinary failed refill.
const NoWaterMarker = "No Water Detected"

const (
	batteryLowThreshold  = 20
	batteryFullThreshold = 100
)

// Deriver turns raw telemetry into user-facing notifications. Refill
// records notify at most once via the persisted notified flag; battery
// levels notify at most once per band crossing via the battery latch.
type Deriver struct {
	store   Store
	refills history.Repository
	now     func() time.Time
	log     *zap.Logger
}

func NewDeriver(store Store, refills history.Repository, log *zap.Logger) *Deriver {
	if log == nil {
		log = zap.NewNop()
	}

	return &Deriver{
		store:   store,
		refills: refills,
		now:     time.Now,
		log:     log,
	}
}

// HandleRefillRecord derives a notification from a refill record
// unless one was already derived for it. The notification is written
// before the notified flag so a crash between the two re-emits rather
// than loses the notification.
func (d *Deriver) HandleRefillRecord(ctx context.Context, rec history.Record) error {
	if rec.Notified {
		return nil
	}

	// The key prefix comes from the record's own timestamp, not the
	// clock, so a crash re-emit builds the same key and dedupes.
	n := &Notification{
		DeviceID:  rec.DeviceID,
		Key:       notificationKey(rec.Timestamp, rec.ID),
		Title:     "Refill Update",
		Message:   refillMessage(rec),
		Type:      TypeRefill,
		Timestamp: rec.Timestamp,
	}
	if n.Timestamp == 0 {
		n.Timestamp = d.now().UnixMilli()
	}

	if rec.Status == history.StatusFailed && containsMarker(rec.ActionsLog) {
		n.Title = "No Water Detected"
		n.Message = rec.ActionsLog
		n.Type = TypeNoWater
	}

	if err := d.store.Add(ctx, n); err != nil {
		return err
	}

	if err := d.refills.MarkNotified(ctx, rec.DeviceID, rec.ID); err != nil {
		return fmt.Errorf("notification stored but flag write failed: %w", err)
	}

	d.log.Debug("derived refill notification",
		zap.String("device_id", rec.DeviceID),
		zap.String("record_id", rec.ID),
		zap.String("type", n.Type),
	)

	return nil
}

// HandleBatteryLevel applies the battery band rules against the
// persisted latch. Repeated updates inside the same band are no-ops.
func (d *Deriver) HandleBatteryLevel(ctx context.Context, deviceID string, battery int) error {
	latch, err := d.store.BatteryLatch(ctx, deviceID)
	if err != nil {
		return err
	}

	var n *Notification
	newLatch := latch

	switch {
	case battery <= batteryLowThreshold && latch != LatchLow:
		n = &Notification{
			DeviceID:  deviceID,
			Title:     "Battery Low",
			Message:   fmt.Sprintf("Battery level is critically low (%d%%). Please recharge.", battery),
			Type:      TypeBatteryLow,
			Timestamp: d.now().UnixMilli(),
		}
		newLatch = LatchLow

	case battery >= batteryFullThreshold && latch != LatchFull:
		n = &Notification{
			DeviceID:  deviceID,
			Title:     "Battery Full",
			Message:   fmt.Sprintf("Battery is fully charged (%d%%).", battery),
			Type:      TypeBatteryFull,
			Timestamp: d.now().UnixMilli(),
		}
		newLatch = LatchFull

	case battery > batteryLowThreshold && battery < batteryFullThreshold && latch != LatchNormal:
		// Back inside the normal band: reset the latch quietly so the
		// next crossing notifies again.
		return d.store.SetBatteryLatch(ctx, deviceID, LatchNormal)

	default:
		return nil
	}

	n.Key = notificationKey(n.Timestamp, n.Type)

	if err := d.store.Add(ctx, n); err != nil {
		return err
	}

	return d.store.SetBatteryLatch(ctx, deviceID, newLatch)
}

// notificationKey builds a log key whose fixed-width millisecond epoch
// prefix keeps lexicographic order aligned with time across trigger
// kinds. The suffix disambiguates entries sharing a millisecond.
func notificationKey(millis int64, suffix string) string {
	return fmt.Sprintf("%013d-%s", millis, suffix)
}

func refillMessage(rec history.Record) string {
	before, after := "--", "--"
	if rec.BeforeLevelPct != nil {
		before = strconv.FormatFloat(*rec.BeforeLevelPct, 'f', 0, 64)
	}
	if rec.AfterLevelPct != nil {
		after = strconv.FormatFloat(*rec.AfterLevelPct, 'f', 0, 64)
	}
	return fmt.Sprintf("Refill: %s%% to %s%% (Status: %s)", before, after, rec.Status)
}

func containsMarker(actionsLog string) bool {
	return strings.Contains(actionsLog, NoWaterMarker)
}
