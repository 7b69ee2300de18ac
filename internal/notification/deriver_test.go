package notification

import (
	"context"
	"testing"
	"time"

	"hydrolink-monitor/internal/history"

	"github.com/matryer/is"
)

type fakeRefills struct {
	notified map[string]bool
}

func newFakeRefills() *fakeRefills {
	return &fakeRefills{notified: make(map[string]bool)}
}

func (f *fakeRefills) ListByDevice(context.Context, string) ([]history.Record, error) {
	return nil, nil
}

func (f *fakeRefills) Get(context.Context, string, string) (*history.Record, error) {
	return nil, nil
}

func (f *fakeRefills) Upsert(context.Context, *history.Record) error { return nil }

func (f *fakeRefills) MarkNotified(_ context.Context, _, recordID string) error {
	f.notified[recordID] = true
	return nil
}

func (f *fakeRefills) Delete(context.Context, string, string) error { return nil }

func floatPtr(v float64) *float64 { return &v }

// newTestDeriver advances the deriver clock one second per call so
// derived keys never collide.
func newTestDeriver(store Store, refills history.Repository) *Deriver {
	d := NewDeriver(store, refills, nil)
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}
	return d
}

func completedRecord(id string) history.Record {
	return history.Record{
		ID:                id,
		DeviceID:          "tank-1",
		Timestamp:         1700000000000,
		BeforeLevelPct:    floatPtr(22),
		AfterLevelPct:     floatPtr(75),
		AmountLitersAdded: floatPtr(530),
		DurationMin:       floatPtr(12),
		Status:            history.StatusCompleted,
		ActionsLog:        "Auto refill triggered at threshold",
	}
}

func TestRefillRecordNotifiesOnce(t *testing.T) {
	is := is.New(t)

	store := newFakeStore()
	refills := newFakeRefills()
	d := newTestDeriver(store, refills)

	rec := completedRecord("rec-1")
	is.NoErr(d.HandleRefillRecord(context.Background(), rec))

	entries := store.notifications["tank-1"]
	is.Equal(len(entries), 1)
	is.Equal(entries[0].Key, "1700000000000-rec-1")
	is.Equal(entries[0].Type, TypeRefill)
	is.Equal(entries[0].Message, "Refill: 22% to 75% (Status: Completed)")
	is.True(refills.notified["rec-1"])

	// redelivery with the flag set is a no-op
	rec.Notified = true
	is.NoErr(d.HandleRefillRecord(context.Background(), rec))
	is.Equal(len(store.notifications["tank-1"]), 1)
}

func TestFailedRefillWithNoWaterMarker(t *testing.T) {
	is := is.New(t)

	store := newFakeStore()
	d := newTestDeriver(store, newFakeRefills())

	rec := completedRecord("rec-2")
	rec.Status = history.StatusFailed
	rec.ActionsLog = "Pump started. No Water Detected. Shutting down."

	is.NoErr(d.HandleRefillRecord(context.Background(), rec))

	entries := store.notifications["tank-1"]
	is.Equal(len(entries), 1)
	is.Equal(entries[0].Type, TypeNoWater)
	is.Equal(entries[0].Title, "No Water Detected")
	is.Equal(entries[0].Message, rec.ActionsLog)
}

func TestFailedRefillWithoutMarkerIsOrdinary(t *testing.T) {
	is := is.New(t)

	store := newFakeStore()
	d := newTestDeriver(store, newFakeRefills())

	rec := completedRecord("rec-3")
	rec.Status = history.StatusFailed
	rec.ActionsLog = "Pump fault"

	is.NoErr(d.HandleRefillRecord(context.Background(), rec))
	is.Equal(store.notifications["tank-1"][0].Type, TypeRefill)
}

func TestBatteryLatchBands(t *testing.T) {
	is := is.New(t)

	store := newFakeStore()
	d := newTestDeriver(store, newFakeRefills())
	ctx := context.Background()

	// repeated lows inside the band notify once, recovery resets the
	// latch, the next low notifies again
	for _, level := range []int{15, 15, 15, 50, 15} {
		is.NoErr(d.HandleBatteryLevel(ctx, "tank-1", level))
	}

	entries := store.notifications["tank-1"]
	is.Equal(len(entries), 2)
	is.Equal(entries[0].Type, TypeBatteryLow)
	is.Equal(entries[1].Type, TypeBatteryLow)

	latch, err := store.BatteryLatch(ctx, "tank-1")
	is.NoErr(err)
	is.Equal(latch, LatchLow)
}

func TestBatteryFullNotifies(t *testing.T) {
	is := is.New(t)

	store := newFakeStore()
	d := newTestDeriver(store, newFakeRefills())
	ctx := context.Background()

	is.NoErr(d.HandleBatteryLevel(ctx, "tank-1", 100))
	is.NoErr(d.HandleBatteryLevel(ctx, "tank-1", 100))

	entries := store.notifications["tank-1"]
	is.Equal(len(entries), 1)
	is.Equal(entries[0].Type, TypeBatteryFull)
}

func TestFeedOrdersAcrossTriggerKinds(t *testing.T) {
	is := is.New(t)

	store := newFakeStore()
	d := newTestDeriver(store, newFakeRefills())
	ctx := context.Background()

	// an older refill record, then a newer battery crossing; the feed
	// must return the newer battery entry first
	is.NoErr(d.HandleRefillRecord(ctx, completedRecord("rec-1")))
	is.NoErr(d.HandleBatteryLevel(ctx, "tank-1", 12))

	page, err := NewFeed(store, "tank-1").LoadPage(ctx, true)
	is.NoErr(err)
	is.Equal(len(page), 2)
	is.Equal(page[0].Type, TypeBatteryLow)
	is.Equal(page[1].Type, TypeRefill)
	is.True(page[0].Timestamp >= page[1].Timestamp)
}

func TestBatteryNormalBandIsQuiet(t *testing.T) {
	is := is.New(t)

	store := newFakeStore()
	d := newTestDeriver(store, newFakeRefills())
	ctx := context.Background()

	is.NoErr(d.HandleBatteryLevel(ctx, "tank-1", 55))
	is.NoErr(d.HandleBatteryLevel(ctx, "tank-1", 60))

	is.Equal(len(store.notifications["tank-1"]), 0)
}
