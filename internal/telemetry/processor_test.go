package telemetry

import (
	"context"
	"testing"
	"time"

	"hydrolink-monitor/internal/history"

	"github.com/matryer/is"
)

type fakeDevices struct {
	statusWrites int
	sensorWrites int
	lastWater    float64
	failStatus   bool
}

func (f *fakeDevices) UpsertStatus(_ context.Context, _ string, waterPct float64, _ time.Time, _ *int) error {
	if f.failStatus {
		return context.DeadlineExceeded
	}
	f.statusWrites++
	f.lastWater = waterPct
	return nil
}

func (f *fakeDevices) UpsertSensorData(context.Context, string, *int, *float64, *bool, *float64) error {
	f.sensorWrites++
	return nil
}

type fakePresence struct {
	observed []string
	errored  []string
	removed  []string
}

func (f *fakePresence) Observe(snap StatusSnapshot) {
	f.observed = append(f.observed, snap.DeviceID)
}

func (f *fakePresence) ObserveError(deviceID string) {
	f.errored = append(f.errored, deviceID)
}

func (f *fakePresence) Remove(deviceID string) {
	f.removed = append(f.removed, deviceID)
}

type fakeMirror struct {
	reflected []StatusSnapshot
	removed   []string
}

func (f *fakeMirror) Reflect(_ context.Context, snap StatusSnapshot) error {
	f.reflected = append(f.reflected, snap)
	return nil
}

func (f *fakeMirror) Remove(_ context.Context, deviceID string) error {
	f.removed = append(f.removed, deviceID)
	return nil
}

type fakeNotifier struct {
	refillRecords []history.Record
	batteryLevels []int
}

func (f *fakeNotifier) HandleRefillRecord(_ context.Context, rec history.Record) error {
	f.refillRecords = append(f.refillRecords, rec)
	return nil
}

func (f *fakeNotifier) HandleBatteryLevel(_ context.Context, _ string, battery int) error {
	f.batteryLevels = append(f.batteryLevels, battery)
	return nil
}

type memRefills struct {
	records map[string]history.Record
}

func newMemRefills() *memRefills {
	return &memRefills{records: make(map[string]history.Record)}
}

func (r *memRefills) ListByDevice(context.Context, string) ([]history.Record, error) {
	return nil, nil
}

func (r *memRefills) Get(_ context.Context, _, recordID string) (*history.Record, error) {
	rec := r.records[recordID]
	return &rec, nil
}

func (r *memRefills) Upsert(_ context.Context, record *history.Record) error {
	if _, exists := r.records[record.ID]; exists {
		return nil
	}
	r.records[record.ID] = *record
	return nil
}

func (r *memRefills) MarkNotified(_ context.Context, _, recordID string) error {
	rec := r.records[recordID]
	rec.Notified = true
	r.records[recordID] = rec
	return nil
}

func (r *memRefills) Delete(_ context.Context, _, recordID string) error {
	delete(r.records, recordID)
	return nil
}

type fixture struct {
	processor *Processor
	devices   *fakeDevices
	presence  *fakePresence
	mirror    *fakeMirror
	notifier  *fakeNotifier
	refills   *memRefills
}

func newFixture() *fixture {
	f := &fixture{
		devices:  &fakeDevices{},
		presence: &fakePresence{},
		mirror:   &fakeMirror{},
		notifier: &fakeNotifier{},
		refills:  newMemRefills(),
	}
	f.processor = NewProcessor(f.devices, f.presence, f.mirror, f.notifier, f.refills, 1, 4, nil)
	return f
}

func TestProcessStatusFansOut(t *testing.T) {
	is := is.New(t)

	f := newFixture()
	water := 48.0
	battery := 19

	err := f.processor.processStatus(statusEvent{
		deviceID: "tank-1",
		msg: &StatusMessage{
			SystemOnline:      true,
			WaterPercentage:   &water,
			LastUpdated:       1700000000,
			BatteryPercentage: &battery,
		},
	})
	is.NoErr(err)

	is.Equal(f.presence.observed, []string{"tank-1"})
	is.Equal(f.devices.statusWrites, 1)
	is.Equal(f.devices.lastWater, 48.0)
	is.Equal(len(f.mirror.reflected), 1)
	is.Equal(f.mirror.reflected[0].LastUpdated, time.UnixMilli(1700000000000))
	is.Equal(f.notifier.batteryLevels, []int{19})
}

func TestProcessStatusStoreFailureDegradesPresence(t *testing.T) {
	is := is.New(t)

	f := newFixture()
	f.devices.failStatus = true

	err := f.processor.processStatus(statusEvent{
		deviceID: "tank-1",
		msg:      &StatusMessage{SystemOnline: true},
	})
	is.True(err != nil)
	is.Equal(f.presence.errored, []string{"tank-1"})
	is.Equal(len(f.mirror.reflected), 0)
}

func TestProcessStatusRemoval(t *testing.T) {
	is := is.New(t)

	f := newFixture()

	err := f.processor.processStatus(statusEvent{deviceID: "tank-1"})
	is.NoErr(err)

	is.Equal(f.presence.removed, []string{"tank-1"})
	is.Equal(f.mirror.removed, []string{"tank-1"})
	is.Equal(f.devices.statusWrites, 0)
}

func TestProcessSensorData(t *testing.T) {
	is := is.New(t)

	f := newFixture()
	battery := 55

	err := f.processor.processSensorData(sensorEvent{
		deviceID: "tank-1",
		msg:      &SensorDataMessage{BatteryPercentage: &battery},
	})
	is.NoErr(err)
	is.Equal(f.devices.sensorWrites, 1)
	is.Equal(f.notifier.batteryLevels, []int{55})
}

func TestProcessRefillEventStoresAndNotifies(t *testing.T) {
	is := is.New(t)

	f := newFixture()
	before, after := 20.0, 75.0

	err := f.processor.processRefillEvent(refillEvent{
		deviceID: "tank-1",
		msg: &RefillEventMessage{
			ID:             "rec-1",
			Timestamp:      1700000000, // seconds, must normalize
			BeforeLevelPct: &before,
			AfterLevelPct:  &after,
			Status:         history.StatusCompleted,
		},
	})
	is.NoErr(err)

	stored := f.refills.records["rec-1"]
	is.Equal(stored.Timestamp, int64(1700000000000))
	is.Equal(len(f.notifier.refillRecords), 1)
}

func TestProcessRefillRedeliveryKeepsNotifiedFlag(t *testing.T) {
	is := is.New(t)

	f := newFixture()
	before, after := 20.0, 75.0
	msg := &RefillEventMessage{
		ID:             "rec-1",
		Timestamp:      1700000000000,
		BeforeLevelPct: &before,
		AfterLevelPct:  &after,
		Status:         history.StatusCompleted,
	}

	is.NoErr(f.processor.processRefillEvent(refillEvent{deviceID: "tank-1", msg: msg}))
	is.NoErr(f.refills.MarkNotified(context.Background(), "tank-1", "rec-1"))

	// redelivery: the deriver must see the stored notified=true row
	is.NoErr(f.processor.processRefillEvent(refillEvent{deviceID: "tank-1", msg: msg}))
	is.Equal(len(f.notifier.refillRecords), 2)
	is.True(f.notifier.refillRecords[1].Notified)
}

func TestEnqueueDropsWhenBufferFull(t *testing.T) {
	is := is.New(t)

	f := newFixture()

	// workers not started; the 4-slot buffer fills, the rest drop
	for i := 0; i < 6; i++ {
		f.processor.EnqueueStatus("tank-1", &StatusMessage{})
	}

	metrics := f.processor.Metrics()
	is.Equal(metrics.MessagesReceived, int64(4))
	is.Equal(metrics.MessagesDropped, int64(2))
}
