package mirror

import (
	"context"
	"testing"
	"time"

	"hydrolink-monitor/internal/telemetry"

	"github.com/matryer/is"
)

type fakeDocStore struct {
	docs map[string]Document
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: make(map[string]Document)}
}

func (s *fakeDocStore) Upsert(_ context.Context, doc *Document) error {
	s.docs[doc.DeviceID] = *doc
	return nil
}

func (s *fakeDocStore) Delete(_ context.Context, deviceID string) error {
	delete(s.docs, deviceID)
	return nil
}

func TestReflectStampsServerTime(t *testing.T) {
	is := is.New(t)

	store := newFakeDocStore()
	m := New(store, nil)

	serverNow := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return serverNow }

	deviceTime := time.Date(2026, time.February, 28, 23, 59, 0, 0, time.UTC)
	battery := 64
	err := m.Reflect(context.Background(), telemetry.StatusSnapshot{
		DeviceID:          "tank-1",
		SystemOnline:      true,
		WaterPercentage:   51.5,
		LastUpdated:       deviceTime,
		BatteryPercentage: &battery,
	})
	is.NoErr(err)

	doc := store.docs["tank-1"]
	is.Equal(doc.WaterPercentage, 51.5)
	is.Equal(*doc.BatteryPercentage, 64)
	is.Equal(*doc.LastUpdated, deviceTime)
	is.Equal(doc.MirroredAt, serverNow) // server clock, not the device's
}

func TestReflectWithoutDeviceTimestamp(t *testing.T) {
	is := is.New(t)

	store := newFakeDocStore()
	m := New(store, nil)

	err := m.Reflect(context.Background(), telemetry.StatusSnapshot{DeviceID: "tank-1"})
	is.NoErr(err)

	doc := store.docs["tank-1"]
	is.Equal(doc.LastUpdated, (*time.Time)(nil))
}

func TestRemoveDeletesDocument(t *testing.T) {
	is := is.New(t)

	store := newFakeDocStore()
	m := New(store, nil)

	is.NoErr(m.Reflect(context.Background(), telemetry.StatusSnapshot{DeviceID: "tank-1"}))
	is.NoErr(m.Remove(context.Background(), "tank-1"))

	_, exists := store.docs["tank-1"]
	is.True(!exists)
}
