package telemetry

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestNormalizeEpochMillis(t *testing.T) {
	is := is.New(t)

	// seconds-resolution epochs are below 13 digits and get scaled
	is.Equal(NormalizeEpochMillis(1700000000), int64(1700000000000))
	is.Equal(NormalizeEpochMillis(1), int64(1000))

	// already milliseconds
	is.Equal(NormalizeEpochMillis(1700000000000), int64(1700000000000))
	is.Equal(NormalizeEpochMillis(999_999_999_999), int64(999_999_999_999_000))

	// zero and negatives pass through
	is.Equal(NormalizeEpochMillis(0), int64(0))
	is.Equal(NormalizeEpochMillis(-5), int64(-5))
}

func TestEpochToTime(t *testing.T) {
	is := is.New(t)

	is.Equal(EpochToTime(1700000000), time.UnixMilli(1700000000000))
	is.Equal(EpochToTime(1700000000000), time.UnixMilli(1700000000000))
	is.True(EpochToTime(0).IsZero())
}

func TestParseStatus(t *testing.T) {
	is := is.New(t)

	payload := []byte(`{"systemOnline":true,"waterPercentage":63.5,"lastUpdated":1700000000,"batteryPercentage":88}`)
	msg, err := ParseStatus(payload)
	is.NoErr(err)
	is.True(msg.SystemOnline)
	is.Equal(*msg.WaterPercentage, 63.5)
	is.Equal(*msg.BatteryPercentage, 88)

	snap := msg.Snapshot("tank-1")
	is.Equal(snap.DeviceID, "tank-1")
	is.Equal(snap.WaterPercentage, 63.5)
	is.Equal(snap.LastUpdated, time.UnixMilli(1700000000000))
}

func TestParseStatusMissingFields(t *testing.T) {
	is := is.New(t)

	msg, err := ParseStatus([]byte(`{"systemOnline":false}`))
	is.NoErr(err)
	is.Equal(msg.WaterPercentage, (*float64)(nil))

	snap := msg.Snapshot("tank-1")
	is.Equal(snap.WaterPercentage, 0.0)
	is.True(snap.LastUpdated.IsZero())
}

func TestParseStatusRejectsGarbage(t *testing.T) {
	is := is.New(t)

	_, err := ParseStatus([]byte(`not json`))
	is.True(err != nil)
}

func TestParseSensorDataDefaultsTimestamp(t *testing.T) {
	is := is.New(t)

	msg, err := ParseSensorData([]byte(`{"batteryPercentage":42}`))
	is.NoErr(err)
	is.True(msg.Timestamp > 0)
	is.Equal(*msg.BatteryPercentage, 42)
}

func TestParseRefillEvent(t *testing.T) {
	is := is.New(t)

	payload := []byte(`{"id":"rec-9","timestamp":1700000000,"beforeLevelPct":20,"afterLevelPct":75,"amountLitersAdded":530,"durationMin":12,"status":"Completed","actionsLog":"Auto refill"}`)
	msg, err := ParseRefillEvent(payload)
	is.NoErr(err)
	is.Equal(msg.ID, "rec-9")
	is.Equal(*msg.BeforeLevelPct, 20.0)
	is.Equal(msg.Status, "Completed")
}

func TestDeviceIDFromTopic(t *testing.T) {
	is := is.New(t)

	id, ok := deviceIDFromTopic("hydrolink/devices/tank-1/status")
	is.True(ok)
	is.Equal(id, "tank-1")

	_, ok = deviceIDFromTopic("hydrolink/broadcast")
	is.True(!ok)

	_, ok = deviceIDFromTopic("hydrolink/devices/")
	is.True(!ok)
}
