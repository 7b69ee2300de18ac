package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	appErrors "hydrolink-monitor/pkg/errors"

	"github.com/matryer/is"
)

type fakeRepo struct {
	records map[string][]Record // deviceID -> records
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string][]Record)}
}

func (r *fakeRepo) ListByDevice(_ context.Context, deviceID string) ([]Record, error) {
	return append([]Record(nil), r.records[deviceID]...), nil
}

func (r *fakeRepo) Get(_ context.Context, deviceID, recordID string) (*Record, error) {
	for _, rec := range r.records[deviceID] {
		if rec.ID == recordID {
			out := rec
			return &out, nil
		}
	}
	return nil, appErrors.ErrRecordNotFound
}

func (r *fakeRepo) Upsert(_ context.Context, record *Record) error {
	for _, rec := range r.records[record.DeviceID] {
		if rec.ID == record.ID {
			return nil
		}
	}
	r.records[record.DeviceID] = append(r.records[record.DeviceID], *record)
	return nil
}

func (r *fakeRepo) MarkNotified(_ context.Context, deviceID, recordID string) error {
	records := r.records[deviceID]
	for i := range records {
		if records[i].ID == recordID {
			records[i].Notified = true
			return nil
		}
	}
	return appErrors.ErrRecordNotFound
}

func (r *fakeRepo) Delete(_ context.Context, deviceID, recordID string) error {
	records := r.records[deviceID]
	for i := range records {
		if records[i].ID == recordID {
			r.records[deviceID] = append(records[:i], records[i+1:]...)
			return nil
		}
	}
	return appErrors.ErrRecordNotFound
}

var testNow = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

// record builds a well-formed record daysAgo days before testNow.
func record(id string, daysAgo int, status, actionsLog string) Record {
	ts := testNow.AddDate(0, 0, -daysAgo)
	return Record{
		ID:                id,
		DeviceID:          "tank-1",
		Timestamp:         ts.UnixMilli(),
		BeforeLevelPct:    ptr(20),
		AfterLevelPct:     ptr(75),
		AmountLitersAdded: ptr(500),
		DurationMin:       ptr(10),
		Status:            status,
		ActionsLog:        actionsLog,
	}
}

func loadedController(t *testing.T, records []Record) (*Controller, *fakeRepo) {
	t.Helper()

	repo := newFakeRepo()
	repo.records["tank-1"] = records

	c := NewController(repo)
	c.now = func() time.Time { return testNow }
	if err := c.Fetch(context.Background(), "tank-1"); err != nil {
		t.Fatal(err)
	}
	return c, repo
}

func TestRecordTypeHeuristic(t *testing.T) {
	is := is.New(t)

	is.Equal(record("a", 0, StatusCompleted, "Auto refill at threshold").Type(), TypeAutomatic)
	is.Equal(record("b", 0, StatusCompleted, "Threshold reached").Type(), TypeAutomatic)
	is.Equal(record("c", 0, StatusCompleted, "Manual refill requested").Type(), TypeManual)
	is.Equal(record("d", 0, StatusCompleted, "Timer fired").Type(), TypeScheduled)
}

func TestDateCutoff(t *testing.T) {
	is := is.New(t)

	is.True(DateCutoff("All", testNow).IsZero())
	is.True(DateCutoff("", testNow).IsZero())
	is.True(DateCutoff("7d", testNow).IsZero()) // unparsable

	cutoff := DateCutoff("7", testNow)
	is.Equal(cutoff, time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC))
}

func TestRenderPageWindows(t *testing.T) {
	is := is.New(t)

	var records []Record
	for i := 0; i < 25; i++ {
		records = append(records, record(fmt.Sprintf("rec-%02d", i), i, StatusCompleted, "Auto"))
	}
	c, _ := loadedController(t, records)

	page := c.RenderPage(1)
	is.Equal(len(page.Rows), 10)
	is.Equal(page.Rows[0].RecordID, "rec-00") // newest first
	is.Equal(page.TotalPages, 3)
	is.Equal(page.TotalRecords, 25)

	page = c.RenderPage(3)
	is.Equal(len(page.Rows), 5)
	is.Equal(page.Rows[0].RecordID, "rec-20")

	// out-of-range indices clamp
	is.Equal(c.RenderPage(0).PageIndex, 1)
	is.Equal(c.RenderPage(99).PageIndex, 3)
}

func TestMalformedRecordsOccupySlotsButDoNotRender(t *testing.T) {
	is := is.New(t)

	records := []Record{
		record("ok-1", 0, StatusCompleted, "Auto"),
		record("ok-2", 1, StatusCompleted, "Auto"),
	}
	broken := record("broken", 2, StatusCompleted, "Auto")
	broken.AfterLevelPct = nil
	records = append(records, broken)

	c, _ := loadedController(t, records)

	page := c.RenderPage(1)
	is.Equal(len(page.Rows), 2)      // broken row skipped
	is.Equal(page.TotalRecords, 3)   // but still counted
	is.Equal(page.TotalPages, 1)
}

func TestFilterByTypeAndStatus(t *testing.T) {
	is := is.New(t)

	c, _ := loadedController(t, []Record{
		record("auto-done", 0, StatusCompleted, "Auto refill"),
		record("manual-done", 1, StatusCompleted, "Manual refill"),
		record("manual-failed", 2, StatusFailed, "Manual refill"),
	})

	c.SetFilter(Filter{Type: TypeManual})
	rows := c.VisibleRows()
	is.Equal(len(rows), 2)

	c.SetFilter(Filter{Type: TypeManual, Status: StatusCompleted})
	rows = c.VisibleRows()
	is.Equal(len(rows), 1)
	is.Equal(rows[0].RecordID, "manual-done")

	c.SetFilter(Filter{Type: "All", Status: "All"})
	is.Equal(len(c.VisibleRows()), 3)
}

func TestFilterByDaysBack(t *testing.T) {
	is := is.New(t)

	c, _ := loadedController(t, []Record{
		record("recent", 2, StatusCompleted, "Auto"),
		record("old", 40, StatusCompleted, "Auto"),
	})

	c.SetFilter(Filter{DaysBack: "7"})
	rows := c.VisibleRows()
	is.Equal(len(rows), 1)
	is.Equal(rows[0].RecordID, "recent")

	c.SetFilter(Filter{DaysBack: "All"})
	is.Equal(len(c.VisibleRows()), 2)
}

func TestDeleteRecordRefetches(t *testing.T) {
	is := is.New(t)

	c, repo := loadedController(t, []Record{
		record("keep", 0, StatusCompleted, "Auto"),
		record("drop", 1, StatusCompleted, "Auto"),
	})

	is.NoErr(c.DeleteRecord(context.Background(), "drop"))
	is.Equal(c.TotalRecords(), 1)
	is.Equal(len(repo.records["tank-1"]), 1)

	err := c.DeleteRecord(context.Background(), "missing")
	is.True(err != nil)
}

func TestUpsertPreservesExistingRecord(t *testing.T) {
	is := is.New(t)

	repo := newFakeRepo()
	rec := record("rec-1", 0, StatusCompleted, "Auto")
	is.NoErr(repo.Upsert(context.Background(), &rec))
	is.NoErr(repo.MarkNotified(context.Background(), "tank-1", "rec-1"))

	// redelivery must not clear the notified flag
	again := record("rec-1", 0, StatusCompleted, "Auto")
	is.NoErr(repo.Upsert(context.Background(), &again))

	stored, err := repo.Get(context.Background(), "tank-1", "rec-1")
	is.NoErr(err)
	is.True(stored.Notified)
}
