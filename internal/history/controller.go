package history

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// PageSize is the fixed number of table rows per page.
const PageSize = 10

// Row is a renderable, well-formed refill entry.
type Row struct {
	RecordID    string    `json:"record_id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	BeforePct   float64   `json:"before_pct"`
	AfterPct    float64   `json:"after_pct"`
	AddedLiters float64   `json:"added_liters"`
	DurationMin float64   `json:"duration_min"`
	Status      string    `json:"status"`
}

// Page is one rendered window of the history table.
type Page struct {
	Rows         []Row `json:"rows"`
	PageIndex    int   `json:"page_index"`
	TotalPages   int   `json:"total_pages"`
	TotalRecords int   `json:"total_records"`
}

// Controller loads a device's full refill log once, keeps it sorted in
// memory and serves paged, filtered views plus exports over it.
type Controller struct {
	repo     Repository
	now      func() time.Time
	deviceID string
	records  []Record
	filter   Filter
}

func NewController(repo Repository) *Controller {
	return &Controller{
		repo: repo,
		now:  time.Now,
	}
}

// Fetch performs a one-shot read of the entire refill log for the
// device and sorts it descending by timestamp.
func (c *Controller) Fetch(ctx context.Context, deviceID string) error {
	records, err := c.repo.ListByDevice(ctx, deviceID)
	if err != nil {
		return err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})

	c.deviceID = deviceID
	c.records = records
	return nil
}

// SetFilter replaces the active filter. Rows the filter hides stay in
// the in-memory set; they are only excluded from rendering and export.
func (c *Controller) SetFilter(f Filter) {
	c.filter = f
}

// TotalRecords returns the size of the fetched log, malformed records
// included.
func (c *Controller) TotalRecords() int {
	return len(c.records)
}

// RenderPage slices a fixed-size window out of the log. Malformed
// records inside the window are skipped from the rendered rows but
// still occupy their slot; filtered-out rows are dropped from display.
func (c *Controller) RenderPage(pageIndex int) Page {
	total := len(c.records)
	totalPages := (total + PageSize - 1) / PageSize
	if pageIndex < 1 {
		pageIndex = 1
	}
	if totalPages > 0 && pageIndex > totalPages {
		pageIndex = totalPages
	}

	start := (pageIndex - 1) * PageSize
	end := start + PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	now := c.now()
	rows := make([]Row, 0, PageSize)
	for _, rec := range c.records[start:end] {
		if !rec.WellFormed() {
			continue
		}
		if !c.filter.Matches(rec, now) {
			continue
		}
		rows = append(rows, rowFromRecord(rec))
	}

	return Page{
		Rows:         rows,
		PageIndex:    pageIndex,
		TotalPages:   totalPages,
		TotalRecords: total,
	}
}

// VisibleRows returns every well-formed row the active filter keeps,
// across all pages, in display order. This is the export source set.
func (c *Controller) VisibleRows() []Row {
	now := c.now()

	var rows []Row
	for _, rec := range c.records {
		if !rec.WellFormed() {
			continue
		}
		if !c.filter.Matches(rec, now) {
			continue
		}
		rows = append(rows, rowFromRecord(rec))
	}
	return rows
}

// DeleteRecord removes a record from the backing store and re-fetches
// the full log. The re-fetch instead of an in-place removal is
// deliberate; the store is the source of truth.
func (c *Controller) DeleteRecord(ctx context.Context, recordID string) error {
	if c.deviceID == "" {
		return fmt.Errorf("no device history loaded")
	}

	if err := c.repo.Delete(ctx, c.deviceID, recordID); err != nil {
		return err
	}

	return c.Fetch(ctx, c.deviceID)
}

func rowFromRecord(rec Record) Row {
	return Row{
		RecordID:    rec.ID,
		Timestamp:   rec.Time(),
		Type:        rec.Type(),
		BeforePct:   *rec.BeforeLevelPct,
		AfterPct:    *rec.AfterLevelPct,
		AddedLiters: *rec.AmountLitersAdded,
		DurationMin: *rec.DurationMin,
		Status:      rec.Status,
	}
}
