package history

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestExportCSVContainsOnlyVisibleRows(t *testing.T) {
	is := is.New(t)

	records := []Record{
		record("auto-1", 0, StatusCompleted, "Auto refill"),
		record("manual-1", 1, StatusCompleted, "Manual refill"),
		record("auto-2", 2, StatusFailed, "Auto refill"),
		record("manual-2", 3, StatusFailed, "Manual refill"),
		record("auto-3", 4, StatusCompleted, "Auto refill"),
	}
	c, _ := loadedController(t, records)
	c.SetFilter(Filter{Type: TypeAutomatic})

	var buf bytes.Buffer
	is.NoErr(c.ExportCSV(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	is.NoErr(err)
	is.Equal(len(rows), 4) // header plus the three automatic records
	is.Equal(rows[0], exportHeader)

	// numeric columns are bare numbers, no display suffixes
	is.Equal(rows[1][3], "20")
	is.Equal(rows[1][5], "500.0")
	is.True(!strings.Contains(rows[1][3], "%"))
	is.True(!strings.Contains(rows[1][5], "L"))
}

func TestExportCSVEmptyLog(t *testing.T) {
	is := is.New(t)

	c, _ := loadedController(t, nil)

	var buf bytes.Buffer
	is.NoErr(c.ExportCSV(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	is.NoErr(err)
	is.Equal(len(rows), 1) // header only
}

func TestExportPDFProducesDocument(t *testing.T) {
	is := is.New(t)

	var records []Record
	for i := 0; i < 30; i++ {
		records = append(records, record(fmt.Sprintf("rec-%02d", i), i, StatusCompleted, "Auto"))
	}
	c, _ := loadedController(t, records)

	var buf bytes.Buffer
	is.NoErr(c.ExportPDF(&buf))

	is.True(buf.Len() > 0)
	is.True(bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
