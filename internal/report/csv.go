// Package report exports persisted analysis records and summarizes them.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"crowdwatch/internal/model"
)

// CSVHeader is the first row of every export.
var CSVHeader = []string{"timestamp", "camera", "session_id", "person_count", "cdi", "risk_level", "direction"}

const timestampLayout = "2006-01-02 15:04:05.000"

// utf8BOM lets spreadsheet applications detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportFilename returns the file name of an export created at t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("analysis_%s.csv", t.Format("20060102_150405"))
}

// WriteCSV writes records as UTF-8 CSV, prefixed with a byte order mark.
func WriteCSV(w io.Writer, records []model.Record) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.Timestamp.Format(timestampLayout),
			rec.Camera,
			rec.SessionID,
			strconv.Itoa(rec.PersonCount),
			strconv.FormatFloat(rec.CDI, 'f', 4, 64),
			rec.RiskLevel,
			rec.Direction,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", rec.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
