package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"crowdwatch/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []model.Record {
	base := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	cdis := []float64{0.1, 0.4, 0.2, 0.9, 0.3}
	counts := []int{2, 6, 3, 14, 5}
	levels := []string{"SAFE", "CAUTION", "SAFE", "DANGER", "CAUTION"}

	records := make([]model.Record, len(cdis))
	for i := range cdis {
		records[i] = model.Record{
			ID:          int64(i + 1),
			SessionID:   "s1",
			Camera:      "gate",
			Timestamp:   base.Add(time.Duration(i) * time.Second),
			PersonCount: counts[i],
			CDI:         cdis[i],
			RiskLevel:   levels[i],
			Direction:   "top left",
		}
	}
	records[3].Camera = "hall"
	records[3].Direction = "bottom right, exit"
	return records
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6)

	assert.Equal(t, []string{"timestamp", "camera", "session_id", "person_count", "cdi", "risk_level", "direction"}, rows[0])
	assert.Equal(t, []string{"2024-06-01 09:30:00.000", "gate", "s1", "2", "0.1000", "SAFE", "top left"}, rows[1])
	// Fields containing commas are quoted and survive the round trip.
	assert.Equal(t, "bottom right, exit", rows[4][6])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, string(utf8BOM)+"timestamp,camera,session_id,person_count,cdi,risk_level,direction\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSVPropagatesWriteErrors(t *testing.T) {
	assert.Error(t, WriteCSV(failingWriter{}, sampleRecords()))
}

func TestExportFilename(t *testing.T) {
	ts := time.Date(2024, 6, 1, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "analysis_20240601_090507.csv", ExportFilename(ts))
}

func TestSummarize(t *testing.T) {
	records := sampleRecords()
	s := Summarize(records)

	assert.Equal(t, 5, s.Records)
	assert.InDelta(t, 6.0, s.MeanCount, 1e-12)
	assert.Equal(t, 14, s.MaxCount)
	assert.InDelta(t, 0.38, s.MeanCDI, 1e-12)
	assert.InDelta(t, 0.31145, s.StdDevCDI, 1e-4)
	assert.InDelta(t, 0.3, s.MedianCDI, 1e-12)
	assert.InDelta(t, 0.9, s.P95CDI, 1e-12)
	assert.InDelta(t, 0.9, s.MaxCDI, 1e-12)
	assert.Equal(t, records[3].Timestamp, s.PeakTime)
	assert.Equal(t, "hall", s.PeakCamera)
	assert.Equal(t, map[string]int{"SAFE": 2, "CAUTION": 2, "WARNING": 0, "DANGER": 1}, s.Risk)
}

func TestSummarizeSmallInputs(t *testing.T) {
	empty := Summarize(nil)
	assert.Zero(t, empty.Records)
	assert.Zero(t, empty.MeanCDI)
	assert.Len(t, empty.Risk, 4)

	one := Summarize(sampleRecords()[:1])
	assert.InDelta(t, 0.1, one.MeanCDI, 1e-12)
	assert.Zero(t, one.StdDevCDI)
	assert.InDelta(t, 0.1, one.P95CDI, 1e-12)
}
