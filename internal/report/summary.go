package report

import (
	"sort"
	"time"

	"crowdwatch/internal/analysis"
	"crowdwatch/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates a set of records.
type Summary struct {
	Records    int            `json:"records"`
	MeanCount  float64        `json:"mean_count"`
	MaxCount   int            `json:"max_count"`
	MeanCDI    float64        `json:"mean_cdi"`
	StdDevCDI  float64        `json:"stddev_cdi"`
	MedianCDI  float64        `json:"median_cdi"`
	P95CDI     float64        `json:"p95_cdi"`
	MaxCDI     float64        `json:"max_cdi"`
	PeakTime   time.Time      `json:"peak_time"`
	PeakCamera string         `json:"peak_camera"`
	Risk       map[string]int `json:"risk_distribution"`
}

// Summarize computes count and CDI statistics and the risk level distribution.
// Every level appears in the distribution, with zero when absent.
func Summarize(records []model.Record) Summary {
	s := Summary{
		Records: len(records),
		Risk:    make(map[string]int),
	}
	for lvl := analysis.Safe; lvl <= analysis.Danger; lvl++ {
		s.Risk[lvl.String()] = 0
	}
	if len(records) == 0 {
		return s
	}

	counts := make([]float64, len(records))
	cdis := make([]float64, len(records))
	for i, rec := range records {
		counts[i] = float64(rec.PersonCount)
		cdis[i] = rec.CDI
		s.Risk[rec.RiskLevel]++
	}

	s.MeanCount = stat.Mean(counts, nil)
	s.MaxCount = int(floats.Max(counts))

	peak := floats.MaxIdx(cdis)
	s.MaxCDI = cdis[peak]
	s.PeakTime = records[peak].Timestamp
	s.PeakCamera = records[peak].Camera

	if len(cdis) > 1 {
		s.MeanCDI, s.StdDevCDI = stat.MeanStdDev(cdis, nil)
	} else {
		s.MeanCDI = cdis[0]
	}

	sorted := make([]float64, len(cdis))
	copy(sorted, cdis)
	sort.Float64s(sorted)
	s.MedianCDI = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.P95CDI = stat.Quantile(0.95, stat.Empirical, sorted, nil)

	return s
}
