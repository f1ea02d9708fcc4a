package analysis

import (
	"time"

	"github.com/pkg/errors"
)

// Result is the full analysis of one frame.
type Result struct {
	Frame      Frame     `json:"frame"`
	Rows       int       `json:"grid_rows"`
	Cols       int       `json:"grid_cols"`
	Cells      []Cell    `json:"cells"`
	Occupancy  []int     `json:"occupancy"`
	TotalCount int       `json:"person_count"`
	CDI        float64   `json:"cdi"`
	Risk       Risk      `json:"risk"`
	Direction  Direction `json:"direction"`
}

// CellStat is the presentation view of one grid cell.
type CellStat struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// Record is the per-frame summary handed to persistence.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
	CDI       float64   `json:"cdi"`
	RiskLevel Level     `json:"risk_level"`
}

// Analyze runs the full pipeline over one frame: partition, count, score,
// classify and advise. Detections must already be restricted to people.
func Analyze(frame Frame, detections []Detection, cfg Config) (*Result, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	for i, d := range detections {
		if err := d.Validate(); err != nil {
			return nil, errors.Wrapf(err, "detection %d", i)
		}
	}

	cells, err := Partition(frame.Width, frame.Height, cfg.Rows, cfg.Cols)
	if err != nil {
		return nil, err
	}
	occupancy, err := Count(detections, cells)
	if err != nil {
		return nil, err
	}
	cdi, err := Score(len(detections), frame.Area(), occupancy, cfg.Score)
	if err != nil {
		return nil, err
	}
	risk, err := cfg.Risk.Classify(cdi)
	if err != nil {
		return nil, err
	}
	direction, err := Advise(occupancy, cfg.Rows, cfg.Cols)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frame:      frame,
		Rows:       cfg.Rows,
		Cols:       cfg.Cols,
		Cells:      cells,
		Occupancy:  occupancy,
		TotalCount: len(detections),
		CDI:        cdi,
		Risk:       risk,
		Direction:  direction,
	}, nil
}

// CellStats returns every cell with its display name and share of the total count.
func (r *Result) CellStats() []CellStat {
	stats := make([]CellStat, len(r.Occupancy))
	for i, n := range r.Occupancy {
		share := 0.0
		if r.TotalCount > 0 {
			share = float64(n) / float64(r.TotalCount)
		}
		stats[i] = CellStat{
			Index: i,
			Name:  PositionName(i, r.Rows, r.Cols),
			Count: n,
			Share: share,
		}
	}
	return stats
}

// Record returns the persisted summary of the result at ts.
func (r *Result) Record(ts time.Time) Record {
	return Record{
		Timestamp: ts,
		Count:     r.TotalCount,
		CDI:       r.CDI,
		RiskLevel: r.Risk.Level,
	}
}
