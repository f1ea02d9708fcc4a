package dto

import (
	"time"

	"crowdwatch/internal/analysis"
)

// Message types pushed to viewers.
const (
	MessageTypeFrame    = "frame"
	MessageTypeAnalysis = "analysis"
)

// AnalysisMessage carries the analysis of one frame to the dashboard.
type AnalysisMessage struct {
	Type        string              `json:"type"`
	Camera      string              `json:"camera"`
	SessionID   string              `json:"session_id"`
	Timestamp   time.Time           `json:"timestamp"`
	FrameWidth  int                 `json:"frame_width"`
	FrameHeight int                 `json:"frame_height"`
	PersonCount int                 `json:"person_count"`
	GridRows    int                 `json:"grid_rows"`
	GridCols    int                 `json:"grid_cols"`
	Occupancy   []int               `json:"occupancy"`
	Cells       []analysis.CellStat `json:"cells"`
	CDI         float64             `json:"cdi"`
	Risk        analysis.Risk       `json:"risk"`
	Direction   analysis.Direction  `json:"direction"`
}

// NewAnalysisMessage builds the viewer message for a frame result.
func NewAnalysisMessage(camera, sessionID string, ts time.Time, res *analysis.Result) AnalysisMessage {
	return AnalysisMessage{
		Type:        MessageTypeAnalysis,
		Camera:      camera,
		SessionID:   sessionID,
		Timestamp:   ts,
		FrameWidth:  res.Frame.Width,
		FrameHeight: res.Frame.Height,
		PersonCount: res.TotalCount,
		GridRows:    res.Rows,
		GridCols:    res.Cols,
		Occupancy:   res.Occupancy,
		Cells:       res.CellStats(),
		CDI:         res.CDI,
		Risk:        res.Risk,
		Direction:   res.Direction,
	}
}
