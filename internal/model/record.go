package model

import "time"

// Record is one analyzed frame as persisted.
type Record struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Camera      string    `json:"camera"`
	Timestamp   time.Time `json:"timestamp"`
	PersonCount int       `json:"person_count"`
	CDI         float64   `json:"cdi"`
	RiskLevel   string    `json:"risk_level"`
	SafestCell  *int      `json:"safest_cell"`
	Direction   string    `json:"direction"`
	GridRows    int       `json:"grid_rows"`
	GridCols    int       `json:"grid_cols"`
	Occupancy   []int     `json:"occupancy"`
}

// Session summarizes the records of one camera stream.
type Session struct {
	ID      string    `json:"id"`
	Camera  string    `json:"camera"`
	Started time.Time `json:"started"`
	Ended   time.Time `json:"ended"`
	Records int       `json:"records"`
	MaxCDI  float64   `json:"max_cdi"`
}
