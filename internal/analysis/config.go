package analysis

import (
	"math"

	"github.com/pkg/errors"
)

// DefaultConfidenceThreshold is the minimum detector confidence for a person to be counted.
const DefaultConfidenceThreshold = 0.25

// GridSize is a grid shape.
type GridSize struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// AllowedGridSizes lists the grid shapes that may be configured.
var AllowedGridSizes = []GridSize{{2, 2}, {3, 3}, {4, 4}}

// Config holds every tunable of a per-frame analysis.
type Config struct {
	Rows                int         `json:"grid_rows"`
	Cols                int         `json:"grid_cols"`
	ConfidenceThreshold float64     `json:"confidence_threshold"`
	Score               ScoreConfig `json:"score"`
	Risk                RiskTable   `json:"-"`
}

// DefaultConfig returns a 3x3 grid, confidence 0.25, the default score
// parameters and the default risk table.
func DefaultConfig() Config {
	return Config{
		Rows:                3,
		Cols:                3,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		Score:               DefaultScoreConfig(),
		Risk:                DefaultRiskTable(),
	}
}

// Validate checks the grid shape against AllowedGridSizes, the confidence
// threshold against [0.1,0.9], the score parameters and the risk table.
func (c Config) Validate() error {
	if c.Rows < 1 || c.Cols < 1 {
		return errors.Wrapf(ErrInvalidDimension, "grid %dx%d", c.Rows, c.Cols)
	}
	allowed := false
	for _, g := range AllowedGridSizes {
		if g.Rows == c.Rows && g.Cols == c.Cols {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Wrapf(ErrInvalidInput, "grid %dx%d is not one of %v", c.Rows, c.Cols, AllowedGridSizes)
	}
	if math.IsNaN(c.ConfidenceThreshold) || c.ConfidenceThreshold < 0.1 || c.ConfidenceThreshold > 0.9 {
		return errors.Wrapf(ErrInvalidInput, "confidence threshold %v outside [0.1,0.9]", c.ConfidenceThreshold)
	}
	if err := c.Score.Validate(); err != nil {
		return err
	}
	return c.Risk.Validate()
}
