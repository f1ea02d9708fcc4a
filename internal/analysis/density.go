package analysis

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// DefaultHighDensityThreshold is the per-cell count at which a cell becomes a high-density zone.
	DefaultHighDensityThreshold = 3
	// DefaultHighDensityWeight is the CDI contribution of each high-density zone.
	DefaultHighDensityWeight = 0.3

	// densityScale expresses people per pixel as people per 10,000 px².
	densityScale = 10000.0
)

// ScoreConfig tunes the sensitivity of the crowd density index.
type ScoreConfig struct {
	HighDensityThreshold int     `json:"high_density_threshold"`
	HighDensityWeight    float64 `json:"high_density_weight"`
}

// DefaultScoreConfig returns threshold 3 and weight 0.3.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		HighDensityThreshold: DefaultHighDensityThreshold,
		HighDensityWeight:    DefaultHighDensityWeight,
	}
}

// Validate requires a threshold of at least one person and a finite, non-negative weight.
func (c ScoreConfig) Validate() error {
	if c.HighDensityThreshold < 1 {
		return errors.Wrapf(ErrInvalidInput, "high density threshold %d < 1", c.HighDensityThreshold)
	}
	if !(c.HighDensityWeight >= 0) || math.IsInf(c.HighDensityWeight, 0) {
		return errors.Wrapf(ErrInvalidInput, "high density weight %v is not a finite value >= 0", c.HighDensityWeight)
	}
	return nil
}

// Density returns people per 10,000 px², or 0 when frameArea is not positive.
func Density(totalCount, frameArea int) float64 {
	if frameArea <= 0 {
		return 0
	}
	return float64(totalCount) / float64(frameArea) * densityScale
}

// HighDensityZones counts the cells whose occupancy is at least threshold.
func HighDensityZones(occupancy []int, threshold int) int {
	zones := 0
	for _, n := range occupancy {
		if n >= threshold {
			zones++
		}
	}
	return zones
}

// Score computes the crowd density index of a frame.
//
// The raw score is Density(totalCount, frameArea) plus one HighDensityWeight
// per high-density zone, clamped to [0,1]. There is no further rescaling;
// sensitivity is changed through cfg, not by scaling the result.
//
// Arguments:
//   - totalCount: number of people detected in the frame.
//   - frameArea: frame area in pixels. Zero or less yields density 0.
//   - occupancy: per-cell counts.
//   - cfg: high-density threshold and weight.
//
// Returns:
//   - float64: the CDI in [0,1].
//   - error: ErrInvalidInput for negative counts, an invalid cfg or a NaN raw score.
//
// @example
// cdi, _ := Score(10, 1000*1000, []int{5, 0, 0, 0, 0, 0, 0, 0, 0}, DefaultScoreConfig())
// // density 0.1 + one zone * 0.3 = 0.4
func Score(totalCount, frameArea int, occupancy []int, cfg ScoreConfig) (float64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if totalCount < 0 {
		return 0, errors.Wrapf(ErrInvalidInput, "total count %d < 0", totalCount)
	}
	for i, n := range occupancy {
		if n < 0 {
			return 0, errors.Wrapf(ErrInvalidInput, "cell %d count %d < 0", i, n)
		}
	}

	zones := HighDensityZones(occupancy, cfg.HighDensityThreshold)
	raw := Density(totalCount, frameArea) + float64(zones)*cfg.HighDensityWeight
	if math.IsNaN(raw) {
		return 0, errors.Wrapf(ErrInvalidInput, "raw density score is NaN (%d zones, weight %v)", zones, cfg.HighDensityWeight)
	}
	return clamp(raw, 0, 1), nil
}
