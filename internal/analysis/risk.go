package analysis

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Level is an ordered crowd risk level.
type Level int

const (
	Safe Level = iota
	Caution
	Warning
	Danger
)

var levelNames = [...]string{"SAFE", "CAUTION", "WARNING", "DANGER"}

// String returns the upper-case level name.
func (l Level) String() string {
	if l < Safe || l > Danger {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// MarshalText encodes the level as its name.
func (l Level) MarshalText() ([]byte, error) {
	if l < Safe || l > Danger {
		return nil, errors.Wrapf(ErrInvalidInput, "unknown risk level %d", int(l))
	}
	return []byte(levelNames[l]), nil
}

// UnmarshalText parses a level name, case-insensitively.
func (l *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// ParseLevel parses a level name such as "caution".
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return Safe, errors.Wrapf(ErrInvalidInput, "unknown risk level %q", s)
}

// RiskBand is one row of the risk table. A CDI maps to the first band whose
// UpperBound it is strictly below; the last band also takes its UpperBound.
type RiskBand struct {
	UpperBound float64
	Level      Level
	Label      string
	Hex        string
	Color      color.RGBA
}

// RiskTable is an ordered list of bands partitioning [0,1].
type RiskTable []RiskBand

// DefaultRiskTable returns SAFE < 0.3, CAUTION < 0.6, WARNING < 0.8, DANGER <= 1.0.
func DefaultRiskTable() RiskTable {
	return RiskTable{
		{UpperBound: 0.3, Level: Safe, Label: "Safe", Hex: "#4CAF50", Color: color.RGBA{R: 0, G: 255, B: 0, A: 255}},
		{UpperBound: 0.6, Level: Caution, Label: "Caution", Hex: "#FFC107", Color: color.RGBA{R: 255, G: 255, B: 0, A: 255}},
		{UpperBound: 0.8, Level: Warning, Label: "Warning", Hex: "#FF9800", Color: color.RGBA{R: 255, G: 165, B: 0, A: 255}},
		{UpperBound: 1.0, Level: Danger, Label: "Danger", Hex: "#F44336", Color: color.RGBA{R: 255, G: 0, B: 0, A: 255}},
	}
}

// WithThresholds returns a copy of the table with new upper bounds. It takes
// one bound per band; the last must be 1.0.
func (t RiskTable) WithThresholds(bounds ...float64) (RiskTable, error) {
	if len(bounds) != len(t) {
		return nil, errors.Wrapf(ErrInvalidInput, "got %d thresholds for %d risk bands", len(bounds), len(t))
	}
	out := make(RiskTable, len(t))
	copy(out, t)
	for i := range out {
		out[i].UpperBound = bounds[i]
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Thresholds returns the upper bound of every band, in order.
func (t RiskTable) Thresholds() []float64 {
	bounds := make([]float64, len(t))
	for i, b := range t {
		bounds[i] = b.UpperBound
	}
	return bounds
}

// Validate checks that bounds are strictly increasing inside (0,1], that the
// last bound is exactly 1.0 and that levels are ordered.
func (t RiskTable) Validate() error {
	if len(t) == 0 {
		return errors.Wrap(ErrInvalidInput, "empty risk table")
	}
	prev := 0.0
	for i, b := range t {
		if math.IsNaN(b.UpperBound) || b.UpperBound <= prev || b.UpperBound > 1 {
			return errors.Wrapf(ErrInvalidInput, "risk band %d upper bound %v must be in (%v,1]", i, b.UpperBound, prev)
		}
		if i > 0 && b.Level <= t[i-1].Level {
			return errors.Wrapf(ErrInvalidInput, "risk band %d level %s is not above %s", i, b.Level, t[i-1].Level)
		}
		prev = b.UpperBound
	}
	if last := t[len(t)-1].UpperBound; last != 1 {
		return errors.Wrapf(ErrInvalidInput, "top risk band ends at %v, want 1.0", last)
	}
	return nil
}

// Risk is the classification of one CDI value.
type Risk struct {
	Level      Level   `json:"level"`
	Label      string  `json:"label"`
	Color      string  `json:"color"`
	CDI        float64 `json:"cdi"`
	CDIPercent float64 `json:"cdi_percent"`
}

// Classify maps a CDI to its risk band. Every value in [0,1] matches exactly
// one band; boundary values belong to the higher band.
func (t RiskTable) Classify(cdi float64) (Risk, error) {
	if math.IsNaN(cdi) || cdi < 0 || cdi > 1 {
		return Risk{}, errors.Wrapf(ErrInvalidInput, "cdi %v outside [0,1]", cdi)
	}
	if len(t) == 0 {
		return Risk{}, errors.Wrap(ErrInvalidInput, "empty risk table")
	}

	band := t[len(t)-1]
	for _, b := range t[:len(t)-1] {
		if cdi < b.UpperBound {
			band = b
			break
		}
	}
	return Risk{
		Level:      band.Level,
		Label:      band.Label,
		Color:      band.Hex,
		CDI:        cdi,
		CDIPercent: cdi * 100,
	}, nil
}
