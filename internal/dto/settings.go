package dto

import "crowdwatch/internal/analysis"

// Settings is the JSON form of the runtime analysis settings.
type Settings struct {
	GridRows             int       `json:"grid_rows"`
	GridCols             int       `json:"grid_cols"`
	ConfidenceThreshold  float64   `json:"confidence_threshold"`
	HighDensityThreshold int       `json:"high_density_threshold"`
	HighDensityWeight    float64   `json:"high_density_weight"`
	RiskThresholds       []float64 `json:"risk_thresholds"`
}

// SettingsFromConfig flattens an analysis configuration.
func SettingsFromConfig(cfg analysis.Config) Settings {
	return Settings{
		GridRows:             cfg.Rows,
		GridCols:             cfg.Cols,
		ConfidenceThreshold:  cfg.ConfidenceThreshold,
		HighDensityThreshold: cfg.Score.HighDensityThreshold,
		HighDensityWeight:    cfg.Score.HighDensityWeight,
		RiskThresholds:       cfg.Risk.Thresholds(),
	}
}

// Config converts the settings back into a validated analysis configuration.
// Risk band labels and colors come from base.
func (s Settings) Config(base analysis.RiskTable) (analysis.Config, error) {
	table, err := base.WithThresholds(s.RiskThresholds...)
	if err != nil {
		return analysis.Config{}, err
	}
	cfg := analysis.Config{
		Rows:                s.GridRows,
		Cols:                s.GridCols,
		ConfidenceThreshold: s.ConfidenceThreshold,
		Score: analysis.ScoreConfig{
			HighDensityThreshold: s.HighDensityThreshold,
			HighDensityWeight:    s.HighDensityWeight,
		},
		Risk: table,
	}
	if err := cfg.Validate(); err != nil {
		return analysis.Config{}, err
	}
	return cfg, nil
}
