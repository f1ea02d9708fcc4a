package service

import (
	"sync"

	"crowdwatch/internal/analysis"
)

// Settings holds the analysis configuration that workers apply to each frame.
// It can be replaced at runtime.
type Settings struct {
	mu  sync.RWMutex
	cfg analysis.Config
}

// NewSettings creates a store with an already validated configuration.
func NewSettings(cfg analysis.Config) *Settings {
	return &Settings{cfg: cloneConfig(cfg)}
}

// Get returns a snapshot of the current configuration.
func (s *Settings) Get() analysis.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneConfig(s.cfg)
}

// Update validates cfg and swaps it in. The previous configuration stays
// active when validation fails.
func (s *Settings) Update(cfg analysis.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cloneConfig(cfg)
	s.mu.Unlock()
	return nil
}

func cloneConfig(cfg analysis.Config) analysis.Config {
	cfg.Risk = append(analysis.RiskTable(nil), cfg.Risk...)
	return cfg
}
