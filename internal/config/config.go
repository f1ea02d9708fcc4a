package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"crowdwatch/internal/analysis"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        int
	Password    string
	CamerasPort int
	CameraNames map[string]string // IP -> camera name for UDP cameras
	ModelPath   string
	ConfigPath  string
	DBPath      string
	StaticDir   string

	DemoVideo  string // optional video file replayed as a camera
	DemoCamera string
	DemoLoop   bool

	ProcessingInterval  int // process every Nth frame per camera (1 = every frame)
	ProcessingWorkers   int // detector workers, one network each
	RecordBufferLimit   int // buffered records that trigger an early flush
	RecordFlushInterval int // seconds between record flushes
	LogDirectory        string

	GridRows             int
	GridCols             int
	ConfidenceThreshold  float64
	HighDensityThreshold int
	HighDensityWeight    float64
	RiskThresholds       []float64
}

// Load reads the configuration from the environment. Values from a .env file in
// the working directory, or the files listed in envFiles, are loaded first and
// never override variables that are already set.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg := &Config{
		Port:                 getEnvAsInt("PORT", 8080),
		Password:             getEnv("PASSWORD", "crowdwatch"),
		CamerasPort:          getEnvAsInt("CAMERAS_PORT", 8081),
		CameraNames:          getEnvAsMap("CAMERA_NAMES"),
		ModelPath:            getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ConfigPath:           getEnv("CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		DBPath:               getEnv("DB_PATH", filepath.Join(".", "data", "crowdwatch.db")),
		StaticDir:            getEnv("STATIC_DIR", "static"),
		DemoVideo:            getEnv("DEMO_VIDEO", ""),
		DemoCamera:           getEnv("DEMO_CAMERA", "demo"),
		DemoLoop:             getEnvAsBool("DEMO_LOOP", true),
		ProcessingInterval:   getEnvAsInt("PROCESSING_INTERVAL", 3),
		ProcessingWorkers:    getEnvAsInt("PROCESSING_WORKERS", 3),
		RecordBufferLimit:    getEnvAsInt("RECORD_BUFFER_LIMIT", 50),
		RecordFlushInterval:  getEnvAsInt("RECORD_FLUSH_INTERVAL", 10),
		LogDirectory:         getEnv("LOG_DIR", filepath.Join(".", "logs")),
		GridRows:             getEnvAsInt("GRID_ROWS", 3),
		GridCols:             getEnvAsInt("GRID_COLS", 3),
		ConfidenceThreshold:  getEnvAsFloat("CONFIDENCE_THRESHOLD", analysis.DefaultConfidenceThreshold),
		HighDensityThreshold: getEnvAsInt("HIGH_DENSITY_THRESHOLD", analysis.DefaultHighDensityThreshold),
		HighDensityWeight:    getEnvAsFloat("HIGH_DENSITY_WEIGHT", analysis.DefaultHighDensityWeight),
		RiskThresholds:       getEnvAsFloats("RISK_THRESHOLDS", analysis.DefaultRiskTable().Thresholds()),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the process settings and the analysis configuration they build.
func (c *Config) Validate() error {
	if c.ProcessingInterval < 1 {
		return fmt.Errorf("PROCESSING_INTERVAL must be at least 1, got %d", c.ProcessingInterval)
	}
	if c.ProcessingWorkers < 1 {
		return fmt.Errorf("PROCESSING_WORKERS must be at least 1, got %d", c.ProcessingWorkers)
	}
	if c.RecordBufferLimit < 1 {
		return fmt.Errorf("RECORD_BUFFER_LIMIT must be at least 1, got %d", c.RecordBufferLimit)
	}
	if c.RecordFlushInterval < 1 {
		return fmt.Errorf("RECORD_FLUSH_INTERVAL must be at least 1, got %d", c.RecordFlushInterval)
	}
	if _, err := c.Analysis(); err != nil {
		return fmt.Errorf("invalid analysis settings: %w", err)
	}
	return nil
}

// Analysis builds the per-frame analysis configuration.
func (c *Config) Analysis() (analysis.Config, error) {
	table, err := analysis.DefaultRiskTable().WithThresholds(c.RiskThresholds...)
	if err != nil {
		return analysis.Config{}, err
	}

	cfg := analysis.Config{
		Rows:                c.GridRows,
		Cols:                c.GridCols,
		ConfidenceThreshold: c.ConfidenceThreshold,
		Score: analysis.ScoreConfig{
			HighDensityThreshold: c.HighDensityThreshold,
			HighDensityWeight:    c.HighDensityWeight,
		},
		Risk: table,
	}
	if err := cfg.Validate(); err != nil {
		return analysis.Config{}, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsFloats parses a comma separated list such as "0.3,0.6,0.8,1.0".
func getEnvAsFloats(key string, defaultValue []float64) []float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return defaultValue
		}
		values = append(values, f)
	}
	return values
}

// getEnvAsMap parses "key=value,key=value" pairs. Malformed pairs are skipped.
func getEnvAsMap(key string) map[string]string {
	result := make(map[string]string)
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || v == "" {
			continue
		}
		result[k] = v
	}
	return result
}
