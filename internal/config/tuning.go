package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for detection and analysis
// tuning parameters. Fields are pointers so a partial JSON file overrides
// only what it names; the Get* methods supply defaults for the rest.
type TuningConfig struct {
	// Scheduler params
	ScanInterval *string `json:"scan_interval,omitempty"` // duration string like "5s"

	// Detection generator params
	MinVehicles           *int     `json:"min_vehicles,omitempty"`
	MaxVehicles           *int     `json:"max_vehicles,omitempty"`
	PedestrianProbability *float64 `json:"pedestrian_probability,omitempty"`
	FrameWidth            *float64 `json:"frame_width,omitempty"`
	FrameHeight           *float64 `json:"frame_height,omitempty"`

	// Collision analyzer params
	CollisionGatePx        *float64 `json:"collision_gate_px,omitempty"`
	CollisionFalloffPx     *float64 `json:"collision_falloff_px,omitempty"`
	CollisionBoost         *float64 `json:"collision_boost,omitempty"`
	CollisionVarianceMax   *float64 `json:"collision_variance_max,omitempty"`
	CandidateMinConfidence *float64 `json:"candidate_min_confidence,omitempty"`

	// Severity tier boundaries (strict greater-than comparisons)
	SeverityCritical *float64 `json:"severity_critical,omitempty"`
	SeverityHigh     *float64 `json:"severity_high,omitempty"`
	SeverityMedium   *float64 `json:"severity_medium,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.ScanInterval != nil && *c.ScanInterval != "" {
		if _, err := time.ParseDuration(*c.ScanInterval); err != nil {
			return fmt.Errorf("invalid scan_interval '%s': %w", *c.ScanInterval, err)
		}
	}

	if c.MinVehicles != nil && *c.MinVehicles < 0 {
		return fmt.Errorf("min_vehicles must be non-negative, got %d", *c.MinVehicles)
	}
	if c.MinVehicles != nil && c.MaxVehicles != nil && *c.MaxVehicles < *c.MinVehicles {
		return fmt.Errorf("max_vehicles (%d) must be >= min_vehicles (%d)", *c.MaxVehicles, *c.MinVehicles)
	}

	if c.PedestrianProbability != nil {
		if *c.PedestrianProbability < 0 || *c.PedestrianProbability > 1 {
			return fmt.Errorf("pedestrian_probability must be between 0 and 1, got %f", *c.PedestrianProbability)
		}
	}

	if c.CollisionGatePx != nil && *c.CollisionGatePx <= 0 {
		return fmt.Errorf("collision_gate_px must be positive, got %f", *c.CollisionGatePx)
	}
	if c.CollisionFalloffPx != nil && *c.CollisionFalloffPx <= 0 {
		return fmt.Errorf("collision_falloff_px must be positive, got %f", *c.CollisionFalloffPx)
	}

	if c.CandidateMinConfidence != nil {
		if *c.CandidateMinConfidence < 0 || *c.CandidateMinConfidence > 1 {
			return fmt.Errorf("candidate_min_confidence must be between 0 and 1, got %f", *c.CandidateMinConfidence)
		}
	}

	// Severity boundaries must stay strictly ordered or tiers vanish.
	crit, high, med := c.GetSeverityCritical(), c.GetSeverityHigh(), c.GetSeverityMedium()
	if !(crit > high && high > med) {
		return fmt.Errorf("severity boundaries must satisfy critical > high > medium, got %f/%f/%f", crit, high, med)
	}

	return nil
}

// GetScanInterval parses and returns the ScanInterval as a time.Duration.
func (c *TuningConfig) GetScanInterval() time.Duration {
	if c.ScanInterval == nil || *c.ScanInterval == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ScanInterval)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}

// GetMinVehicles returns the min_vehicles value or the default.
func (c *TuningConfig) GetMinVehicles() int {
	if c.MinVehicles == nil {
		return 2
	}
	return *c.MinVehicles
}

// GetMaxVehicles returns the max_vehicles value or the default.
func (c *TuningConfig) GetMaxVehicles() int {
	if c.MaxVehicles == nil {
		return 6
	}
	return *c.MaxVehicles
}

// GetPedestrianProbability returns the pedestrian_probability value or the default.
func (c *TuningConfig) GetPedestrianProbability() float64 {
	if c.PedestrianProbability == nil {
		return 0.3
	}
	return *c.PedestrianProbability
}

// GetFrameWidth returns the frame_width value or the default.
func (c *TuningConfig) GetFrameWidth() float64 {
	if c.FrameWidth == nil {
		return 1920
	}
	return *c.FrameWidth
}

// GetFrameHeight returns the frame_height value or the default.
func (c *TuningConfig) GetFrameHeight() float64 {
	if c.FrameHeight == nil {
		return 1080
	}
	return *c.FrameHeight
}

// GetCollisionGatePx returns the collision_gate_px value or the default.
// Vehicle pairs further apart than this are never collision candidates.
func (c *TuningConfig) GetCollisionGatePx() float64 {
	if c.CollisionGatePx == nil {
		return 100
	}
	return *c.CollisionGatePx
}

// GetCollisionFalloffPx returns the collision_falloff_px value or the default.
// Collision confidence decays linearly to zero at this separation.
func (c *TuningConfig) GetCollisionFalloffPx() float64 {
	if c.CollisionFalloffPx == nil {
		return 200
	}
	return *c.CollisionFalloffPx
}

// GetCollisionBoost returns the collision_boost value or the default.
func (c *TuningConfig) GetCollisionBoost() float64 {
	if c.CollisionBoost == nil {
		return 1.2
	}
	return *c.CollisionBoost
}

// GetCollisionVarianceMax returns the collision_variance_max value or the default.
func (c *TuningConfig) GetCollisionVarianceMax() float64 {
	if c.CollisionVarianceMax == nil {
		return 0.3
	}
	return *c.CollisionVarianceMax
}

// GetCandidateMinConfidence returns the candidate_min_confidence value or the default.
func (c *TuningConfig) GetCandidateMinConfidence() float64 {
	if c.CandidateMinConfidence == nil {
		return 0.7
	}
	return *c.CandidateMinConfidence
}

// GetSeverityCritical returns the severity_critical boundary or the default.
func (c *TuningConfig) GetSeverityCritical() float64 {
	if c.SeverityCritical == nil {
		return 0.85
	}
	return *c.SeverityCritical
}

// GetSeverityHigh returns the severity_high boundary or the default.
func (c *TuningConfig) GetSeverityHigh() float64 {
	if c.SeverityHigh == nil {
		return 0.75
	}
	return *c.SeverityHigh
}

// GetSeverityMedium returns the severity_medium boundary or the default.
func (c *TuningConfig) GetSeverityMedium() float64 {
	if c.SeverityMedium == nil {
		return 0.65
	}
	return *c.SeverityMedium
}
