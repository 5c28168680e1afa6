package vision

import (
	"fmt"

	"github.com/banshee-data/collision.report/internal/config"
)

// GeneratorConfig controls synthetic frame generation.
type GeneratorConfig struct {
	FrameWidth            float64 // frame width in pixels
	FrameHeight           float64 // frame height in pixels
	MinVehicles           int     // lower bound of vehicles per frame (inclusive)
	MaxVehicles           int     // upper bound of vehicles per frame (inclusive)
	PedestrianProbability float64 // chance of one pedestrian appearing
}

// DefaultGeneratorConfig returns a GeneratorConfig loaded from the canonical
// tuning defaults file (config/tuning.defaults.json). Panics if the file
// cannot be found — intended for tests and binaries that have already
// validated config availability.
func DefaultGeneratorConfig() *GeneratorConfig {
	return GeneratorConfigFromTuning(config.MustLoadDefaultConfig())
}

// GeneratorConfigFromTuning builds a GeneratorConfig from a loaded
// TuningConfig. Use this in production code where the TuningConfig is
// already loaded.
func GeneratorConfigFromTuning(cfg *config.TuningConfig) *GeneratorConfig {
	return &GeneratorConfig{
		FrameWidth:            cfg.GetFrameWidth(),
		FrameHeight:           cfg.GetFrameHeight(),
		MinVehicles:           cfg.GetMinVehicles(),
		MaxVehicles:           cfg.GetMaxVehicles(),
		PedestrianProbability: cfg.GetPedestrianProbability(),
	}
}

// Validate checks if the configuration is valid.
func (c *GeneratorConfig) Validate() error {
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return fmt.Errorf("frame dimensions must be positive, got %gx%g", c.FrameWidth, c.FrameHeight)
	}
	if c.MinVehicles < 0 {
		return fmt.Errorf("MinVehicles must be non-negative, got %d", c.MinVehicles)
	}
	if c.MaxVehicles < c.MinVehicles {
		return fmt.Errorf("MaxVehicles (%d) must be >= MinVehicles (%d)", c.MaxVehicles, c.MinVehicles)
	}
	if c.PedestrianProbability < 0 || c.PedestrianProbability > 1 {
		return fmt.Errorf("PedestrianProbability must be in [0, 1], got %f", c.PedestrianProbability)
	}
	return nil
}

// AnalyzerConfig controls collision scoring thresholds.
type AnalyzerConfig struct {
	GatePx           float64 // max center distance for a pair to be considered
	FalloffPx        float64 // distance at which the proximity factor reaches zero
	Boost            float64 // multiplier applied to the combined score
	VarianceMax      float64 // upper bound of the uniform jitter term
	MinConfidence    float64 // candidates at or below this are discarded
	SeverityCritical float64 // confidence above this is critical
	SeverityHigh     float64 // confidence above this is high
	SeverityMedium   float64 // confidence above this is medium
}

// DefaultAnalyzerConfig returns an AnalyzerConfig loaded from the canonical
// tuning defaults file. Panics if the file cannot be found.
func DefaultAnalyzerConfig() *AnalyzerConfig {
	return AnalyzerConfigFromTuning(config.MustLoadDefaultConfig())
}

// AnalyzerConfigFromTuning builds an AnalyzerConfig from a loaded TuningConfig.
func AnalyzerConfigFromTuning(cfg *config.TuningConfig) *AnalyzerConfig {
	return &AnalyzerConfig{
		GatePx:           cfg.GetCollisionGatePx(),
		FalloffPx:        cfg.GetCollisionFalloffPx(),
		Boost:            cfg.GetCollisionBoost(),
		VarianceMax:      cfg.GetCollisionVarianceMax(),
		MinConfidence:    cfg.GetCandidateMinConfidence(),
		SeverityCritical: cfg.GetSeverityCritical(),
		SeverityHigh:     cfg.GetSeverityHigh(),
		SeverityMedium:   cfg.GetSeverityMedium(),
	}
}

// Validate checks if the configuration is valid.
func (c *AnalyzerConfig) Validate() error {
	if c.GatePx <= 0 {
		return fmt.Errorf("GatePx must be positive, got %f", c.GatePx)
	}
	if c.FalloffPx <= 0 {
		return fmt.Errorf("FalloffPx must be positive, got %f", c.FalloffPx)
	}
	if c.Boost <= 0 {
		return fmt.Errorf("Boost must be positive, got %f", c.Boost)
	}
	if c.VarianceMax < 0 {
		return fmt.Errorf("VarianceMax must be non-negative, got %f", c.VarianceMax)
	}
	if c.MinConfidence < 0 || c.MinConfidence >= 1 {
		return fmt.Errorf("MinConfidence must be in [0, 1), got %f", c.MinConfidence)
	}
	if c.SeverityCritical <= c.SeverityHigh || c.SeverityHigh <= c.SeverityMedium {
		return fmt.Errorf("severity thresholds must be strictly decreasing, got %f/%f/%f",
			c.SeverityCritical, c.SeverityHigh, c.SeverityMedium)
	}
	return nil
}
