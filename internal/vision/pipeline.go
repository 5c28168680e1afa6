package vision

import (
	"github.com/banshee-data/collision.report/internal/config"
)

// Pipeline chains frame generation and collision analysis into the single
// step a monitoring loop runs per tick.
type Pipeline struct {
	Generator *Generator
	Analyzer  *Analyzer
}

// NewPipeline assembles a pipeline from its two stages.
func NewPipeline(gen *Generator, an *Analyzer) *Pipeline {
	return &Pipeline{Generator: gen, Analyzer: an}
}

// PipelineFromTuning builds a production pipeline from a loaded tuning
// config.
func PipelineFromTuning(cfg *config.TuningConfig) *Pipeline {
	return NewPipeline(
		NewGenerator(GeneratorConfigFromTuning(cfg)),
		NewAnalyzer(AnalyzerConfigFromTuning(cfg)),
	)
}

// Detect produces and analyzes one frame for the stream. The synthetic
// pipeline cannot fail; the error return is part of the contract so callers
// are ready for backends that can.
func (p *Pipeline) Detect(streamURL string) (DetectionResult, error) {
	return p.Analyzer.Analyze(p.Generator.Generate(streamURL)), nil
}
