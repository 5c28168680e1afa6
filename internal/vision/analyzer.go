package vision

import (
	"math"
	"math/rand"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/collision.report/internal/framegeo"
	"github.com/banshee-data/collision.report/internal/timeutil"
)

// Analyzer scores vehicle pairs for collisions. Scoring combines the two
// detection confidences with a proximity factor, a fixed boost, and a small
// random jitter standing in for model variance.
type Analyzer struct {
	config *AnalyzerConfig

	// Clock stamps detection times. Tests swap in a mock.
	Clock timeutil.Clock

	// Variance draws the jitter term added to each pair score, uniform in
	// [0, VarianceMax). Tests pin it to a constant for exact assertions.
	Variance func() float64
}

// NewAnalyzer creates an analyzer with a real clock and a time-seeded
// variance source.
func NewAnalyzer(config *AnalyzerConfig) *Analyzer {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Analyzer{
		config: config,
		Clock:  timeutil.RealClock{},
		Variance: func() float64 {
			return rng.Float64() * config.VarianceMax
		},
	}
}

// Analyze scores every vehicle pair in the frame and assembles the full
// detection result. It is total: any object slice, including an empty one,
// yields a result.
func (a *Analyzer) Analyze(objects []TrackedObject) DetectionResult {
	now := a.Clock.Now().UTC()

	vehicles := lo.Filter(objects, func(o TrackedObject, _ int) bool {
		return o.Class.IsVehicle()
	})

	var collisions []CollisionCandidate
	for i := 0; i < len(vehicles); i++ {
		for j := i + 1; j < len(vehicles); j++ {
			va, vb := vehicles[i], vehicles[j]

			dist := framegeo.Distance(va.Box.Center(), vb.Box.Center())
			if dist >= a.config.GatePx {
				continue
			}

			proximity := math.Max(0, 1-dist/a.config.FalloffPx)
			score := math.Min(1, va.Confidence*vb.Confidence*proximity*a.config.Boost+a.Variance())
			if score <= a.config.MinConfidence {
				continue
			}

			collisions = append(collisions, CollisionCandidate{
				ClassA:     va.Class,
				ClassB:     vb.Class,
				Confidence: score,
				Distance:   dist,
				Severity:   a.severity(score),
				Location:   framegeo.Midpoint(va.Box.Center(), vb.Box.Center()),
				DetectedAt: now,
			})
		}
	}

	return DetectionResult{
		Objects:          objects,
		Collisions:       collisions,
		AccidentDetected: len(collisions) > 0,
		Confidence:       a.aggregate(collisions),
		Frame:            frameContext(objects),
		AnalyzedAt:       now,
	}
}

// severity buckets a pair score. Boundaries are strict: a score exactly at
// a threshold falls into the bucket below.
func (a *Analyzer) severity(confidence float64) Severity {
	switch {
	case confidence > a.config.SeverityCritical:
		return SeverityCritical
	case confidence > a.config.SeverityHigh:
		return SeverityHigh
	case confidence > a.config.SeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// aggregate folds candidate scores into one frame-level confidence. Multiple
// simultaneous candidates reinforce each other, so the mean gets a bump,
// capped at 1.
func (a *Analyzer) aggregate(collisions []CollisionCandidate) float64 {
	if len(collisions) == 0 {
		return 0
	}

	mean := stat.Mean(lo.Map(collisions, func(c CollisionCandidate, _ int) float64 {
		return c.Confidence
	}), nil)

	if len(collisions) > 1 {
		return math.Min(1, mean+0.1)
	}
	return mean
}

func frameContext(objects []TrackedObject) FrameContext {
	ctx := FrameContext{ObjectCount: len(objects)}
	for _, o := range objects {
		if o.Class.IsVehicle() {
			ctx.VehicleCount++
		} else {
			ctx.PedestrianCount++
		}
	}

	switch {
	case ctx.VehicleCount > 4:
		ctx.TrafficDensity = DensityHeavy
	case ctx.VehicleCount > 2:
		ctx.TrafficDensity = DensityModerate
	default:
		ctx.TrafficDensity = DensityLight
	}

	if len(objects) > 0 {
		ctx.MeanConfidence = stat.Mean(lo.Map(objects, func(o TrackedObject, _ int) float64 {
			return o.Confidence
		}), nil)
	}

	return ctx
}
