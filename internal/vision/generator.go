package vision

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/collision.report/internal/framegeo"
)

// Detection confidence floors. Vehicles detect more reliably than
// pedestrians, matching the bias of real traffic models.
const (
	vehicleConfidenceFloor    = 0.85
	pedestrianConfidenceFloor = 0.75
)

// sizeRange bounds one box dimension in pixels.
type sizeRange struct {
	min, max float64
}

// classSizes holds plausible bounding-box dimensions per object class.
var classSizes = map[ObjectClass]struct{ w, h sizeRange }{
	ClassCar:        {sizeRange{120, 280}, sizeRange{100, 180}},
	ClassTruck:      {sizeRange{200, 420}, sizeRange{160, 300}},
	ClassBus:        {sizeRange{260, 480}, sizeRange{180, 320}},
	ClassMotorcycle: {sizeRange{60, 140}, sizeRange{60, 140}},
	ClassPedestrian: {sizeRange{40, 90}, sizeRange{90, 180}},
}

// Generator produces synthetic per-frame detections in place of a real
// inference backend.
type Generator struct {
	config *GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a generator with a time-seeded random source.
func NewGenerator(config *GeneratorConfig) *Generator {
	return NewSeededGenerator(config, time.Now().UnixNano())
}

// NewSeededGenerator creates a generator with a fixed seed so frames are
// reproducible.
func NewSeededGenerator(config *GeneratorConfig, seed int64) *Generator {
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Generate produces the detections for one frame. A real backend would open
// the stream URL and run inference on the decoded frame; the synthetic
// generator ignores it and invents a plausible scene instead.
func (g *Generator) Generate(streamURL string) []TrackedObject {
	count := g.config.MinVehicles
	if spread := g.config.MaxVehicles - g.config.MinVehicles; spread > 0 {
		count += g.rng.Intn(spread + 1)
	}

	objects := make([]TrackedObject, 0, count+1)
	for i := 0; i < count; i++ {
		class := vehicleClasses[g.rng.Intn(len(vehicleClasses))]
		objects = append(objects, g.object(class, vehicleConfidenceFloor))
	}

	if g.rng.Float64() < g.config.PedestrianProbability {
		objects = append(objects, g.object(ClassPedestrian, pedestrianConfidenceFloor))
	}

	return objects
}

func (g *Generator) object(class ObjectClass, confidenceFloor float64) TrackedObject {
	size := classSizes[class]
	w := g.uniform(size.w.min, size.w.max)
	h := g.uniform(size.h.min, size.h.max)

	return TrackedObject{
		ID:         uuid.New().String(),
		Class:      class,
		Confidence: confidenceFloor + g.rng.Float64()*(1.0-confidenceFloor),
		Box: framegeo.Box{
			X: g.place(g.config.FrameWidth, w),
			Y: g.place(g.config.FrameHeight, h),
			W: w,
			H: h,
		},
	}
}

// place picks a box origin so the box stays inside the frame.
func (g *Generator) place(frameExtent, boxExtent float64) float64 {
	if frameExtent <= boxExtent {
		return 0
	}
	return g.uniform(0, frameExtent-boxExtent)
}

func (g *Generator) uniform(min, max float64) float64 {
	return min + g.rng.Float64()*(max-min)
}
