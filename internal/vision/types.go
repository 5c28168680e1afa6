// Package vision produces object detections for camera frames and scores
// vehicle pairs for collisions. Detections are synthetic: a generator stands
// in for a real inference backend so the rest of the pipeline can run
// end to end.
package vision

import (
	"time"

	"github.com/banshee-data/collision.report/internal/framegeo"
)

// ObjectClass is the detected category of a tracked object.
type ObjectClass string

const (
	ClassCar        ObjectClass = "car"
	ClassTruck      ObjectClass = "truck"
	ClassBus        ObjectClass = "bus"
	ClassMotorcycle ObjectClass = "motorcycle"
	ClassPedestrian ObjectClass = "pedestrian"
)

// vehicleClasses are the classes eligible for collision pairing.
var vehicleClasses = []ObjectClass{ClassCar, ClassTruck, ClassBus, ClassMotorcycle}

// IsVehicle reports whether the class takes part in collision analysis.
func (c ObjectClass) IsVehicle() bool {
	return c != ClassPedestrian
}

// Severity ranks how serious a collision candidate looks.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// TrackedObject is a single detection within one frame. IDs are unique per
// frame only; objects are not tracked across frames.
type TrackedObject struct {
	ID         string       `json:"id"`
	Class      ObjectClass  `json:"class"`
	Confidence float64      `json:"confidence"`
	Box        framegeo.Box `json:"box"`
}

// CollisionCandidate is a vehicle pair whose proximity and detection
// confidence suggest a collision.
type CollisionCandidate struct {
	ClassA     ObjectClass    `json:"class_a"`
	ClassB     ObjectClass    `json:"class_b"`
	Confidence float64        `json:"confidence"`
	Distance   float64        `json:"distance_px"`
	Severity   Severity       `json:"severity"`
	Location   framegeo.Point `json:"location"`
	DetectedAt time.Time      `json:"detected_at"`
}

// Traffic density buckets for FrameContext.
const (
	DensityLight    = "light"
	DensityModerate = "moderate"
	DensityHeavy    = "heavy"
)

// FrameContext summarizes the whole frame independent of any collision.
type FrameContext struct {
	ObjectCount     int     `json:"object_count"`
	VehicleCount    int     `json:"vehicle_count"`
	PedestrianCount int     `json:"pedestrian_count"`
	MeanConfidence  float64 `json:"mean_confidence"`
	TrafficDensity  string  `json:"traffic_density"`
}

// DetectionResult is the full outcome of analyzing one frame.
type DetectionResult struct {
	Objects          []TrackedObject      `json:"objects"`
	Collisions       []CollisionCandidate `json:"collisions"`
	AccidentDetected bool                 `json:"accident_detected"`
	Confidence       float64              `json:"confidence"`
	Frame            FrameContext         `json:"frame"`
	AnalyzedAt       time.Time            `json:"analyzed_at"`
}

// MaxSeverity returns the highest severity among the collision candidates,
// or SeverityLow when there are none.
func (r *DetectionResult) MaxSeverity() Severity {
	rank := map[Severity]int{
		SeverityLow:      0,
		SeverityMedium:   1,
		SeverityHigh:     2,
		SeverityCritical: 3,
	}
	max := SeverityLow
	for _, c := range r.Collisions {
		if rank[c.Severity] > rank[max] {
			max = c.Severity
		}
	}
	return max
}
