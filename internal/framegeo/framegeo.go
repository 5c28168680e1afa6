// Package framegeo provides geometry for camera-frame pixel space and
// great-circle distance for stream coordinates.
package framegeo

import (
	"math"

	"github.com/golang/geo/s2"
)

// earthRadiusM is the mean Earth radius used for great-circle distances.
const earthRadiusM = 6371010.0

// Point is a position in frame-pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned bounding region in frame-pixel space. X and Y are
// the top-left corner.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Center returns the center point of the box.
func (b Box) Center() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Distance returns the Euclidean distance between two frame points.
func Distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// EarthDistanceM returns the great-circle distance in meters between two
// lat/lng coordinates in degrees.
func EarthDistanceM(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * earthRadiusM
}
