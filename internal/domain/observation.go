package domain

import "math"

// Point is a normalized 2D landmark coordinate in the unit square.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox represents the face area in normalized image coordinates
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the fraction of the frame covered by the box.
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// Center returns the box midpoint.
func (b BoundingBox) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Landmarks groups the normalized 2D landmark points of a detected face.
// Any group may be empty when the detector could not localize it.
type Landmarks struct {
	LeftEye      []Point `json:"left_eye"`
	RightEye     []Point `json:"right_eye"`
	LeftEyebrow  []Point `json:"left_eyebrow"`
	RightEyebrow []Point `json:"right_eyebrow"`
	Nose         []Point `json:"nose"`
	OuterLips    []Point `json:"outer_lips"`
	InnerLips    []Point `json:"inner_lips"`
	FaceContour  []Point `json:"face_contour"`
}

// FaceObservation is a single-frame face detection result: bounding box,
// head rotation angles in radians, an optional capture-quality score in
// [0,1], and the landmark groups. Observations are ephemeral; they are
// owned by the frame source and never persisted.
type FaceObservation struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Yaw         float64     `json:"yaw"`
	Pitch       float64     `json:"pitch"`
	Roll        float64     `json:"roll"`
	Quality     *float64    `json:"quality,omitempty"`
	Landmarks   Landmarks   `json:"landmarks"`
}

// QualityOrDefault returns the capture quality, or fallback when the
// detector did not report one.
func (o *FaceObservation) QualityOrDefault(fallback float64) float64 {
	if o.Quality == nil {
		return fallback
	}
	return *o.Quality
}

// Centroid returns the mean of a point group. The zero Point is returned
// for an empty group.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Extent returns the width and height of a point group's bounding extents.
func Extent(points []Point) (width, height float64) {
	if len(points) == 0 {
		return 0, 0
	}
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return maxX - minX, maxY - minY
}
