// Package mock provides a deterministic FaceDetector for tests and local
// development. Observations are synthesized from a parameterized face
// template: the same image bytes always produce the same face, and
// different images produce slightly different facial proportions, so
// signature extraction behaves like it would against a real detector
// without any model dependency.
package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/pairwise-app/faceverify/internal/detector"
	"github.com/pairwise-app/faceverify/internal/domain"
)

const minImageBytes = 100

// Detector implements detector.FaceDetector with synthetic observations.
type Detector struct{}

// New creates a new mock detector.
func New() *Detector {
	return &Detector{}
}

// DetectLargestFace synthesizes a front-facing observation seeded from the
// image content hash.
func (d *Detector) DetectLargestFace(_ context.Context, image []byte) (*domain.FaceObservation, error) {
	if len(image) < minImageBytes {
		return nil, domain.ErrInvalidImage
	}

	hash := sha256.Sum256(image)
	seed := binary.BigEndian.Uint64(hash[:8])

	return SyntheticObservation(seed), nil
}

var _ detector.FaceDetector = (*Detector)(nil)

// ObservationOption mutates a synthetic observation.
type ObservationOption func(*faceParams)

// faceParams controls the synthesized geometry.
type faceParams struct {
	yaw, pitch, roll float64
	quality          float64
	box              domain.BoundingBox
	eyeOpenness      float64 // half-height of the eye outline
	mouthWidth       float64
	mouthHeight      float64
	jitter           [4]float64
}

// WithAngles sets the head rotation angles in radians.
func WithAngles(yaw, pitch, roll float64) ObservationOption {
	return func(p *faceParams) { p.yaw, p.pitch, p.roll = yaw, pitch, roll }
}

// WithQuality sets the capture-quality score.
func WithQuality(q float64) ObservationOption {
	return func(p *faceParams) { p.quality = q }
}

// WithBoundingBox overrides the face bounding box.
func WithBoundingBox(b domain.BoundingBox) ObservationOption {
	return func(p *faceParams) { p.box = b }
}

// WithEyesClosed collapses the eye outlines to a closed-lid aspect ratio.
func WithEyesClosed() ObservationOption {
	return func(p *faceParams) { p.eyeOpenness = 0.005 }
}

// WithSmile widens and flattens the mouth past the smile threshold.
func WithSmile() ObservationOption {
	return func(p *faceParams) { p.mouthWidth, p.mouthHeight = 0.22, 0.04 }
}

// SyntheticObservation builds a deterministic face observation. The seed
// perturbs individual proportions by a few percent so distinct seeds model
// distinct identities.
func SyntheticObservation(seed uint64, opts ...ObservationOption) *domain.FaceObservation {
	p := &faceParams{
		quality:     0.9,
		box:         domain.BoundingBox{X: 0.3, Y: 0.25, Width: 0.4, Height: 0.5},
		eyeOpenness: 0.015,
		mouthWidth:  0.18,
		mouthHeight: 0.06,
	}

	rng := seed
	for i := range p.jitter {
		rng = rng*6364136223846793005 + 1442695040888963407
		// Map to [0.95, 1.05].
		p.jitter[i] = 0.95 + 0.1*float64(rng>>11)/float64(1<<53)
	}

	for _, opt := range opts {
		opt(p)
	}

	quality := p.quality
	return &domain.FaceObservation{
		BoundingBox: p.box,
		Yaw:         p.yaw,
		Pitch:       p.pitch,
		Roll:        p.roll,
		Quality:     &quality,
		Landmarks: domain.Landmarks{
			LeftEye:      eyeOutline(0.38, 0.42, 0.04*p.jitter[0], p.eyeOpenness),
			RightEye:     eyeOutline(0.62, 0.42, 0.04*p.jitter[0], p.eyeOpenness),
			LeftEyebrow:  browLine(0.38, 0.36*p.jitter[1]),
			RightEyebrow: browLine(0.62, 0.36*p.jitter[1]),
			Nose:         noseOutline(0.14 * p.jitter[2]),
			OuterLips:    ellipse(0.5, 0.68, p.mouthWidth/2, p.mouthHeight/2, 8),
			InnerLips:    ellipse(0.5, 0.68, p.mouthWidth/2*0.8, p.mouthHeight/2*0.4, 8),
			FaceContour:  ellipse(0.5, 0.52, 0.23*p.jitter[3], 0.30, 16),
		},
	}
}

// eyeOutline returns the six-point eye contour used by the aspect-ratio
// test: corners at the horizontal extremes, two upper and two lower lid
// points.
func eyeOutline(cx, cy, halfWidth, halfHeight float64) []domain.Point {
	return []domain.Point{
		{X: cx - halfWidth, Y: cy},
		{X: cx - halfWidth/3, Y: cy - halfHeight},
		{X: cx + halfWidth/3, Y: cy - halfHeight},
		{X: cx + halfWidth, Y: cy},
		{X: cx + halfWidth/3, Y: cy + halfHeight},
		{X: cx - halfWidth/3, Y: cy + halfHeight},
	}
}

func browLine(cx, y float64) []domain.Point {
	return []domain.Point{
		{X: cx - 0.05, Y: y + 0.005},
		{X: cx - 0.017, Y: y},
		{X: cx + 0.017, Y: y},
		{X: cx + 0.05, Y: y + 0.005},
	}
}

func noseOutline(length float64) []domain.Point {
	return []domain.Point{
		{X: 0.5, Y: 0.44},
		{X: 0.5, Y: 0.44 + length/2},
		{X: 0.46, Y: 0.44 + length*0.93},
		{X: 0.5, Y: 0.44 + length},
		{X: 0.54, Y: 0.44 + length*0.93},
	}
}

func ellipse(cx, cy, rx, ry float64, n int) []domain.Point {
	points := make([]domain.Point, 0, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		points = append(points, domain.Point{
			X: cx + rx*math.Cos(theta),
			Y: cy + ry*math.Sin(theta),
		})
	}
	return points
}
