// Package signature derives a fixed-length geometric identity signature
// from facial landmarks. Every feature is a ratio or angle relative to the
// inter-pupillary distance or face extents, so the vector is approximately
// invariant to camera distance and head size while remaining sensitive to
// individual facial proportions. It is a lightweight, dependency-free
// alternative to a learned embedding: the same extraction runs on live
// frames and on downloaded reference photos, and the two vectors are only
// comparable because the feature order is identical on both sides.
package signature

import (
	"errors"
	"math"
	"sort"

	"github.com/pairwise-app/faceverify/internal/domain"
)

// Dimension is the length of every extracted signature vector.
const Dimension = 29

// minPupilDistance rejects degenerate detections where the two eye
// centroids collapse onto each other.
const minPupilDistance = 0.01

var (
	// ErrMissingLandmarks indicates a required landmark group was empty.
	ErrMissingLandmarks = errors.New("required landmark group missing")

	// ErrDegenerateFace indicates the eye centroids were too close for the
	// inter-pupillary distance to serve as a normalization scale.
	ErrDegenerateFace = errors.New("degenerate inter-pupillary distance")
)

// Signature is an L2-normalized feature vector describing facial geometry.
type Signature []float64

// Float64s returns the raw vector.
func (s Signature) Float64s() []float64 { return []float64(s) }

// Norm returns the Euclidean magnitude of the vector.
func (s Signature) Norm() float64 {
	var sum float64
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Extract computes the identity signature for one observation. It fails
// when the eye, nose, lip, or contour groups are missing, or when the
// inter-pupillary distance is degenerate.
func Extract(obs *domain.FaceObservation) (Signature, error) {
	lm := obs.Landmarks
	if len(lm.LeftEye) == 0 || len(lm.RightEye) == 0 ||
		len(lm.Nose) == 0 || len(lm.OuterLips) == 0 || len(lm.FaceContour) == 0 {
		return nil, ErrMissingLandmarks
	}

	leftEye := domain.Centroid(lm.LeftEye)
	rightEye := domain.Centroid(lm.RightEye)
	nose := domain.Centroid(lm.Nose)
	mouth := domain.Centroid(lm.OuterLips)

	ipd := domain.Distance(leftEye, rightEye)
	if ipd < minPupilDistance {
		return nil, ErrDegenerateFace
	}

	eyeMid := domain.Point{X: (leftEye.X + rightEye.X) / 2, Y: (leftEye.Y + rightEye.Y) / 2}

	features := make([]float64, 0, Dimension)

	// Distances normalized by the inter-pupillary distance.
	features = append(features,
		domain.Distance(eyeMid, nose)/ipd,
		domain.Distance(nose, mouth)/ipd,
		domain.Distance(eyeMid, mouth)/ipd,
		domain.Distance(leftEye, nose)/ipd,
		domain.Distance(rightEye, nose)/ipd,
		groupWidth(lm.OuterLips)/ipd,
		groupWidth(lm.Nose)/ipd,
		math.Abs(leftEye.Y-rightEye.Y)/ipd,
		browEyeGap(lm.LeftEyebrow, leftEye)/ipd,
		browEyeGap(lm.RightEyebrow, rightEye)/ipd,
	)

	// Orientation angles between key centroids.
	leftBrow := domain.Centroid(lm.LeftEyebrow)
	rightBrow := domain.Centroid(lm.RightEyebrow)
	features = append(features,
		math.Atan2(rightEye.Y-leftEye.Y, rightEye.X-leftEye.X),
		math.Atan2(nose.Y-eyeMid.Y, nose.X-eyeMid.X),
		math.Atan2(mouth.Y-nose.Y, mouth.X-nose.X),
		math.Atan2(rightBrow.Y-leftBrow.Y, rightBrow.X-leftBrow.X),
	)

	// Aspect ratios of individual features.
	features = append(features,
		aspectRatio(lm.LeftEye),
		aspectRatio(lm.RightEye),
		groupHeight(lm.Nose)/ipd,
		groupHeight(lm.OuterLips)/ipd,
	)

	// Jaw shape from the face contour, split into vertical thirds.
	lowerW, middleW := contourThirdWidths(lm.FaceContour)
	jawRatio := 0.0
	if middleW > 0 {
		jawRatio = lowerW / middleW
	}
	features = append(features, lowerW/ipd, middleW/ipd, jawRatio)

	// Offsets of the feature centroids from the face centroid.
	faceCenter := domain.Centroid(lm.FaceContour)
	for _, p := range []domain.Point{leftEye, rightEye, nose, mouth} {
		features = append(features, (p.X-faceCenter.X)/ipd, (p.Y-faceCenter.Y)/ipd)
	}

	return normalize(features), nil
}

// normalize scales the vector to unit magnitude. A zero vector is left
// unnormalized.
func normalize(v []float64) Signature {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return Signature(v)
	}
	out := make(Signature, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func groupWidth(points []domain.Point) float64 {
	w, _ := domain.Extent(points)
	return w
}

func groupHeight(points []domain.Point) float64 {
	_, h := domain.Extent(points)
	return h
}

// aspectRatio returns height/width for a point group, 0 for a degenerate
// group.
func aspectRatio(points []domain.Point) float64 {
	w, h := domain.Extent(points)
	if w == 0 {
		return 0
	}
	return h / w
}

// browEyeGap returns the vertical distance between an eyebrow centroid and
// the eye centroid beneath it, or 0 when the brow group is missing.
func browEyeGap(brow []domain.Point, eye domain.Point) float64 {
	if len(brow) == 0 {
		return 0
	}
	return math.Abs(domain.Centroid(brow).Y - eye.Y)
}

// contourThirdWidths sorts the contour points by y and returns the widths
// of the lowest third (jaw) and the middle third (cheeks).
func contourThirdWidths(contour []domain.Point) (lower, middle float64) {
	if len(contour) < 3 {
		w, _ := domain.Extent(contour)
		return w, w
	}
	sorted := make([]domain.Point, len(contour))
	copy(sorted, contour)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	third := len(sorted) / 3
	middlePart := sorted[third : 2*third]
	lowerPart := sorted[2*third:]

	lower, _ = domain.Extent(lowerPart)
	middle, _ = domain.Extent(middlePart)
	return lower, middle
}
