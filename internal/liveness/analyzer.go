// Package liveness implements the per-frame checks behind the verification
// flow: eye openness and blink tracking, smile detection, head-pose
// matching, and face framing.
package liveness

import (
	"github.com/pairwise-app/faceverify/internal/domain"
)

// Analyzer evaluates single observations against the configured
// thresholds. It is stateless; blink tracking lives in BlinkDetector.
type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// EyesOpen reports whether both eyes are open, averaging the two aspect
// ratios. Observations without eye landmarks count as open so that a
// detector dropout cannot register a blink.
func (a *Analyzer) EyesOpen(obs *domain.FaceObservation) bool {
	left := obs.Landmarks.LeftEye
	right := obs.Landmarks.RightEye
	if len(left) < 6 || len(right) < 6 {
		return true
	}
	avg := (EyeAspectRatio(left) + EyeAspectRatio(right)) / 2
	return avg > a.cfg.EyeOpenThreshold
}

// Smiling reports whether the outer-lip contour is stretched wide enough
// to count as a smile.
func (a *Analyzer) Smiling(obs *domain.FaceObservation) bool {
	lips := obs.Landmarks.OuterLips
	if len(lips) == 0 {
		return false
	}
	width, height := domain.Extent(lips)
	if height <= 0 {
		return false
	}
	return width/height > a.cfg.SmileRatio
}

// EyeAspectRatio computes the ratio of vertical lid separation to
// horizontal eye width from a six-point (or denser) eye contour. Contours
// with more than six points are sampled at six evenly spaced indices.
func EyeAspectRatio(eye []domain.Point) float64 {
	if len(eye) < 6 {
		return 0
	}
	n := len(eye)
	pt := func(i int) domain.Point { return eye[i*n/6] }

	horizontal := domain.Distance(pt(0), pt(3))
	if horizontal <= 0 {
		return 0
	}
	v1 := domain.Distance(pt(1), pt(5))
	v2 := domain.Distance(pt(2), pt(4))
	return (v1 + v2) / (2 * horizontal)
}

// BlinkDetector tracks consecutive closed-eye frames and reports a blink
// when the eyes reopen after a plausible closed streak. A streak past
// MaxBlinkFrames is treated as deliberately closed eyes, not a blink.
type BlinkDetector struct {
	cfg          Config
	closedStreak int
}

func NewBlinkDetector(cfg Config) *BlinkDetector {
	return &BlinkDetector{cfg: cfg}
}

// Observe feeds one frame's eye state and reports whether a blink just
// completed.
func (d *BlinkDetector) Observe(eyesOpen bool) bool {
	if !eyesOpen {
		d.closedStreak++
		return false
	}
	streak := d.closedStreak
	d.closedStreak = 0
	return streak >= d.cfg.MinBlinkFrames && streak <= d.cfg.MaxBlinkFrames
}

// EyesClosedTooLong reports whether the current closed streak has grown
// past the blink window.
func (d *BlinkDetector) EyesClosedTooLong() bool {
	return d.closedStreak > d.cfg.MaxBlinkFrames
}

func (d *BlinkDetector) Reset() {
	d.closedStreak = 0
}
