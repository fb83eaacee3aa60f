package liveness

import (
	"math"

	"github.com/pairwise-app/faceverify/internal/domain"
)

// angleRange is an inclusive interval in radians.
type angleRange struct {
	min, max float64
}

func (r angleRange) contains(v float64) bool {
	return v >= r.min && v <= r.max
}

var poseRanges = map[domain.Pose]struct{ yaw, pitch angleRange }{
	domain.PoseCenter: {yaw: angleRange{-0.15, 0.15}, pitch: angleRange{-0.15, 0.15}},
	domain.PoseLeft:   {yaw: angleRange{-0.6, -0.25}, pitch: angleRange{-0.25, 0.25}},
	domain.PoseRight:  {yaw: angleRange{0.25, 0.6}, pitch: angleRange{-0.25, 0.25}},
	domain.PoseUp:     {yaw: angleRange{-0.25, 0.25}, pitch: angleRange{0.2, 0.5}},
	domain.PoseDown:   {yaw: angleRange{-0.25, 0.25}, pitch: angleRange{-0.5, -0.2}},
}

// MatchesPose reports whether the observation's head angles fall inside
// the requested pose's yaw and pitch ranges, with an acceptably small
// roll and sufficient quality.
func (a *Analyzer) MatchesPose(obs *domain.FaceObservation, pose domain.Pose) bool {
	ranges, ok := poseRanges[pose]
	if !ok {
		return false
	}
	if math.Abs(obs.Roll) >= a.cfg.MaxPoseRoll {
		return false
	}
	if obs.Quality != nil && *obs.Quality < a.cfg.MinQuality {
		return false
	}
	return ranges.yaw.contains(obs.Yaw) && ranges.pitch.contains(obs.Pitch)
}
