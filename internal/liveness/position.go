package liveness

import (
	"math"

	"github.com/pairwise-app/faceverify/internal/domain"
)

// PositionIssue explains why a face is not acceptably framed.
type PositionIssue string

const (
	PositionOK             PositionIssue = ""
	PositionTooFar         PositionIssue = "too_far"
	PositionTooClose       PositionIssue = "too_close"
	PositionOffCenterLeft  PositionIssue = "off_center_left"
	PositionOffCenterRight PositionIssue = "off_center_right"
	PositionOffCenter      PositionIssue = "off_center"
	PositionNotFacing      PositionIssue = "not_facing"
)

// InPosition checks that the face is close enough, centered, and roughly
// frontal. It returns the first issue found, checked in the order users
// can most easily fix: distance, centering, then orientation.
func (a *Analyzer) InPosition(obs *domain.FaceObservation) (bool, PositionIssue) {
	area := obs.BoundingBox.Area()
	if area < a.cfg.MinFaceArea {
		return false, PositionTooFar
	}
	if area > a.cfg.MaxFaceArea {
		return false, PositionTooClose
	}

	center := obs.BoundingBox.Center()
	if center.X < a.cfg.CenterMin {
		return false, PositionOffCenterLeft
	}
	if center.X > a.cfg.CenterMax {
		return false, PositionOffCenterRight
	}
	if center.Y < a.cfg.CenterMin || center.Y > a.cfg.CenterMax {
		return false, PositionOffCenter
	}

	if math.Abs(obs.Yaw) >= a.cfg.MaxPositionYaw || math.Abs(obs.Roll) >= a.cfg.MaxPositionRoll {
		return false, PositionNotFacing
	}
	return true, PositionOK
}
