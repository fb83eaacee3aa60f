package liveness

// Config holds the thresholds for eye, smile, pose, and framing checks.
// All angle bounds are in radians.
type Config struct {
	// EyeOpenThreshold is the minimum aspect ratio for an eye to count
	// as open.
	EyeOpenThreshold float64

	// MinBlinkFrames and MaxBlinkFrames bound the closed-eye streak that
	// counts as a deliberate blink. A streak longer than MaxBlinkFrames
	// means the eyes are simply closed.
	MinBlinkFrames int
	MaxBlinkFrames int

	// SmileRatio is the outer-lip width to height ratio above which the
	// subject counts as smiling.
	SmileRatio float64

	// Framing bounds for the face-in-position check.
	MinFaceArea     float64
	MaxFaceArea     float64
	CenterMin       float64
	CenterMax       float64
	MaxPositionYaw  float64
	MaxPositionRoll float64

	// Pose acceptance bounds.
	MaxPoseRoll float64
	MinQuality  float64
}

// DefaultConfig returns the tuned production thresholds.
func DefaultConfig() Config {
	return Config{
		EyeOpenThreshold: 0.18,
		MinBlinkFrames:   2,
		MaxBlinkFrames:   14,
		SmileRatio:       3.0,
		MinFaceArea:      0.15,
		MaxFaceArea:      0.6,
		CenterMin:        0.2,
		CenterMax:        0.8,
		MaxPositionYaw:   0.2,
		MaxPositionRoll:  0.2,
		MaxPoseRoll:      0.3,
		MinQuality:       0.3,
	}
}
