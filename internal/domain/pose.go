package domain

// Pose is a required head orientation during the capture phase.
type Pose string

const (
	PoseCenter Pose = "center"
	PoseLeft   Pose = "left"
	PoseRight  Pose = "right"
	PoseUp     Pose = "up"
	PoseDown   Pose = "down"
)

// DefaultRequiredPoses is the fixed capture order. Up and down exist in the
// model but are not part of the default set.
func DefaultRequiredPoses() []Pose {
	return []Pose{PoseCenter, PoseLeft, PoseRight}
}

// Challenge is a liveness action the user must perform on camera.
type Challenge string

const (
	ChallengeBlink     Challenge = "blink"
	ChallengeSmile     Challenge = "smile"
	ChallengeTurnLeft  Challenge = "turn_left"
	ChallengeTurnRight Challenge = "turn_right"
)

// DefaultRequiredChallenges is the fixed challenge order. The turn
// challenges exist in the model but are not part of the default set.
func DefaultRequiredChallenges() []Challenge {
	return []Challenge{ChallengeBlink, ChallengeSmile}
}
